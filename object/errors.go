package object

import (
	"fmt"
	"strings"
)

// NotFoundError 组件未注册或缓存中不存在
type NotFoundError struct {
	ComponentName string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("object: 组件 %q 未找到", e.ComponentName)
}

// AlreadyRegisteredError 组件名重复注册
type AlreadyRegisteredError struct {
	ComponentName string
}

func (e *AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("object: 组件 %q 已注册", e.ComponentName)
}

// UnknownClassError 类名无法解析
type UnknownClassError struct {
	ComponentName string
	ClassName     string
	Err           error
}

func (e *UnknownClassError) Error() string {
	return fmt.Sprintf("object: 组件 %q 的类 %q 不存在", e.ComponentName, e.ClassName)
}

func (e *UnknownClassError) Unwrap() error {
	return e.Err
}

// InvalidClassError 注册抽象类
type InvalidClassError struct {
	ComponentName string
	ClassName     string
}

func (e *InvalidClassError) Error() string {
	return fmt.Sprintf("object: 组件 %q 的类 %q 是抽象的", e.ComponentName, e.ClassName)
}

// InvalidObjectError 注册的实例不是类的实例
type InvalidObjectError struct {
	ComponentName string
	ClassName     string
	Instance      any
}

func (e *InvalidObjectError) Error() string {
	return fmt.Sprintf("object: 组件 %q 的实例 (%T) 不是类 %q 的实例", e.ComponentName, e.Instance, e.ClassName)
}

// CircularDependencyError 构建时检测到循环依赖
type CircularDependencyError struct {
	ComponentName string
	// Path 从最外层组件到重复进入的组件
	Path []string
}

func (e *CircularDependencyError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("object: 检测到循环依赖: %s", e.ComponentName)
	}
	return fmt.Sprintf("object: 检测到循环依赖: %s", strings.Join(e.Path, " -> "))
}

// CannotBuildError 组件无法实例化
type CannotBuildError struct {
	ComponentName string
	ClassName     string
	Reason        string
	Err           error
}

func (e *CannotBuildError) Error() string {
	msg := fmt.Sprintf("object: 无法构建组件 %q", e.ComponentName)
	if e.ClassName != "" {
		msg += fmt.Sprintf(" (类 %q)", e.ClassName)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CannotBuildError) Unwrap() error {
	return e.Err
}

// UnsupportedScopeError 作用域不受支持
type UnsupportedScopeError struct {
	ComponentName string
	Scope         Scope
}

func (e *UnsupportedScopeError) Error() string {
	return fmt.Sprintf("object: 组件 %q 的作用域 %q 不受支持", e.ComponentName, e.Scope)
}

// CorruptSerializedStateError 序列化数据损坏
type CorruptSerializedStateError struct {
	Key    string
	Reason string
	Err    error
}

func (e *CorruptSerializedStateError) Error() string {
	msg := fmt.Sprintf("object: 序列化数据损坏 (%s): %s", e.Key, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CorruptSerializedStateError) Unwrap() error {
	return e.Err
}

// InvalidArgumentError 参数不合法
type InvalidArgumentError struct {
	Argument string
	Reason   string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("object: 参数 %s 不合法: %s", e.Argument, e.Reason)
}
