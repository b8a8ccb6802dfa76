package reflection

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// ErrUnknownClass 类未注册
var ErrUnknownClass = errors.New("reflection: 未知的类")

// Service 反射能力
// 根据类名回答类的结构：构造参数、注入 setter、属性和注解
type Service interface {
	Class(name string) (*Class, error)
	ClassOf(obj any) (*Class, error)
	HasClass(name string) bool
	IsInstanceOf(obj any, className string) bool
	Implements(className, interfaceName string) bool
}

// Registry 启动时填充的类注册表
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Class
	byType map[reflect.Type]*Class
}

var _ Service = (*Registry)(nil)

// NewRegistry 创建类注册表
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*Class),
		byType: make(map[reflect.Type]*Class),
	}
}

// Register 注册类
// target 可以是：
// 1. 构造函数 (例如 NewGreeter)，返回 T 或 (T, error)
// 2. 结构体指针 (例如 (*Greeter)(nil))，实例化时只分配零值
func (r *Registry) Register(name string, target any, opts ...Option) (*Class, error) {
	if name == "" {
		return nil, fmt.Errorf("reflection: 类名不能为空")
	}
	if target == nil {
		return nil, fmt.Errorf("reflection: 类 %s 的目标不能为 nil", name)
	}

	c := &Class{name: name, registry: r}
	tv := reflect.ValueOf(target)
	switch {
	case tv.Kind() == reflect.Func:
		ft := tv.Type()
		if ft.IsVariadic() {
			return nil, fmt.Errorf("reflection: 类 %s 的构造函数不能是可变参数", name)
		}
		if ft.NumOut() == 0 || ft.NumOut() > 2 || (ft.NumOut() == 2 && ft.Out(1) != errorType) {
			return nil, fmt.Errorf("reflection: 类 %s 的构造函数必须返回 T 或 (T, error)", name)
		}
		c.ctor = tv
		c.typ = ft.Out(0)
	case tv.Kind() == reflect.Ptr && tv.Type().Elem().Kind() == reflect.Struct:
		c.typ = tv.Type()
	default:
		return nil, fmt.Errorf("reflection: 类 %s 的目标必须是构造函数或结构体指针，实际为 %T", name, target)
	}
	c.properties = propertiesOf(c.typ)

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if err := r.add(c); err != nil {
		return nil, err
	}
	return c, nil
}

// RegisterInterface 注册抽象类（接口）
func (r *Registry) RegisterInterface(name string, t reflect.Type, opts ...Option) (*Class, error) {
	if name == "" {
		return nil, fmt.Errorf("reflection: 类名不能为空")
	}
	if t == nil || t.Kind() != reflect.Interface {
		return nil, fmt.Errorf("reflection: %s 不是接口类型", name)
	}
	c := &Class{name: name, typ: t, abstract: true, registry: r}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if err := r.add(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Interface 注册接口类型 T 为抽象类
func Interface[T any](r *Registry, name string, opts ...Option) (*Class, error) {
	return r.RegisterInterface(name, TypeOf[T](), opts...)
}

func (r *Registry) add(c *Class) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[c.name]; exists {
		return fmt.Errorf("reflection: 类 %s 已注册", c.name)
	}
	r.byName[c.name] = c
	// 同一类型以第一次注册的名称为准
	if _, exists := r.byType[c.typ]; !exists {
		r.byType[c.typ] = c
	}
	return nil
}

// Class 按名称获取类
func (r *Registry) Class(name string) (*Class, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClass, name)
	}
	return c, nil
}

// HasClass 类是否已注册
func (r *Registry) HasClass(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byName[name]
	return ok
}

// ClassOf 获取对象所属的类
// 未注册的结构体指针类型会以类型名自动注册
func (r *Registry) ClassOf(obj any) (*Class, error) {
	if obj == nil {
		return nil, fmt.Errorf("reflection: 对象为 nil")
	}
	t := reflect.TypeOf(obj)

	r.mu.RLock()
	c, ok := r.byType[t]
	r.mu.RUnlock()
	if ok {
		return c, nil
	}

	if t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClass, t)
	}
	c, err := r.Register(t.String(), reflect.Zero(t).Interface())
	if err != nil {
		// 并发注册时另一方已经写入
		if existing, lookupErr := r.Class(t.String()); lookupErr == nil && existing.typ == t {
			return existing, nil
		}
		return nil, err
	}
	return c, nil
}

// IsInstanceOf 对象是否是类（或接口）的实例
func (r *Registry) IsInstanceOf(obj any, className string) bool {
	c, err := r.Class(className)
	if err != nil || obj == nil {
		return false
	}
	t := reflect.TypeOf(obj)
	if c.abstract {
		return t.Implements(c.typ)
	}
	return t == c.typ || t.AssignableTo(c.typ)
}

// Implements 类 className 是否实现了接口 interfaceName
func (r *Registry) Implements(className, interfaceName string) bool {
	c, err := r.Class(className)
	if err != nil || c.abstract {
		return false
	}
	iface, err := r.Class(interfaceName)
	if err != nil || !iface.abstract {
		return false
	}
	return c.typ.Implements(iface.typ)
}

// classNameOf 解析参数类型对应的类名
// 已注册类型使用注册名；未注册的接口和结构体指针使用 Go 类型名
func (r *Registry) classNameOf(t reflect.Type) string {
	r.mu.RLock()
	c, ok := r.byType[t]
	r.mu.RUnlock()
	if ok {
		return c.name
	}

	switch t.Kind() {
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return ""
		}
		return t.String()
	case reflect.Ptr:
		if t.Elem().Kind() == reflect.Struct {
			return t.String()
		}
	}
	return ""
}

// propertiesOf 解析导出字段
// 标签 object:"transient" 标记瞬态属性，object:"-" 忽略字段
func propertiesOf(t reflect.Type) []Property {
	if t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Struct {
		return nil
	}
	st := t.Elem()
	props := make([]Property, 0, st.NumField())
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("object")
		if tag == "-" {
			continue
		}
		props = append(props, Property{
			Name:      f.Name,
			Type:      f.Type,
			Transient: hasTagOption(tag, "transient"),
			index:     f.Index,
		})
	}
	return props
}

func hasTagOption(tag, option string) bool {
	for _, part := range strings.Split(tag, ",") {
		if strings.TrimSpace(part) == option {
			return true
		}
	}
	return false
}
