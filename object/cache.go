package object

import (
	"maps"
	"reflect"
	"slices"
)

// Cache 组件名到已构建单例实例的映射
// 不加锁，由 Manager 负责同步
type Cache struct {
	instances map[string]any
}

// NewCache 创建实例缓存
func NewCache() *Cache {
	return &Cache{instances: make(map[string]any)}
}

// Get 获取实例
func (c *Cache) Get(name string) (any, error) {
	instance, ok := c.instances[name]
	if !ok {
		return nil, &NotFoundError{ComponentName: name}
	}
	return instance, nil
}

// Put 写入实例，已存在时直接覆盖
func (c *Cache) Put(name string, instance any) error {
	if name == "" {
		return &InvalidArgumentError{Argument: "name", Reason: "组件名不能为空"}
	}
	if !objectLike(instance) {
		return &InvalidArgumentError{Argument: "instance", Reason: "必须是对象"}
	}
	c.instances[name] = instance
	return nil
}

// Remove 移除实例
func (c *Cache) Remove(name string) error {
	if _, ok := c.instances[name]; !ok {
		return &NotFoundError{ComponentName: name}
	}
	delete(c.instances, name)
	return nil
}

// Exists 是否存在
func (c *Cache) Exists(name string) bool {
	_, ok := c.instances[name]
	return ok
}

// Names 返回已缓存的组件名（排序）
func (c *Cache) Names() []string {
	return slices.Sorted(maps.Keys(c.instances))
}

// Clone 复制映射，实例本身共享
func (c *Cache) Clone() *Cache {
	return &Cache{instances: maps.Clone(c.instances)}
}

// objectLike 非 nil 的引用类型值
func objectLike(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func, reflect.Slice, reflect.UnsafePointer:
		return !rv.IsNil()
	}
	return false
}
