// Package collection 提供序列化器能够识别的容器类型
package collection

import (
	"reflect"
	"slices"
)

// ArrayObject 保持插入顺序的键值数组
type ArrayObject struct {
	keys  []string
	items map[string]any
}

// NewArrayObject 创建空的 ArrayObject
func NewArrayObject() *ArrayObject {
	return &ArrayObject{items: make(map[string]any)}
}

// Set 设置键值，已存在的键保持原位置
func (a *ArrayObject) Set(key string, value any) {
	if a.items == nil {
		a.items = make(map[string]any)
	}
	if _, ok := a.items[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.items[key] = value
}

func (a *ArrayObject) Get(key string) (any, bool) {
	v, ok := a.items[key]
	return v, ok
}

func (a *ArrayObject) Delete(key string) {
	if _, ok := a.items[key]; !ok {
		return
	}
	delete(a.items, key)
	a.keys = slices.DeleteFunc(a.keys, func(k string) bool { return k == key })
}

func (a *ArrayObject) Len() int {
	return len(a.keys)
}

// Keys 按插入顺序返回键
func (a *ArrayObject) Keys() []string {
	return slices.Clone(a.keys)
}

// ToMap 返回内容的副本
func (a *ArrayObject) ToMap() map[string]any {
	out := make(map[string]any, len(a.items))
	for k, v := range a.items {
		out[k] = v
	}
	return out
}

// ObjectStorage 按插入顺序保存的对象集合，以对象身份去重
type ObjectStorage struct {
	objects []any
	index   map[identity]int
}

type identity struct {
	typ reflect.Type
	ptr uintptr
}

// NewObjectStorage 创建空集合
func NewObjectStorage() *ObjectStorage {
	return &ObjectStorage{index: make(map[identity]int)}
}

// Attach 加入对象，已存在时忽略
func (s *ObjectStorage) Attach(obj any) bool {
	id, ok := identityOf(obj)
	if !ok {
		return false
	}
	if s.index == nil {
		s.index = make(map[identity]int)
	}
	if _, exists := s.index[id]; exists {
		return false
	}
	s.index[id] = len(s.objects)
	s.objects = append(s.objects, obj)
	return true
}

// Detach 移除对象
func (s *ObjectStorage) Detach(obj any) {
	id, ok := identityOf(obj)
	if !ok {
		return
	}
	i, exists := s.index[id]
	if !exists {
		return
	}
	s.objects = slices.Delete(s.objects, i, i+1)
	delete(s.index, id)
	for j := i; j < len(s.objects); j++ {
		jid, _ := identityOf(s.objects[j])
		s.index[jid] = j
	}
}

func (s *ObjectStorage) Contains(obj any) bool {
	id, ok := identityOf(obj)
	if !ok {
		return false
	}
	_, exists := s.index[id]
	return exists
}

func (s *ObjectStorage) Len() int {
	return len(s.objects)
}

// Objects 按插入顺序返回对象
func (s *ObjectStorage) Objects() []any {
	return slices.Clone(s.objects)
}

// Collection 有序集合
type Collection interface {
	Add(element any)
	Elements() []any
	Len() int
}

// ArrayCollection 基于切片的 Collection
type ArrayCollection struct {
	elements []any
}

var _ Collection = (*ArrayCollection)(nil)

// NewArrayCollection 创建集合
func NewArrayCollection(elements ...any) *ArrayCollection {
	return &ArrayCollection{elements: slices.Clone(elements)}
}

func (c *ArrayCollection) Add(element any) {
	c.elements = append(c.elements, element)
}

func (c *ArrayCollection) Elements() []any {
	return slices.Clone(c.elements)
}

func (c *ArrayCollection) Len() int {
	return len(c.elements)
}

func identityOf(obj any) (identity, bool) {
	if obj == nil {
		return identity{}, false
	}
	rv := reflect.ValueOf(obj)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		if rv.IsNil() {
			return identity{}, false
		}
		return identity{typ: rv.Type(), ptr: rv.Pointer()}, true
	}
	return identity{}, false
}
