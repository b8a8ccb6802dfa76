package core

import (
	"reflect"
	"sync"
)

// FeatureCollection 按类型存放构建时特性
type FeatureCollection struct {
	features sync.Map
}

// Set 注册一个特性，同类型的特性会被覆盖
func (fc *FeatureCollection) Set(feature any) {
	fc.features.Store(reflect.TypeOf(feature), feature)
}

// Get 获取一个特性
func (fc *FeatureCollection) Get(typ reflect.Type) (any, bool) {
	return fc.features.Load(typ)
}

// GetFeature 从 Runtime 获取类型为 T 的特性
func GetFeature[T any](rt *Runtime) (T, bool) {
	var zero T
	if val, ok := rt.Features.Get(reflect.TypeOf((*T)(nil)).Elem()); ok {
		return val.(T), true
	}
	return zero, false
}
