package session

import (
	"maps"
	"sync"

	"github.com/gocrud/objects/object"
)

// Container 一个会话的组件容器
// session 作用域的组件在会话内只构建一次，其他作用域交给 Manager
type Container struct {
	id        string
	manager   *object.Manager
	mu        sync.Mutex
	instances map[string]any
}

var _ object.ScopeHandler = (*Container)(nil)

// NewContainer 创建会话容器
func NewContainer(id string, m *object.Manager) *Container {
	return &Container{
		id:        id,
		manager:   m,
		instances: make(map[string]any),
	}
}

// ID 会话 ID
func (c *Container) ID() string {
	return c.id
}

// Get 获取组件实例
func (c *Container) Get(componentName string, args ...any) (any, error) {
	return c.manager.GetWith(map[object.Scope]object.ScopeHandler{object.ScopeSession: c}, componentName, args...)
}

// Resolve 实现 object.ScopeHandler
// 构建期间不持有锁，依赖的其他 session 组件会再次进入这里
func (c *Container) Resolve(componentName string, create func() (any, error)) (any, error) {
	c.mu.Lock()
	instance, ok := c.instances[componentName]
	c.mu.Unlock()
	if ok {
		return instance, nil
	}

	instance, err := create()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.instances[componentName]; ok {
		return existing, nil
	}
	c.instances[componentName] = instance
	return instance, nil
}

// Instances 返回会话内已构建的组件
func (c *Container) Instances() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.instances)
}

// restore 放入从存储恢复的实例
func (c *Container) restore(componentName string, instance any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.instances[componentName] = instance
}
