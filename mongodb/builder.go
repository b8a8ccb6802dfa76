package mongodb

import (
	"context"
	"errors"
	"fmt"
)

// Builder MongoDB 客户端配置构建器
type Builder struct {
	configs map[string]MongoOptions
	order   []string
	errors  []error
}

// NewBuilder 创建构建器
func NewBuilder() *Builder {
	return &Builder{
		configs: make(map[string]MongoOptions),
	}
}

// Add 添加客户端配置
func (b *Builder) Add(name string, uri string, configure func(*MongoOptions)) *Builder {
	if _, exists := b.configs[name]; exists {
		b.errors = append(b.errors, fmt.Errorf("mongo client '%s' already configured", name))
		return b
	}

	opts := NewDefaultOptions(name, uri)
	if configure != nil {
		configure(opts)
	}
	if err := opts.Validate(); err != nil {
		b.errors = append(b.errors, fmt.Errorf("invalid mongo configuration for '%s': %w", name, err))
		return b
	}

	b.configs[name] = *opts
	b.order = append(b.order, name)
	return b
}

// Build 创建所有客户端，没有配置时返回 nil
func (b *Builder) Build() (*MongoFactory, error) {
	if len(b.errors) > 0 {
		return nil, fmt.Errorf("mongo configuration errors: %w", errors.Join(b.errors...))
	}
	if len(b.configs) == 0 {
		return nil, nil
	}

	factory := NewMongoFactory()
	for _, name := range b.order {
		if err := factory.Connect(b.configs[name]); err != nil {
			factory.Close(context.Background())
			return nil, err
		}
	}
	return factory, nil
}
