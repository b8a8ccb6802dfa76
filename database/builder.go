package database

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Builder 数据库配置构建器
type Builder struct {
	configs     map[string]DatabaseOptions
	order       []string
	persistence string
	errors      []error
}

// NewBuilder 创建构建器
func NewBuilder() *Builder {
	return &Builder{
		configs: make(map[string]DatabaseOptions),
	}
}

// Add 添加数据库配置
// name: 实例名称
// dialector: GORM 驱动 (e.g. sqlite.Open(dsn))
// configure: 可选的配置函数
func (b *Builder) Add(name string, dialector gorm.Dialector, configure func(*DatabaseOptions)) *Builder {
	if _, exists := b.configs[name]; exists {
		b.errors = append(b.errors, fmt.Errorf("database '%s' already configured", name))
		return b
	}

	opts := NewDefaultOptions(name, dialector)
	if configure != nil {
		configure(opts)
	}
	if err := opts.Validate(); err != nil {
		b.errors = append(b.errors, fmt.Errorf("invalid configuration for '%s': %w", name, err))
		return b
	}

	b.configs[name] = *opts
	b.order = append(b.order, name)
	return b
}

// UsePersistence 指定序列化器使用哪个数据库查找实体
func (b *Builder) UsePersistence(name string) *Builder {
	b.persistence = name
	return b
}

// Build 打开所有数据库，没有配置时返回 nil
func (b *Builder) Build() (*DatabaseFactory, error) {
	if len(b.errors) > 0 {
		return nil, fmt.Errorf("database configuration errors: %w", errors.Join(b.errors...))
	}
	if len(b.configs) == 0 {
		return nil, nil
	}
	if b.persistence != "" {
		if _, ok := b.configs[b.persistence]; !ok {
			return nil, fmt.Errorf("persistence database '%s' is not configured", b.persistence)
		}
	}

	factory := NewDatabaseFactory()
	for _, name := range b.order {
		if err := factory.Open(b.configs[name]); err != nil {
			factory.Close()
			return nil, err
		}
	}
	return factory, nil
}
