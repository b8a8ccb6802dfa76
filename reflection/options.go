package reflection

import (
	"fmt"
	"reflect"
)

// Option 类注册选项
type Option func(c *Class) error

// WithScope 声明类级别的作用域注解
func WithScope(scope string) Option {
	return func(c *Class) error {
		c.scope = scope
		return nil
	}
}

// AsEntity 标记为持久化实体
func AsEntity() Option {
	return func(c *Class) error {
		c.entity = true
		return nil
	}
}

// AsValueObject 标记为值对象
func AsValueObject() Option {
	return func(c *Class) error {
		c.valueObject = true
		return nil
	}
}

// WithDefault 为构造函数第 position 个参数（从 1 开始）声明默认值
func WithDefault(position int, value any) Option {
	return func(c *Class) error {
		if !c.ctor.IsValid() || position < 1 || position > c.ctor.Type().NumIn() {
			return fmt.Errorf("reflection: 类 %s 没有第 %d 个构造参数", c.name, position)
		}
		if c.defaults == nil {
			c.defaults = make(map[int]any)
		}
		c.defaults[position] = value
		return nil
	}
}

// WithParameterNames 为构造函数参数命名，仅用于诊断
func WithParameterNames(names ...string) Option {
	return func(c *Class) error {
		c.names = names
		return nil
	}
}

// WithInjection 注册注入 setter
//
// 示例：
//
//	reflection.WithInjection("logger", func(s *Service, l *Logger) { s.logger = l })
func WithInjection[T, V any](property string, fn func(T, V)) Option {
	return injection(property, fn, false)
}

// WithRequiredInjection 注册必需的注入 setter
// 参数类型无法确定时构建失败
func WithRequiredInjection[T, V any](property string, fn func(T, V)) Option {
	return injection(property, fn, true)
}

func injection[T, V any](property string, fn func(T, V), required bool) Option {
	return func(c *Class) error {
		if property == "" || fn == nil {
			return fmt.Errorf("reflection: 类 %s 的注入 setter 无效", c.name)
		}
		c.setters = append(c.setters, setterSpec{
			property: property,
			typ:      TypeOf[V](),
			required: required,
			inject: func(target, value any) error {
				t, ok := target.(T)
				if !ok {
					return fmt.Errorf("reflection: setter %s 的目标类型为 %T，需要 %s", property, target, TypeOf[T]())
				}
				var v V
				if value != nil {
					cv, ok := value.(V)
					if !ok {
						return fmt.Errorf("reflection: setter %s 的参数类型为 %T，需要 %s", property, value, TypeOf[V]())
					}
					v = cv
				}
				fn(t, v)
				return nil
			},
		})
		return nil
	}
}

// TypeOf 获取类型 T 的 reflect.Type
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
