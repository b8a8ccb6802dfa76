package object

import (
	"fmt"

	"github.com/gocrud/objects/reflection"
)

// autowireParameter 为未提供的构造参数推导配置参数
// 优先级：默认值 > 按类型引用 > nil > 失败
func autowireParameter(p reflection.Parameter) (*ConfigurationArgument, error) {
	switch {
	case p.Optional:
		return NewConfigurationArgument(p.Position, p.DefaultValue, StraightValue), nil
	case p.ClassName != "":
		return NewConfigurationArgument(p.Position, p.ClassName, Reference), nil
	case p.AllowsNull:
		return NewConfigurationArgument(p.Position, nil, StraightValue), nil
	}
	return nil, fmt.Errorf("无法自动装配第 %d 个参数 %s (%s)", p.Position, p.Name, p.Type)
}

// autowireSetter 为注入 setter 推导引用属性
// 返回 nil 表示跳过；必需 setter 的类型无法确定时返回错误
func autowireSetter(s reflection.Setter) (*ConfigurationProperty, error) {
	if s.ClassName == "" {
		if s.Required {
			return nil, fmt.Errorf("必需的注入 setter %s 的参数类型 (%s) 无法确定", s.PropertyName, s.Type)
		}
		return nil, nil
	}
	return NewConfigurationProperty(s.PropertyName, s.ClassName, Reference), nil
}
