package object

import "fmt"

// ValueType 参数/属性值的类型
type ValueType int

const (
	// StraightValue 直接值（标量、数组或 nil）
	StraightValue ValueType = iota
	// Reference 对另一个组件的引用，值为组件名
	Reference
)

func (t ValueType) String() string {
	switch t {
	case StraightValue:
		return "straightValue"
	case Reference:
		return "reference"
	default:
		return fmt.Sprintf("ValueType(%d)", int(t))
	}
}

// ConfigurationArgument 构造函数参数，位置从 1 开始
type ConfigurationArgument struct {
	index int
	value any
	typ   ValueType
}

// NewConfigurationArgument 创建构造函数参数
func NewConfigurationArgument(index int, value any, typ ValueType) *ConfigurationArgument {
	return &ConfigurationArgument{index: index, value: value, typ: typ}
}

func (a *ConfigurationArgument) Index() int      { return a.index }
func (a *ConfigurationArgument) Value() any      { return a.value }
func (a *ConfigurationArgument) Type() ValueType { return a.typ }

// ReferenceName 引用的组件名
func (a *ConfigurationArgument) ReferenceName() (string, bool) {
	return referenceName(a.typ, a.value)
}

// ConfigurationProperty 注入属性
type ConfigurationProperty struct {
	name  string
	value any
	typ   ValueType
}

// NewConfigurationProperty 创建注入属性
func NewConfigurationProperty(name string, value any, typ ValueType) *ConfigurationProperty {
	return &ConfigurationProperty{name: name, value: value, typ: typ}
}

func (p *ConfigurationProperty) Name() string    { return p.name }
func (p *ConfigurationProperty) Value() any      { return p.value }
func (p *ConfigurationProperty) Type() ValueType { return p.typ }

// ReferenceName 引用的组件名
func (p *ConfigurationProperty) ReferenceName() (string, bool) {
	return referenceName(p.typ, p.value)
}

func referenceName(typ ValueType, value any) (string, bool) {
	if typ != Reference {
		return "", false
	}
	name, ok := value.(string)
	return name, ok && name != ""
}
