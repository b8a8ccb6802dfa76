package object

import (
	"maps"
	"slices"
)

// Scope 组件作用域
type Scope string

const (
	// ScopeUnresolved 未指定，回退到类注解，默认 singleton
	ScopeUnresolved Scope = ""
	ScopePrototype  Scope = "prototype"
	ScopeSingleton  Scope = "singleton"
	ScopeSession    Scope = "session"
)

// Valid 是否为已知的作用域
func (s Scope) Valid() bool {
	switch s {
	case ScopePrototype, ScopeSingleton, ScopeSession:
		return true
	}
	return false
}

// AutowiringMode 自动装配模式
type AutowiringMode string

const (
	AutowiringOn  AutowiringMode = "on"
	AutowiringOff AutowiringMode = "off"
)

// DefaultLifecycleInitializationMethod 默认的生命周期初始化方法名
const DefaultLifecycleInitializationMethod = "InitializeComponent"

// Configuration 描述如何构建一个命名组件
// 从 Manager 取出的总是副本，修改后需通过 SetConfiguration 写回
type Configuration struct {
	componentName                 string
	className                     string
	scope                         Scope
	arguments                     map[int]*ConfigurationArgument
	properties                    map[string]*ConfigurationProperty
	autowiring                    AutowiringMode
	lifecycleInitializationMethod string
	sourceHint                    string
}

// NewConfiguration 创建组件配置，className 为空时与组件名相同
func NewConfiguration(componentName, className string) *Configuration {
	if className == "" {
		className = componentName
	}
	return &Configuration{
		componentName:                 componentName,
		className:                     className,
		arguments:                     make(map[int]*ConfigurationArgument),
		properties:                    make(map[string]*ConfigurationProperty),
		autowiring:                    AutowiringOn,
		lifecycleInitializationMethod: DefaultLifecycleInitializationMethod,
	}
}

// ComponentName 组件名，创建后不可修改
func (c *Configuration) ComponentName() string {
	return c.componentName
}

func (c *Configuration) ClassName() string {
	return c.className
}

func (c *Configuration) SetClassName(className string) {
	c.className = className
}

func (c *Configuration) Scope() Scope {
	return c.scope
}

func (c *Configuration) SetScope(scope Scope) {
	c.scope = scope
}

// Arguments 返回构造参数（按位置索引）的副本
func (c *Configuration) Arguments() map[int]*ConfigurationArgument {
	return maps.Clone(c.arguments)
}

// SortedArguments 按位置排序的构造参数
func (c *Configuration) SortedArguments() []*ConfigurationArgument {
	positions := slices.Sorted(maps.Keys(c.arguments))
	args := make([]*ConfigurationArgument, 0, len(positions))
	for _, pos := range positions {
		args = append(args, c.arguments[pos])
	}
	return args
}

// Argument 获取指定位置的构造参数
func (c *Configuration) Argument(index int) (*ConfigurationArgument, bool) {
	arg, ok := c.arguments[index]
	return arg, ok
}

// SetArguments 替换全部构造参数
func (c *Configuration) SetArguments(args []*ConfigurationArgument) error {
	next := make(map[int]*ConfigurationArgument, len(args))
	for _, arg := range args {
		if err := validateArgument(arg); err != nil {
			return err
		}
		next[arg.Index()] = arg
	}
	c.arguments = next
	return nil
}

// SetArgument 设置单个构造参数，同一位置会被覆盖
func (c *Configuration) SetArgument(arg *ConfigurationArgument) error {
	if err := validateArgument(arg); err != nil {
		return err
	}
	c.arguments[arg.Index()] = arg
	return nil
}

// Properties 返回注入属性的副本
func (c *Configuration) Properties() map[string]*ConfigurationProperty {
	return maps.Clone(c.properties)
}

// Property 获取注入属性
func (c *Configuration) Property(name string) (*ConfigurationProperty, bool) {
	prop, ok := c.properties[name]
	return prop, ok
}

// SetProperties 替换全部注入属性
func (c *Configuration) SetProperties(props []*ConfigurationProperty) error {
	next := make(map[string]*ConfigurationProperty, len(props))
	for _, prop := range props {
		if err := validateProperty(prop); err != nil {
			return err
		}
		next[prop.Name()] = prop
	}
	c.properties = next
	return nil
}

// SetProperty 设置单个注入属性
func (c *Configuration) SetProperty(prop *ConfigurationProperty) error {
	if err := validateProperty(prop); err != nil {
		return err
	}
	c.properties[prop.Name()] = prop
	return nil
}

func (c *Configuration) AutowiringMode() AutowiringMode {
	return c.autowiring
}

func (c *Configuration) SetAutowiringMode(mode AutowiringMode) {
	c.autowiring = mode
}

// LifecycleInitializationMethod 构建完成后调用的方法名
func (c *Configuration) LifecycleInitializationMethod() string {
	return c.lifecycleInitializationMethod
}

func (c *Configuration) SetLifecycleInitializationMethod(method string) {
	c.lifecycleInitializationMethod = method
}

// ConfigurationSourceHint 配置来源，仅用于诊断
func (c *Configuration) ConfigurationSourceHint() string {
	return c.sourceHint
}

func (c *Configuration) SetConfigurationSourceHint(hint string) {
	c.sourceHint = hint
}

// Clone 复制配置，参数和属性本身不可变，可以共享
func (c *Configuration) Clone() *Configuration {
	clone := *c
	clone.arguments = maps.Clone(c.arguments)
	clone.properties = maps.Clone(c.properties)
	if clone.arguments == nil {
		clone.arguments = make(map[int]*ConfigurationArgument)
	}
	if clone.properties == nil {
		clone.properties = make(map[string]*ConfigurationProperty)
	}
	return &clone
}

func validateArgument(arg *ConfigurationArgument) error {
	if arg == nil {
		return &InvalidArgumentError{Argument: "argument", Reason: "不能为 nil"}
	}
	if arg.Index() < 1 {
		return &InvalidArgumentError{Argument: "argument", Reason: "位置必须从 1 开始"}
	}
	return nil
}

func validateProperty(prop *ConfigurationProperty) error {
	if prop == nil {
		return &InvalidArgumentError{Argument: "property", Reason: "不能为 nil"}
	}
	if prop.Name() == "" {
		return &InvalidArgumentError{Argument: "property", Reason: "名称不能为空"}
	}
	return nil
}
