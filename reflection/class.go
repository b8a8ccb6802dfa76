package reflection

import (
	"fmt"
	"reflect"
)

// Parameter 构造函数参数描述
type Parameter struct {
	// Position 从 1 开始
	Position int
	Name     string
	Type     reflect.Type
	// ClassName 参数声明的类/接口名，无法确定时为空
	ClassName    string
	Optional     bool
	DefaultValue any
	AllowsNull   bool
}

// Setter 注入 setter 描述
type Setter struct {
	PropertyName string
	// ClassName 参数声明的类/接口名，无法确定时为空
	ClassName string
	Type      reflect.Type
	Required  bool
	inject    func(target, value any) error
}

// Inject 调用 setter
func (s Setter) Inject(target, value any) error {
	return s.inject(target, value)
}

// Property 类属性描述（导出字段）
type Property struct {
	Name      string
	Type      reflect.Type
	Transient bool
	index     []int
}

// Class 注册到反射服务中的类
type Class struct {
	name        string
	typ         reflect.Type
	abstract    bool
	scope       string
	entity      bool
	valueObject bool

	ctor       reflect.Value
	names      []string
	defaults   map[int]any
	setters    []setterSpec
	properties []Property

	registry *Registry
}

type setterSpec struct {
	property string
	typ      reflect.Type
	required bool
	inject   func(target, value any) error
}

func (c *Class) Name() string { return c.name }

func (c *Class) Type() reflect.Type { return c.typ }

// IsAbstract 接口类型注册的类是抽象的
func (c *Class) IsAbstract() bool { return c.abstract }

// Scope 类级别的作用域注解，未声明时为空
func (c *Class) Scope() string { return c.scope }

func (c *Class) IsEntity() bool { return c.entity }

func (c *Class) IsValueObject() bool { return c.valueObject }

// ConstructorParameters 返回构造函数参数列表
// ClassName 在调用时解析，这样后注册的类也能被识别
func (c *Class) ConstructorParameters() []Parameter {
	if !c.ctor.IsValid() {
		return nil
	}
	ft := c.ctor.Type()
	params := make([]Parameter, 0, ft.NumIn())
	for i := 0; i < ft.NumIn(); i++ {
		pt := ft.In(i)
		p := Parameter{
			Position:   i + 1,
			Name:       fmt.Sprintf("arg%d", i+1),
			Type:       pt,
			ClassName:  c.registry.classNameOf(pt),
			AllowsNull: nullable(pt),
		}
		if i < len(c.names) {
			p.Name = c.names[i]
		}
		if v, ok := c.defaults[i+1]; ok {
			p.Optional = true
			p.DefaultValue = v
		}
		params = append(params, p)
	}
	return params
}

// InjectionSetters 返回注入 setter 列表
func (c *Class) InjectionSetters() []Setter {
	setters := make([]Setter, 0, len(c.setters))
	for _, s := range c.setters {
		setters = append(setters, Setter{
			PropertyName: s.property,
			ClassName:    c.registry.classNameOf(s.typ),
			Type:         s.typ,
			Required:     s.required,
			inject:       s.inject,
		})
	}
	return setters
}

// InjectionSetter 按属性名查找注入 setter
func (c *Class) InjectionSetter(property string) (Setter, bool) {
	for _, s := range c.InjectionSetters() {
		if s.PropertyName == property {
			return s, true
		}
	}
	return Setter{}, false
}

// Properties 返回声明的属性
func (c *Class) Properties() []Property {
	return c.properties
}

// Property 按名称查找属性
func (c *Class) Property(name string) (Property, bool) {
	for _, p := range c.properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// IsPropertyTransient 属性是否被标记为 transient
func (c *Class) IsPropertyTransient(name string) bool {
	p, ok := c.Property(name)
	return ok && p.Transient
}

// NewInstance 分配一个空实例，不调用构造函数
func (c *Class) NewInstance() (any, error) {
	if c.abstract {
		return nil, fmt.Errorf("reflection: 类 %s 是抽象的，无法实例化", c.name)
	}
	if c.typ.Kind() == reflect.Ptr {
		return reflect.New(c.typ.Elem()).Interface(), nil
	}
	return reflect.New(c.typ).Elem().Interface(), nil
}

// GetProperty 读取对象属性
func (c *Class) GetProperty(obj any, name string) (any, error) {
	p, ok := c.Property(name)
	if !ok {
		return nil, fmt.Errorf("reflection: 类 %s 没有属性 %s", c.name, name)
	}
	v, err := structValue(obj)
	if err != nil {
		return nil, err
	}
	return v.FieldByIndex(p.index).Interface(), nil
}

// SetProperty 写入对象属性
func (c *Class) SetProperty(obj any, name string, value any) error {
	p, ok := c.Property(name)
	if !ok {
		return fmt.Errorf("reflection: 类 %s 没有属性 %s", c.name, name)
	}
	v, err := structValue(obj)
	if err != nil {
		return err
	}
	arg, err := Assignable(value, p.Type)
	if err != nil {
		return fmt.Errorf("reflection: 属性 %s.%s: %w", c.name, name, err)
	}
	v.FieldByIndex(p.index).Set(arg)
	return nil
}

// Method 查找无参方法（func() 或 func() error）
func (c *Class) Method(obj any, name string) (func() error, bool) {
	m := reflect.ValueOf(obj).MethodByName(name)
	if !m.IsValid() || m.Type().NumIn() != 0 {
		return nil, false
	}
	switch m.Type().NumOut() {
	case 0:
		return func() error {
			m.Call(nil)
			return nil
		}, true
	case 1:
		if m.Type().Out(0) != errorType {
			return nil, false
		}
		return func() error {
			if out := m.Call(nil)[0]; !out.IsNil() {
				return out.Interface().(error)
			}
			return nil
		}, true
	}
	return nil, false
}

// Construct 调用构造函数创建实例
// args 为按位置排列的参数，缺失或 nil 的可空参数使用零值
func (c *Class) Construct(args []any) (any, error) {
	if c.abstract {
		return nil, fmt.Errorf("reflection: 类 %s 是抽象的，无法实例化", c.name)
	}
	if !c.ctor.IsValid() {
		for i, a := range args {
			if a != nil {
				return nil, fmt.Errorf("reflection: 类 %s 没有构造函数，但提供了第 %d 个参数", c.name, i+1)
			}
		}
		return c.NewInstance()
	}

	ft := c.ctor.Type()
	if len(args) > ft.NumIn() {
		return nil, fmt.Errorf("reflection: 类 %s 的构造函数需要 %d 个参数，提供了 %d 个", c.name, ft.NumIn(), len(args))
	}
	in := make([]reflect.Value, ft.NumIn())
	for i := range in {
		pt := ft.In(i)
		var arg any
		if i < len(args) {
			arg = args[i]
		}
		if arg == nil && !nullable(pt) {
			return nil, fmt.Errorf("reflection: 类 %s 的构造函数缺少第 %d 个参数 (%s)", c.name, i+1, pt)
		}
		v, err := Assignable(arg, pt)
		if err != nil {
			return nil, fmt.Errorf("reflection: 类 %s 的构造函数第 %d 个参数: %w", c.name, i+1, err)
		}
		in[i] = v
	}
	return invoke(c.ctor, in)
}

func structValue(obj any) (reflect.Value, error) {
	v := reflect.ValueOf(obj)
	if v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("reflection: 需要结构体指针，实际为 %T", obj)
	}
	return v.Elem(), nil
}

func nullable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return true
	}
	return false
}
