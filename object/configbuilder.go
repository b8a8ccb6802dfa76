package object

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/gocrud/objects/logging"
)

// ComponentSettings 单个组件的原始配置（Objects.yaml 中的一项）
//
//	Service:
//	  className: MyService
//	  scope: prototype
//	  arguments:
//	    1: {object: Logger}
//	    2: {value: 3}
//	  properties:
//	    cache: {object: Cache}
type ComponentSettings struct {
	ClassName                     string                   `json:"className"`
	Scope                         string                   `json:"scope" validate:"omitempty,oneof=prototype singleton session"`
	Autowiring                    string                   `json:"autowiring" validate:"omitempty,oneof=on off"`
	LifecycleInitializationMethod *string                  `json:"lifecycleInitializationMethod"`
	Arguments                     map[string]ValueSettings `json:"arguments" validate:"dive,keys,numeric,endkeys"`
	Properties                    map[string]ValueSettings `json:"properties" validate:"dive,keys,required,endkeys"`
}

// ValueSettings 参数或属性的值，value 和 object 只能二选一
type ValueSettings struct {
	Value  any    `json:"value"`
	Object string `json:"object" validate:"excluded_with=Value"`
}

// ConfigurationBuilder 把原始配置转换成组件配置
type ConfigurationBuilder struct {
	validate *validator.Validate
}

// NewConfigurationBuilder 创建配置构建器
func NewConfigurationBuilder() *ConfigurationBuilder {
	return &ConfigurationBuilder{validate: validator.New()}
}

// Build 解析 raw（组件名 → 原始配置），覆盖到 existing 的副本上
// 只返回 raw 中出现的组件
func (b *ConfigurationBuilder) Build(raw map[string]any, hint string, existing map[string]*Configuration) (map[string]*Configuration, error) {
	result := make(map[string]*Configuration, len(raw))
	for _, name := range slices.Sorted(maps.Keys(raw)) {
		settings, err := b.decode(name, raw[name])
		if err != nil {
			return nil, err
		}

		var cfg *Configuration
		if prev, ok := existing[name]; ok {
			cfg = prev.Clone()
		} else {
			cfg = NewConfiguration(name, settings.ClassName)
		}
		if err := apply(cfg, settings); err != nil {
			return nil, fmt.Errorf("object: 组件 %s 的配置无效: %w", name, err)
		}
		cfg.SetConfigurationSourceHint(hint)
		result[name] = cfg
	}
	return result, nil
}

func (b *ConfigurationBuilder) decode(name string, raw any) (*ComponentSettings, error) {
	settings := &ComponentSettings{}
	if raw != nil {
		data, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("object: 组件 %s 的配置无法编码: %w", name, err)
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(settings); err != nil {
			return nil, fmt.Errorf("object: 组件 %s 的配置格式错误: %w", name, err)
		}
	}
	if err := b.validate.Struct(settings); err != nil {
		return nil, fmt.Errorf("object: 组件 %s 的配置无效: %w", name, err)
	}
	return settings, nil
}

func apply(cfg *Configuration, settings *ComponentSettings) error {
	if settings.ClassName != "" {
		cfg.SetClassName(settings.ClassName)
	}
	if settings.Scope != "" {
		cfg.SetScope(Scope(settings.Scope))
	}
	if settings.Autowiring != "" {
		cfg.SetAutowiringMode(AutowiringMode(settings.Autowiring))
	}
	if settings.LifecycleInitializationMethod != nil {
		cfg.SetLifecycleInitializationMethod(*settings.LifecycleInitializationMethod)
	}

	for key, v := range settings.Arguments {
		index, err := strconv.Atoi(key)
		if err != nil || index < 1 {
			return &InvalidArgumentError{Argument: key, Reason: "参数位置必须是从 1 开始的整数"}
		}
		value, typ := v.resolve()
		if err := cfg.SetArgument(NewConfigurationArgument(index, value, typ)); err != nil {
			return err
		}
	}
	for name, v := range settings.Properties {
		value, typ := v.resolve()
		if err := cfg.SetProperty(NewConfigurationProperty(name, value, typ)); err != nil {
			return err
		}
	}
	return nil
}

func (v ValueSettings) resolve() (any, ValueType) {
	if v.Object != "" {
		return v.Object, Reference
	}
	return plain(v.Value), StraightValue
}

// plain 把 json.Number 转成 int64 或 float64
func plain(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case []any:
		for i, item := range t {
			t[i] = plain(item)
		}
		return t
	case map[string]any:
		for k, item := range t {
			t[k] = plain(item)
		}
		return t
	}
	return v
}

// LoadSettings 从原始配置加载组件配置并覆盖已有配置
func (m *Manager) LoadSettings(raw map[string]any, hint string) error {
	m.mu.RLock()
	existing := make(map[string]*Configuration, len(m.configurations))
	for name, cfg := range m.configurations {
		existing[name] = cfg.Clone()
	}
	m.mu.RUnlock()

	configurations, err := NewConfigurationBuilder().Build(raw, hint, existing)
	if err != nil {
		return err
	}
	if err := m.SetConfigurations(configurations); err != nil {
		return err
	}
	m.logger.Info("Component configurations loaded",
		logging.String("source", hint),
		logging.Any("components", len(configurations)))
	return nil
}
