package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Settings 应用配置（按路径读取，支持 "a:b:c" 或 "a.b.c"）
type Settings interface {
	// Get 获取配置值的字符串形式，不存在时为空
	Get(key string) string
	// GetWithDefault 获取配置值，如果不存在则返回默认值
	GetWithDefault(key, defaultValue string) string
	GetInt(key string) (int, error)
	GetBool(key string) (bool, error)
	// Value 获取原始值
	Value(key string) (any, bool)
	// Section 获取配置节，不存在时返回空配置
	Section(key string) Settings
	// Bind 绑定配置到结构体
	Bind(key string, target any) error
	// All 获取全部配置的副本
	All() map[string]any
}

// SettingsSource 配置源接口
type SettingsSource interface {
	Load() (map[string]any, error)
	Name() string
}

// SettingsBuilder 配置构建器，后添加的配置源覆盖前面的
type SettingsBuilder struct {
	sources []SettingsSource
	mu      sync.RWMutex
}

// NewSettingsBuilder 创建配置构建器
func NewSettingsBuilder() *SettingsBuilder {
	return &SettingsBuilder{}
}

// Add 添加配置源
func (b *SettingsBuilder) Add(source SettingsSource) *SettingsBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sources = append(b.sources, source)
	return b
}

// AddJsonFile 添加 JSON 文件配置源
func (b *SettingsBuilder) AddJsonFile(path string, optional ...bool) *SettingsBuilder {
	return b.Add(&JsonFileSource{Path: path, Optional: len(optional) > 0 && optional[0]})
}

// AddYamlFile 添加 YAML 文件配置源
func (b *SettingsBuilder) AddYamlFile(path string, optional ...bool) *SettingsBuilder {
	return b.Add(&YamlFileSource{Path: path, Optional: len(optional) > 0 && optional[0]})
}

// AddEnvironmentVariables 添加环境变量配置源
func (b *SettingsBuilder) AddEnvironmentVariables(prefix string) *SettingsBuilder {
	return b.Add(&EnvironmentVariableSource{Prefix: prefix})
}

// AddInMemory 添加内存配置源
func (b *SettingsBuilder) AddInMemory(data map[string]any) *SettingsBuilder {
	return b.Add(&InMemorySource{Data: data})
}

// AddEtcd 添加 etcd 配置源
func (b *SettingsBuilder) AddEtcd(opts EtcdOptions) *SettingsBuilder {
	return b.Add(&EtcdSource{Options: opts.withDefaults()})
}

// Build 按顺序加载所有配置源并合并
func (b *SettingsBuilder) Build() (Settings, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data := make(map[string]any)
	for _, source := range b.sources {
		loaded, err := source.Load()
		if err != nil {
			return nil, fmt.Errorf("config: failed to load source %s: %w", source.Name(), err)
		}
		mergeMaps(data, loaded)
	}
	return &settings{data: data}, nil
}

// Empty 空配置
func Empty() Settings {
	return &settings{data: make(map[string]any)}
}

type settings struct {
	data map[string]any
	mu   sync.RWMutex
}

func (s *settings) Value(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v := getByPath(s.data, key)
	return v, v != nil
}

func (s *settings) Get(key string) string {
	v, ok := s.Value(key)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func (s *settings) GetWithDefault(key, defaultValue string) string {
	if v := s.Get(key); v != "" {
		return v
	}
	return defaultValue
}

func (s *settings) GetInt(key string) (int, error) {
	v, ok := s.Value(key)
	if !ok {
		return 0, fmt.Errorf("config: key %s not found", key)
	}
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case uint64:
		return int(t), nil
	case float64:
		return int(t), nil
	case string:
		return strconv.Atoi(t)
	}
	return 0, fmt.Errorf("config: cannot convert %v to int", v)
}

func (s *settings) GetBool(key string) (bool, error) {
	v, ok := s.Value(key)
	if !ok {
		return false, fmt.Errorf("config: key %s not found", key)
	}
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		return strconv.ParseBool(t)
	}
	return false, fmt.Errorf("config: cannot convert %v to bool", v)
}

func (s *settings) Section(key string) Settings {
	v, _ := s.Value(key)
	if m, ok := v.(map[string]any); ok {
		copied := make(map[string]any, len(m))
		mergeMaps(copied, m)
		return &settings{data: copied}
	}
	return Empty()
}

// Bind 使用 JSON 序列化/反序列化进行绑定
func (s *settings) Bind(key string, target any) error {
	v, ok := s.Value(key)
	if !ok {
		return fmt.Errorf("config: key %s not found", key)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("config: failed to marshal %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("config: failed to bind %s: %w", key, err)
	}
	return nil
}

func (s *settings) All() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]any, len(s.data))
	mergeMaps(result, s.data)
	return result
}

// Load 绑定指定节的配置到 T，section 为空时绑定全部
func Load[T any](s Settings, section string) (T, error) {
	var t T
	err := s.Bind(section, &t)
	return t, err
}

func getByPath(data map[string]any, path string) any {
	if path == "" {
		return data
	}
	parts := strings.Split(strings.ReplaceAll(path, ":", "."), ".")

	var current any = data
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[part]
	}
	return current
}

// mergeMaps 深度合并，嵌套 map 会被复制而不是共享
func mergeMaps(dst, src map[string]any) {
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]any)
		if !srcIsMap {
			dst[k] = v
			continue
		}
		dstMap, ok := dst[k].(map[string]any)
		if !ok {
			dstMap = make(map[string]any, len(srcMap))
			dst[k] = dstMap
		}
		mergeMaps(dstMap, srcMap)
	}
}

// setNestedValue 按 ":" 分隔的路径写入值，字符串会尝试转换为数字或布尔值
func setNestedValue(data map[string]any, path string, value any) {
	parts := strings.Split(path, ":")
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			if _, exists := current[part]; exists {
				return
			}
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}

	if str, ok := value.(string); ok {
		if i, err := strconv.Atoi(str); err == nil {
			value = i
		} else if f, err := strconv.ParseFloat(str, 64); err == nil {
			value = f
		} else if b, err := strconv.ParseBool(str); err == nil {
			value = b
		}
	}
	current[parts[len(parts)-1]] = value
}

// normalize 把 YAML 解析出的 map[any]any 转成 map[string]any
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = normalize(item)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case []any:
		for i, item := range t {
			t[i] = normalize(item)
		}
		return t
	}
	return v
}
