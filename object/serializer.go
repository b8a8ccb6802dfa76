package object

import (
	"context"
	"encoding"
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/gocrud/objects/collection"
	"github.com/gocrud/objects/logging"
	"github.com/gocrud/objects/persistence"
	"github.com/gocrud/objects/reflection"
	"github.com/google/uuid"
)

// PropertyType 序列化属性的类型标签
type PropertyType string

const (
	TypeSimple            PropertyType = "simple"
	TypeArray             PropertyType = "array"
	TypeObject            PropertyType = "object"
	TypeArrayObject       PropertyType = "ArrayObject"
	TypeObjectStorage     PropertyType = "SplObjectStorage"
	TypeCollection        PropertyType = "Collection"
	TypePersistenceObject PropertyType = "persistenceObject"
)

const (
	arrayList = "list"
	arrayMap  = "map"
)

// Graph 扁平的对象图：身份键 -> 记录
type Graph map[string]*Record

// Record 一个对象的类名和属性
type Record struct {
	ClassName  string                    `json:"className"`
	Properties map[string]*PropertyValue `json:"properties"`
}

// PropertyValue 带类型标签的属性值
//   - simple: Value 为原值
//   - object: Value 为身份键
//   - persistenceObject: Value 为 "<类名>:<标识>"
//   - array / ArrayObject: Entries，array 另有 Kind (list|map)
//   - SplObjectStorage / Collection: Members 为身份键，Collection 另有 ClassName
type PropertyValue struct {
	Type      PropertyType  `json:"type"`
	Value     any           `json:"value"`
	Kind      string        `json:"kind,omitempty"`
	Entries   []*ArrayEntry `json:"entries,omitempty"`
	Members   []string      `json:"members,omitempty"`
	ClassName string        `json:"className,omitempty"`
}

// ArrayEntry 数组中的一项
type ArrayEntry struct {
	Key   string         `json:"key"`
	Value *PropertyValue `json:"value"`
}

// Serializer 对象图序列化器
type Serializer struct {
	manager     *Manager
	reflection  reflection.Service
	persistence persistence.Manager
	logger      logging.Logger
	metrics     Metrics
}

// SerializerOption 序列化器选项
type SerializerOption func(s *Serializer)

// WithPersistence 设置持久化能力，已持久化的实体和值对象只保存标识
func WithPersistence(p persistence.Manager) SerializerOption {
	return func(s *Serializer) {
		s.persistence = p
	}
}

// NewSerializer 创建序列化器
func NewSerializer(m *Manager, opts ...SerializerOption) *Serializer {
	s := &Serializer{
		manager:    m,
		reflection: m.reflection,
		logger:     m.logger,
		metrics:    m.metrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serialize 序列化以 root 为根的对象图
func (s *Serializer) Serialize(root any) (Graph, error) {
	enc := s.NewEncoder()
	if _, err := enc.Encode(root); err != nil {
		return nil, err
	}
	return enc.Graph(), nil
}

// Encoder 在多次 Encode 之间共享身份键，多个根对象写入同一个 Graph
type Encoder struct {
	s     *Serializer
	keys  map[identity]string
	graph Graph
}

// NewEncoder 创建编码器
func (s *Serializer) NewEncoder() *Encoder {
	return &Encoder{
		s:     s,
		keys:  make(map[identity]string),
		graph: make(Graph),
	}
}

// Graph 返回已编码的对象图
func (e *Encoder) Graph() Graph {
	return e.graph
}

// Encode 编码对象，返回它的身份键；已编码的对象直接返回原键
func (e *Encoder) Encode(obj any) (string, error) {
	if !isStructPointer(obj) {
		return "", &InvalidArgumentError{Argument: "object", Reason: fmt.Sprintf("%T 不是结构体指针", obj)}
	}
	id := identityOf(obj)
	if key, ok := e.keys[id]; ok {
		return key, nil
	}

	class, err := e.s.reflection.ClassOf(obj)
	if err != nil {
		return "", err
	}
	singleton := e.s.manager.IsSingleton(obj)
	if !singleton && len(class.Properties()) == 0 && hasUnexportedFields(class.Type()) {
		return "", &InvalidArgumentError{Argument: "object", Reason: fmt.Sprintf("%s 的状态只在未导出字段中，无法序列化", class.Name())}
	}

	// 先登记再遍历属性，环形引用会命中上面的 keys
	key := uuid.NewString()
	e.keys[id] = key
	record := &Record{ClassName: class.Name(), Properties: make(map[string]*PropertyValue)}
	e.graph[key] = record
	e.s.metrics.ObjectsSerialized(1)

	// 单例组件只记录类名，反序列化时取回管理器中的实例
	if singleton {
		return key, nil
	}

	for _, prop := range class.Properties() {
		if prop.Transient {
			continue
		}
		value, err := class.GetProperty(obj, prop.Name)
		if err != nil {
			return "", err
		}
		if isStructPointer(value) && e.s.manager.IsSingleton(value) {
			continue
		}
		pv, err := e.encodeValue(value)
		if err != nil {
			return "", fmt.Errorf("object: 序列化 %s.%s: %w", class.Name(), prop.Name, err)
		}
		if pv != nil {
			record.Properties[prop.Name] = pv
		}
	}
	return key, nil
}

// encodeValue 按运行时形态为值打标签，返回 nil 表示跳过
func (e *Encoder) encodeValue(value any) (*PropertyValue, error) {
	if value == nil {
		return &PropertyValue{Type: TypeSimple}, nil
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return nil, nil
	case reflect.Ptr, reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return &PropertyValue{Type: TypeSimple}, nil
		}
	}

	switch v := value.(type) {
	case *collection.ArrayObject:
		entries, err := e.encodeEntries(v.Keys(), func(k string) any {
			item, _ := v.Get(k)
			return item
		})
		if err != nil {
			return nil, err
		}
		return &PropertyValue{Type: TypeArrayObject, Entries: entries}, nil

	case *collection.ObjectStorage:
		members, err := e.encodeMembers(v.Objects())
		if err != nil {
			return nil, err
		}
		return &PropertyValue{Type: TypeObjectStorage, Members: members}, nil

	case collection.Collection:
		class, err := e.s.reflection.ClassOf(value)
		if err != nil {
			return nil, err
		}
		members, err := e.encodeMembers(v.Elements())
		if err != nil {
			return nil, err
		}
		return &PropertyValue{Type: TypeCollection, ClassName: class.Name(), Members: members}, nil
	}

	switch {
	case marshaler(value):
		return &PropertyValue{Type: TypeSimple, Value: value}, nil
	case isStructPointer(value):
		return e.encodeObject(value)
	case rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8:
		return &PropertyValue{Type: TypeSimple, Value: value}, nil
	case rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array:
		keys := make([]string, rv.Len())
		for i := range keys {
			keys[i] = strconv.Itoa(i)
		}
		entries, err := e.encodeEntries(keys, func(k string) any {
			i, _ := strconv.Atoi(k)
			return rv.Index(i).Interface()
		})
		if err != nil {
			return nil, err
		}
		return &PropertyValue{Type: TypeArray, Kind: arrayList, Entries: entries}, nil
	case rv.Kind() == reflect.Map:
		index := make(map[string]reflect.Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := fmt.Sprint(iter.Key().Interface())
			if _, exists := index[k]; exists {
				return nil, &InvalidArgumentError{Argument: "map", Reason: fmt.Sprintf("多个键的字符串形式都是 %q", k)}
			}
			index[k] = iter.Value()
		}
		keys := slices.Sorted(maps.Keys(index))
		entries, err := e.encodeEntries(keys, func(k string) any {
			return index[k].Interface()
		})
		if err != nil {
			return nil, err
		}
		return &PropertyValue{Type: TypeArray, Kind: arrayMap, Entries: entries}, nil
	}
	return &PropertyValue{Type: TypeSimple, Value: value}, nil
}

// encodeObject 已持久化的实体和值对象只保存标识，其余对象递归编码
func (e *Encoder) encodeObject(obj any) (*PropertyValue, error) {
	if e.s.persistence != nil {
		class, err := e.s.reflection.ClassOf(obj)
		if err != nil {
			return nil, err
		}
		if (class.IsEntity() || class.IsValueObject()) && !e.s.persistence.IsNewObject(obj) {
			id, err := e.s.persistence.IdentifierOf(obj)
			if err != nil {
				return nil, err
			}
			return &PropertyValue{Type: TypePersistenceObject, Value: class.Name() + ":" + id}, nil
		}
	}
	key, err := e.Encode(obj)
	if err != nil {
		return nil, err
	}
	return &PropertyValue{Type: TypeObject, Value: key}, nil
}

func (e *Encoder) encodeEntries(keys []string, get func(string) any) ([]*ArrayEntry, error) {
	entries := make([]*ArrayEntry, 0, len(keys))
	for _, k := range keys {
		pv, err := e.encodeValue(get(k))
		if err != nil {
			return nil, err
		}
		if pv == nil {
			continue
		}
		entries = append(entries, &ArrayEntry{Key: k, Value: pv})
	}
	return entries, nil
}

func (e *Encoder) encodeMembers(objects []any) ([]string, error) {
	members := make([]string, 0, len(objects))
	for _, obj := range objects {
		key, err := e.Encode(obj)
		if err != nil {
			return nil, err
		}
		members = append(members, key)
	}
	return members, nil
}

// Deserialize 重建对象图，返回身份键到实例的映射
// 每个对象只重建一次，环形引用指向同一个实例；单例组件的记录直接使用管理器中的实例
func (s *Serializer) Deserialize(ctx context.Context, graph Graph) (map[string]any, error) {
	d := &decoder{s: s, ctx: ctx, graph: graph, objects: make(map[string]any, len(graph))}
	keys := slices.Sorted(maps.Keys(graph))
	for _, key := range keys {
		if _, err := d.materialize(key); err != nil {
			return nil, err
		}
	}
	return d.objects, nil
}

type decoder struct {
	s       *Serializer
	ctx     context.Context
	graph   Graph
	objects map[string]any
}

var anyType = reflect.TypeOf((*any)(nil)).Elem()

func (d *decoder) materialize(key string) (any, error) {
	if obj, ok := d.objects[key]; ok {
		return obj, nil
	}
	record, ok := d.graph[key]
	if !ok || record == nil {
		return nil, &CorruptSerializedStateError{Key: key, Reason: "引用的记录不存在"}
	}
	if record.ClassName == "" {
		return nil, &CorruptSerializedStateError{Key: key, Reason: "缺少类名"}
	}
	class, err := d.s.reflection.Class(record.ClassName)
	if err != nil {
		return nil, &CorruptSerializedStateError{Key: key, Reason: "类无法解析", Err: err}
	}
	if name, ok := d.s.manager.singletonComponent(class.Name()); ok {
		obj, err := d.s.manager.Get(name)
		if err != nil {
			return nil, &CorruptSerializedStateError{Key: key, Reason: fmt.Sprintf("单例组件 %s 无法获取", name), Err: err}
		}
		d.objects[key] = obj
		return obj, nil
	}
	obj, err := class.NewInstance()
	if err != nil {
		return nil, &CorruptSerializedStateError{Key: key, Reason: "无法分配实例", Err: err}
	}
	d.objects[key] = obj
	d.s.metrics.ObjectsDeserialized(1)

	names := make([]string, 0, len(record.Properties))
	for name := range record.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		prop, ok := class.Property(name)
		if !ok {
			d.s.logger.Debug("Serialized property no longer exists",
				logging.String("class", class.Name()),
				logging.String("property", name))
			continue
		}
		value, err := d.decodeValue(key+"."+name, record.Properties[name], prop.Type)
		if err != nil {
			return nil, err
		}
		if err := class.SetProperty(obj, name, value); err != nil {
			return nil, &CorruptSerializedStateError{Key: key + "." + name, Reason: "属性无法赋值", Err: err}
		}
	}
	return obj, nil
}

func (d *decoder) decodeValue(path string, pv *PropertyValue, target reflect.Type) (any, error) {
	if pv == nil {
		return nil, &CorruptSerializedStateError{Key: path, Reason: "缺少属性值"}
	}

	switch pv.Type {
	case TypeSimple:
		return convertSimple(path, pv.Value, target)

	case TypeObject:
		key, ok := pv.Value.(string)
		if !ok || key == "" {
			return nil, &CorruptSerializedStateError{Key: path, Reason: "object 缺少身份键"}
		}
		return d.materialize(key)

	case TypePersistenceObject:
		ref, _ := pv.Value.(string)
		className, id, ok := strings.Cut(ref, ":")
		if !ok || className == "" || id == "" {
			return nil, &CorruptSerializedStateError{Key: path, Reason: fmt.Sprintf("无效的持久化引用 %q", ref)}
		}
		if d.s.persistence == nil {
			return nil, &CorruptSerializedStateError{Key: path, Reason: "未配置持久化能力"}
		}
		return d.s.persistence.ObjectByIdentifier(d.ctx, id, className)

	case TypeArray:
		return d.decodeArray(path, pv, target)

	case TypeArrayObject:
		ao := collection.NewArrayObject()
		for _, entry := range pv.Entries {
			if entry == nil {
				return nil, &CorruptSerializedStateError{Key: path, Reason: "数组项为空"}
			}
			v, err := d.decodeValue(path+"["+entry.Key+"]", entry.Value, anyType)
			if err != nil {
				return nil, err
			}
			ao.Set(entry.Key, v)
		}
		return ao, nil

	case TypeObjectStorage:
		storage := collection.NewObjectStorage()
		for _, member := range pv.Members {
			obj, err := d.materialize(member)
			if err != nil {
				return nil, err
			}
			storage.Attach(obj)
		}
		return storage, nil

	case TypeCollection:
		if pv.ClassName == "" {
			return nil, &CorruptSerializedStateError{Key: path, Reason: "Collection 缺少类名"}
		}
		class, err := d.s.reflection.Class(pv.ClassName)
		if err != nil {
			return nil, &CorruptSerializedStateError{Key: path, Reason: "Collection 类无法解析", Err: err}
		}
		instance, err := class.NewInstance()
		if err != nil {
			return nil, &CorruptSerializedStateError{Key: path, Reason: "无法分配 Collection", Err: err}
		}
		coll, ok := instance.(collection.Collection)
		if !ok {
			return nil, &CorruptSerializedStateError{Key: path, Reason: fmt.Sprintf("%s 不是 Collection", pv.ClassName)}
		}
		for _, member := range pv.Members {
			obj, err := d.materialize(member)
			if err != nil {
				return nil, err
			}
			coll.Add(obj)
		}
		return coll, nil
	}
	return nil, &CorruptSerializedStateError{Key: path, Reason: fmt.Sprintf("未知的类型标签 %q", pv.Type)}
}

// decodeArray 按目标类型重建切片、数组或映射；目标为 any 时使用 []any / map[string]any
func (d *decoder) decodeArray(path string, pv *PropertyValue, target reflect.Type) (any, error) {
	if pv.Kind != arrayList && pv.Kind != arrayMap {
		return nil, &CorruptSerializedStateError{Key: path, Reason: fmt.Sprintf("未知的数组类型 %q", pv.Kind)}
	}
	if target.Kind() == reflect.Interface {
		if pv.Kind == arrayList {
			target = reflect.TypeOf([]any(nil))
		} else {
			target = reflect.TypeOf(map[string]any(nil))
		}
	}

	decode := func(entry *ArrayEntry, elem reflect.Type) (reflect.Value, error) {
		if entry == nil {
			return reflect.Value{}, &CorruptSerializedStateError{Key: path, Reason: "数组项为空"}
		}
		v, err := d.decodeValue(path+"["+entry.Key+"]", entry.Value, elem)
		if err != nil {
			return reflect.Value{}, err
		}
		rv, err := reflection.Assignable(v, elem)
		if err != nil {
			return reflect.Value{}, &CorruptSerializedStateError{Key: path + "[" + entry.Key + "]", Reason: "数组项类型不匹配", Err: err}
		}
		return rv, nil
	}

	switch target.Kind() {
	case reflect.Slice, reflect.Array:
		var out reflect.Value
		if target.Kind() == reflect.Slice {
			out = reflect.MakeSlice(target, len(pv.Entries), len(pv.Entries))
		} else {
			out = reflect.New(target).Elem()
		}
		for i, entry := range pv.Entries {
			if i >= out.Len() {
				return nil, &CorruptSerializedStateError{Key: path, Reason: "数组长度超出目标类型"}
			}
			rv, err := decode(entry, target.Elem())
			if err != nil {
				return nil, err
			}
			out.Index(i).Set(rv)
		}
		return out.Interface(), nil

	case reflect.Map:
		out := reflect.MakeMapWithSize(target, len(pv.Entries))
		for _, entry := range pv.Entries {
			rv, err := decode(entry, target.Elem())
			if err != nil {
				return nil, err
			}
			key, err := mapKey(entry.Key, target.Key())
			if err != nil {
				return nil, &CorruptSerializedStateError{Key: path, Reason: "映射键无法转换", Err: err}
			}
			out.SetMapIndex(key, rv)
		}
		return out.Interface(), nil
	}
	return nil, &CorruptSerializedStateError{Key: path, Reason: fmt.Sprintf("数组无法赋值给 %s", target)}
}

// convertSimple 把 simple 值转换为目标类型
// 存储层经过 JSON 编码时数值为 json.Number，结构体值为 map，这里统一用 JSON 回转
func convertSimple(path string, value any, target reflect.Type) (any, error) {
	if value == nil {
		return nil, nil
	}
	if n, ok := value.(json.Number); ok && target.Kind() == reflect.Interface {
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err != nil {
			return nil, &CorruptSerializedStateError{Key: path, Reason: "无效的数值", Err: err}
		}
		return f, nil
	}
	if _, ok := value.(json.Number); !ok {
		if rv, err := reflection.Assignable(value, target); err == nil {
			return rv.Interface(), nil
		}
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return nil, &CorruptSerializedStateError{Key: path, Reason: "simple 值无法编码", Err: err}
	}
	out := reflect.New(target)
	if err := json.Unmarshal(raw, out.Interface()); err != nil {
		return nil, &CorruptSerializedStateError{Key: path, Reason: fmt.Sprintf("simple 值无法转换为 %s", target), Err: err}
	}
	return out.Elem().Interface(), nil
}

func mapKey(key string, t reflect.Type) (reflect.Value, error) {
	switch t.Kind() {
	case reflect.String:
		return reflect.ValueOf(key).Convert(t), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(n).Convert(t), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(n).Convert(t), nil
	case reflect.Interface:
		return reflect.ValueOf(key), nil
	}
	return reflect.Value{}, fmt.Errorf("不支持的映射键类型 %s", t)
}

func isStructPointer(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && !rv.IsNil() && rv.Elem().Kind() == reflect.Struct
}

// marshaler 自带文本或 JSON 编码的值（例如 *time.Time）按 simple 保存
func marshaler(v any) bool {
	switch v.(type) {
	case encoding.TextMarshaler, json.Marshaler:
		return true
	}
	return false
}

func hasUnexportedFields(t reflect.Type) bool {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return false
	}
	for i := 0; i < t.NumField(); i++ {
		if !t.Field(i).IsExported() {
			return true
		}
	}
	return false
}
