package reflection

import (
	"fmt"
	"math"
	"reflect"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// invoke 调用构造函数，检查返回的 error 和 nil 实例
func invoke(fn reflect.Value, args []reflect.Value) (instance any, err error) {
	defer func() {
		if r := recover(); r != nil {
			instance = nil
			err = fmt.Errorf("reflection: 构造函数 panic: %v", r)
		}
	}()

	results := fn.Call(args)
	if len(results) == 0 {
		return nil, fmt.Errorf("reflection: 构造函数没有返回值")
	}

	// 检查 error
	if len(results) > 1 {
		last := results[len(results)-1]
		if last.Type().Implements(errorType) && !last.IsNil() {
			return nil, fmt.Errorf("reflection: 构造函数失败: %w", last.Interface().(error))
		}
	}

	// 检查 nil
	first := results[0]
	if nullable(first.Type()) && first.IsNil() {
		return nil, fmt.Errorf("reflection: 构造函数返回了 nil 实例")
	}
	return first.Interface(), nil
}

// Assignable 把 value 转换成可赋值给 t 的 reflect.Value
// nil 转为零值，数值类型之间允许转换
func Assignable(value any, t reflect.Type) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(t), nil
	}
	v := reflect.ValueOf(value)
	if v.Type().AssignableTo(t) {
		return v, nil
	}
	if convertible(v.Type(), t) {
		if numeric(v.Kind()) {
			if err := checkNumber(v, t); err != nil {
				return reflect.Value{}, err
			}
		}
		return v.Convert(t), nil
	}

	// 配置中的数组和映射通常是 []any / map[string]any，逐个元素转换
	switch {
	case v.Kind() == reflect.Slice && t.Kind() == reflect.Slice:
		out := reflect.MakeSlice(t, v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			ev, err := Assignable(v.Index(i).Interface(), t.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("元素 %d: %w", i, err)
			}
			out.Index(i).Set(ev)
		}
		return out, nil
	case v.Kind() == reflect.Map && t.Kind() == reflect.Map:
		out := reflect.MakeMapWithSize(t, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			kv, err := Assignable(iter.Key().Interface(), t.Key())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("键 %v: %w", iter.Key(), err)
			}
			ev, err := Assignable(iter.Value().Interface(), t.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("键 %v: %w", iter.Key(), err)
			}
			out.SetMapIndex(kv, ev)
		}
		return out, nil
	}
	return reflect.Value{}, fmt.Errorf("类型 %s 无法赋值给 %s", v.Type(), t)
}

func convertible(from, to reflect.Type) bool {
	if !from.ConvertibleTo(to) {
		return false
	}
	switch {
	case numeric(from.Kind()) && numeric(to.Kind()):
		return true
	case from.Kind() == reflect.String && to.Kind() == reflect.String:
		return true
	case from.Kind() == reflect.Bool && to.Kind() == reflect.Bool:
		return true
	}
	return false
}

// checkNumber 拒绝溢出目标类型的数值，浮点数转整数时不允许小数部分
func checkNumber(v reflect.Value, t reflect.Type) error {
	target := reflect.Zero(t)
	overflow := false
	switch {
	case isInt(v.Kind()):
		n := v.Int()
		switch {
		case isInt(t.Kind()):
			overflow = target.OverflowInt(n)
		case isUint(t.Kind()):
			overflow = n < 0 || target.OverflowUint(uint64(n))
		}
	case isUint(v.Kind()):
		n := v.Uint()
		switch {
		case isInt(t.Kind()):
			overflow = n > math.MaxInt64 || target.OverflowInt(int64(n))
		case isUint(t.Kind()):
			overflow = target.OverflowUint(n)
		}
	default:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			if t.Kind() == reflect.Float32 || t.Kind() == reflect.Float64 {
				return nil
			}
			return fmt.Errorf("数值 %v 无法转换为 %s", f, t)
		}
		switch {
		case isInt(t.Kind()) || isUint(t.Kind()):
			if f != math.Trunc(f) {
				return fmt.Errorf("数值 %v 有小数部分，无法转换为 %s", f, t)
			}
			if isInt(t.Kind()) {
				overflow = f < math.MinInt64 || f >= math.MaxInt64 || target.OverflowInt(int64(f))
			} else {
				overflow = f < 0 || f >= math.MaxUint64 || target.OverflowUint(uint64(f))
			}
		default:
			overflow = target.OverflowFloat(f)
		}
	}
	if overflow {
		return fmt.Errorf("数值 %v 超出 %s 的范围", v.Interface(), t)
	}
	return nil
}

func isInt(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUint(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func numeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
