// Package persistence 持久化能力：判断对象是否为新对象、获取标识、按标识取回对象
package persistence

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"sync"

	"github.com/gocrud/objects/reflection"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// Manager 持久化能力
type Manager interface {
	// IsNewObject 对象是否尚未分配持久化标识
	IsNewObject(obj any) bool
	// IdentifierOf 已持久化对象的标识
	IdentifierOf(obj any) (string, error)
	// ObjectByIdentifier 按标识和类名取回对象，找不到时原样返回底层错误
	ObjectByIdentifier(ctx context.Context, identifier, className string) (any, error)
}

// GormManager 基于 gorm 的持久化能力，以主键作为标识
type GormManager struct {
	db         *gorm.DB
	reflection reflection.Service
	schemas    sync.Map
}

var _ Manager = (*GormManager)(nil)

// NewGormManager 创建 gorm 持久化管理器
func NewGormManager(db *gorm.DB, refl reflection.Service) *GormManager {
	return &GormManager{db: db, reflection: refl}
}

func (m *GormManager) IsNewObject(obj any) bool {
	pk, err := m.primaryField(obj)
	if err != nil {
		return true
	}
	_, zero := pk.ValueOf(context.Background(), reflect.ValueOf(obj))
	return zero
}

func (m *GormManager) IdentifierOf(obj any) (string, error) {
	pk, err := m.primaryField(obj)
	if err != nil {
		return "", err
	}
	value, zero := pk.ValueOf(context.Background(), reflect.ValueOf(obj))
	if zero {
		return "", fmt.Errorf("persistence: %T 尚未持久化", obj)
	}
	return fmt.Sprint(value), nil
}

func (m *GormManager) ObjectByIdentifier(ctx context.Context, identifier, className string) (any, error) {
	class, err := m.reflection.Class(className)
	if err != nil {
		return nil, err
	}
	obj, err := class.NewInstance()
	if err != nil {
		return nil, err
	}
	pk, err := m.primaryField(obj)
	if err != nil {
		return nil, err
	}
	id, err := parseIdentifier(identifier, pk.FieldType)
	if err != nil {
		return nil, err
	}

	err = m.db.WithContext(ctx).
		Where(clause.Eq{Column: clause.Column{Name: pk.DBName}, Value: id}).
		Take(obj).Error
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func (m *GormManager) primaryField(obj any) (*schema.Field, error) {
	s, err := schema.Parse(obj, &m.schemas, m.db.NamingStrategy)
	if err != nil {
		return nil, fmt.Errorf("persistence: 解析 %T 失败: %w", obj, err)
	}
	if s.PrioritizedPrimaryField == nil {
		return nil, fmt.Errorf("persistence: %s 没有主键", s.Name)
	}
	return s.PrioritizedPrimaryField, nil
}

// parseIdentifier 把字符串标识转换为主键字段的类型
func parseIdentifier(identifier string, t reflect.Type) (any, error) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(identifier, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("persistence: 无效的标识 %q: %w", identifier, err)
		}
		return n, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(identifier, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("persistence: 无效的标识 %q: %w", identifier, err)
		}
		return n, nil
	}
	return identifier, nil
}
