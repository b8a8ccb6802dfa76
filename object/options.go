package object

import (
	"time"

	"github.com/gocrud/objects/logging"
)

// Metrics 对象管理的指标回调
type Metrics interface {
	ObjectBuilt(componentName string, scope Scope, duration time.Duration)
	BuildFailed(componentName string, err error)
	CacheHit(componentName string)
	CacheMiss(componentName string)
	ObjectsSerialized(count int)
	ObjectsDeserialized(count int)
}

type nopMetrics struct{}

func (nopMetrics) ObjectBuilt(string, Scope, time.Duration) {}
func (nopMetrics) BuildFailed(string, error)                {}
func (nopMetrics) CacheHit(string)                          {}
func (nopMetrics) CacheMiss(string)                         {}
func (nopMetrics) ObjectsSerialized(int)                    {}
func (nopMetrics) ObjectsDeserialized(int)                  {}

// Option Manager 选项
type Option func(m *Manager)

// WithLogger 设置日志记录器
func WithLogger(logger logging.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics 设置指标收集器
func WithMetrics(metrics Metrics) Option {
	return func(m *Manager) {
		if metrics != nil {
			m.metrics = metrics
		}
	}
}
