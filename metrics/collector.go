// Package metrics 对象管理的 Prometheus 指标
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/gocrud/objects/object"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector 实现 object.Metrics，指标注册在独立的 registry 上
type Collector struct {
	registry *prometheus.Registry

	ObjectsBuilt        *prometheus.CounterVec
	BuildDuration       *prometheus.HistogramVec
	BuildFailures       *prometheus.CounterVec
	CacheHits           prometheus.Counter
	CacheMisses         prometheus.Counter
	SerializedObjects   prometheus.Counter
	DeserializedObjects prometheus.Counter
}

var _ object.Metrics = (*Collector)(nil)

// NewCollector 创建指标收集器
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		ObjectsBuilt: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "objects_built_total",
				Help:      "Total number of component instances built",
			},
			[]string{"component", "scope"},
		),
		BuildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "object_build_duration_seconds",
				Help:      "Component build duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"component"},
		),
		BuildFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "object_build_failures_total",
				Help:      "Total number of failed component builds",
			},
			[]string{"component", "reason"},
		),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "object_cache_hits_total",
			Help:      "Total number of singleton cache hits",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "object_cache_misses_total",
			Help:      "Total number of singleton cache misses",
		}),
		SerializedObjects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_serialized_total",
			Help:      "Total number of objects written to serialized graphs",
		}),
		DeserializedObjects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_deserialized_total",
			Help:      "Total number of objects rebuilt from serialized graphs",
		}),
	}

	registry.MustRegister(
		c.ObjectsBuilt,
		c.BuildDuration,
		c.BuildFailures,
		c.CacheHits,
		c.CacheMisses,
		c.SerializedObjects,
		c.DeserializedObjects,
	)
	return c
}

// Registry 返回指标 registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler 暴露指标的 HTTP handler
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) ObjectBuilt(componentName string, scope object.Scope, duration time.Duration) {
	c.ObjectsBuilt.WithLabelValues(componentName, string(scope)).Inc()
	c.BuildDuration.WithLabelValues(componentName).Observe(duration.Seconds())
}

func (c *Collector) BuildFailed(componentName string, err error) {
	c.BuildFailures.WithLabelValues(componentName, reason(err)).Inc()
}

func (c *Collector) CacheHit(string) {
	c.CacheHits.Inc()
}

func (c *Collector) CacheMiss(string) {
	c.CacheMisses.Inc()
}

func (c *Collector) ObjectsSerialized(count int) {
	c.SerializedObjects.Add(float64(count))
}

func (c *Collector) ObjectsDeserialized(count int) {
	c.DeserializedObjects.Add(float64(count))
}

// reason 错误分类，作为标签值
func reason(err error) string {
	var (
		notFound    *object.NotFoundError
		circular    *object.CircularDependencyError
		unsupported *object.UnsupportedScopeError
		cannotBuild *object.CannotBuildError
	)
	switch {
	case errors.As(err, &circular):
		return "circular_dependency"
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &unsupported):
		return "unsupported_scope"
	case errors.As(err, &cannotBuild):
		return "cannot_build"
	}
	return "other"
}
