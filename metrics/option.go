package metrics

import (
	"github.com/gocrud/objects/core"
)

// New 启用对象管理指标，收集器作为特性保存，web.WithMetricsEndpoint 通过它暴露指标
func New(namespace string) core.Option {
	return func(rt *core.Runtime) error {
		c := NewCollector(namespace)
		rt.Features.Set(c)
		return core.WithMetrics(c)(rt)
	}
}
