package cron

import (
	"fmt"
	"time"

	"github.com/gocrud/objects/core"
	"github.com/robfig/cron/v3"
)

// JobFactory 在调度器启动时创建任务
type JobFactory func(rt *core.Runtime) (cron.Job, error)

// jobDefinition 任务定义
type jobDefinition struct {
	spec string
	name string
	// 以下三者只有一个不为空
	fn        func()
	component string
	factory   JobFactory
}

// Builder Cron 配置构建器
type Builder struct {
	enableSeconds    bool
	enableCronLogger bool
	location         string
	jobs             []jobDefinition
}

// NewBuilder 创建 Cron 构建器
func NewBuilder() *Builder {
	return &Builder{
		location: "UTC",
	}
}

// WithSeconds 启用秒级精度
func (b *Builder) WithSeconds() *Builder {
	b.enableSeconds = true
	return b
}

// WithLocation 设置时区
func (b *Builder) WithLocation(location string) *Builder {
	b.location = location
	return b
}

// EnableCronLogger 启用 cron 库的内部调度日志
func (b *Builder) EnableCronLogger() *Builder {
	b.enableCronLogger = true
	return b
}

// AddJob 添加函数任务
func (b *Builder) AddJob(spec, name string, fn func()) *Builder {
	b.jobs = append(b.jobs, jobDefinition{spec: spec, name: name, fn: fn})
	return b
}

// AddComponentJob 添加组件任务
// 每次执行时从对象管理器获取组件，组件必须实现 cron.Job
//
// 示例：
//
//	builder.AddComponentJob("0 */5 * * * *", "sync-data", "DataSync")
func (b *Builder) AddComponentJob(spec, name, componentName string) *Builder {
	b.jobs = append(b.jobs, jobDefinition{spec: spec, name: name, component: componentName})
	return b
}

// AddJobFactory 添加由工厂在启动时创建的任务
func (b *Builder) AddJobFactory(spec, name string, factory JobFactory) *Builder {
	b.jobs = append(b.jobs, jobDefinition{spec: spec, name: name, factory: factory})
	return b
}

// build 校验配置并创建调度器
func (b *Builder) build() (*Scheduler, error) {
	loc, err := time.LoadLocation(b.location)
	if err != nil {
		return nil, fmt.Errorf("cron: invalid location %q: %w", b.location, err)
	}

	seen := make(map[string]bool, len(b.jobs))
	for _, job := range b.jobs {
		if job.name == "" {
			return nil, fmt.Errorf("cron: job name is required (spec %q)", job.spec)
		}
		if seen[job.name] {
			return nil, fmt.Errorf("cron: job '%s' already configured", job.name)
		}
		seen[job.name] = true
	}

	return &Scheduler{
		enableSeconds:    b.enableSeconds,
		enableCronLogger: b.enableCronLogger,
		location:         loc,
		jobDefs:          b.jobs,
		jobs:             make(map[string]cron.EntryID),
	}, nil
}
