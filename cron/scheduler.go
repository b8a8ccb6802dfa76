package cron

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/gocrud/objects/core"
	"github.com/gocrud/objects/logging"
	"github.com/robfig/cron/v3"
)

// Scheduler 定时任务调度器，随应用生命周期启动和停止
type Scheduler struct {
	enableSeconds    bool
	enableCronLogger bool
	location         *time.Location

	cron    *cron.Cron
	logger  logging.Logger
	mu      sync.RWMutex
	jobs    map[string]cron.EntryID // 任务名称到任务ID的映射
	jobDefs []jobDefinition         // 启动前暂存的任务定义
}

// init 在 Build 之后创建 cron 实例
func (s *Scheduler) init(logger logging.Logger) {
	s.logger = logger

	cronOpts := []cron.Option{cron.WithLocation(s.location)}
	if s.enableCronLogger {
		cronOpts = append(cronOpts, cron.WithLogger(newCronLogger(logger)))
	}
	cronOpts = append(cronOpts, cron.WithChain(
		cron.Recover(newCronLogger(logger)),
	))
	if s.enableSeconds {
		cronOpts = append(cronOpts, cron.WithSeconds())
	}
	s.cron = cron.New(cronOpts...)
}

// register 解析任务定义并加入调度
func (s *Scheduler) register(rt *core.Runtime) error {
	for _, def := range s.jobDefs {
		job, err := s.resolve(rt, def)
		if err != nil {
			return fmt.Errorf("cron: failed to resolve job '%s': %w", def.name, err)
		}
		if err := s.addJob(def.spec, def.name, job); err != nil {
			return err
		}
	}
	s.jobDefs = nil
	return nil
}

func (s *Scheduler) resolve(rt *core.Runtime, def jobDefinition) (cron.Job, error) {
	switch {
	case def.fn != nil:
		return cron.FuncJob(def.fn), nil
	case def.factory != nil:
		return def.factory(rt)
	case def.component != "":
		if !rt.Objects.IsRegistered(def.component) {
			return nil, fmt.Errorf("component %s is not registered", def.component)
		}
		return componentJob{rt: rt, component: def.component, logger: s.logger}, nil
	}
	return nil, fmt.Errorf("job has no handler")
}

// addJob 添加定时任务
// spec: cron 表达式，如 "0 */5 * * * *" (每5分钟) 或 "0 0 2 * * *" (每天凌晨2点)
func (s *Scheduler) addJob(spec, name string, job cron.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID, err := s.cron.AddFunc(spec, func() {
		s.logger.Debug("Cron job started", logging.String("job", name))
		defer s.logger.Debug("Cron job completed", logging.String("job", name))
		job.Run()
	})
	if err != nil {
		return fmt.Errorf("cron: failed to add job '%s': %w", name, err)
	}

	s.jobs[name] = entryID
	s.logger.Info("Cron job registered", logging.String("job", name), logging.String("spec", spec))
	return nil
}

// RemoveJob 移除定时任务
func (s *Scheduler) RemoveJob(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, exists := s.jobs[name]; exists {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
		s.logger.Info("Cron job removed", logging.String("job", name))
	}
}

// Jobs 已注册的任务名，按名称排序
func (s *Scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.jobs))
}

// Next 任务下一次执行时间
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entryID, exists := s.jobs[name]
	if !exists {
		return time.Time{}, false
	}
	return s.cron.Entry(entryID).Next, true
}

// Trigger 立即同步执行一次任务，不影响调度
func (s *Scheduler) Trigger(name string) error {
	s.mu.RLock()
	entryID, exists := s.jobs[name]
	s.mu.RUnlock()
	if !exists {
		return fmt.Errorf("cron: job '%s' not found", name)
	}
	s.cron.Entry(entryID).WrappedJob.Run()
	return nil
}

// Start 启动调度
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("Cron scheduler starting", logging.Any("jobs", len(s.jobs)))
	s.cron.Start()
	return nil
}

// Stop 停止调度并等待运行中的任务结束
func (s *Scheduler) Stop(ctx context.Context) error {
	s.logger.Info("Cron scheduler stopping")
	stopCtx := s.cron.Stop()

	select {
	case <-stopCtx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// componentJob 每次执行时获取组件，原型组件每次都是新实例
type componentJob struct {
	rt        *core.Runtime
	component string
	logger    logging.Logger
}

func (j componentJob) Run() {
	instance, err := j.rt.Get(j.component)
	if err != nil {
		j.logger.Error("Failed to resolve cron job component",
			logging.String("component", j.component), logging.Err(err))
		return
	}
	job, ok := instance.(cron.Job)
	if !ok {
		j.logger.Error("Cron job component does not implement Run()",
			logging.String("component", j.component), logging.Any("type", fmt.Sprintf("%T", instance)))
		return
	}
	job.Run()
}

// cronLogger 适配器：将框架日志接口适配到 cron 的日志接口
type cronLogger struct {
	logger logging.Logger
}

func newCronLogger(logger logging.Logger) cron.Logger {
	return &cronLogger{logger: logger}
}

func (l *cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, convertToFields(keysAndValues)...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...any) {
	fields := convertToFields(keysAndValues)
	fields = append(fields, logging.Err(err))
	l.logger.Error(msg, fields...)
}

func convertToFields(keysAndValues []any) []logging.Field {
	fields := make([]logging.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields = append(fields, logging.Any(fmt.Sprintf("%v", keysAndValues[i]), keysAndValues[i+1]))
	}
	return fields
}
