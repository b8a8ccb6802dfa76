package session

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/gocrud/objects/logging"
	"github.com/gocrud/objects/object"
	"github.com/google/uuid"
)

// DefaultTTL 会话默认有效期
const DefaultTTL = 24 * time.Hour

// Handler 在存储和会话容器之间恢复、保存 session 组件
type Handler struct {
	manager    *object.Manager
	serializer *object.Serializer
	store      Store
	ttl        time.Duration
	logger     logging.Logger
	now        func() time.Time
}

// Option Handler 选项
type Option func(h *Handler)

// WithTTL 设置会话有效期
func WithTTL(ttl time.Duration) Option {
	return func(h *Handler) {
		if ttl > 0 {
			h.ttl = ttl
		}
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger logging.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler 创建会话处理器
func NewHandler(m *object.Manager, s *object.Serializer, store Store, opts ...Option) *Handler {
	h := &Handler{
		manager:    m,
		serializer: s,
		store:      store,
		ttl:        DefaultTTL,
		logger:     logging.Nop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// TTL 会话有效期
func (h *Handler) TTL() time.Duration {
	return h.ttl
}

// Resume 恢复会话；id 为空、无效或会话不存在时开始新会话
func (h *Handler) Resume(ctx context.Context, id string) (*Container, error) {
	if _, err := uuid.Parse(id); err != nil {
		return NewContainer(uuid.NewString(), h.manager), nil
	}

	state, err := h.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.logger.Debug("Session not found, starting a new one", logging.String("session", id))
			return NewContainer(uuid.NewString(), h.manager), nil
		}
		return nil, err
	}

	objects, err := h.serializer.Deserialize(ctx, state.Graph)
	if err != nil {
		return nil, fmt.Errorf("session: failed to restore %s: %w", id, err)
	}

	c := NewContainer(id, h.manager)
	for name, key := range state.Objects {
		instance, ok := objects[key]
		if !ok {
			return nil, &object.CorruptSerializedStateError{Key: key, Reason: fmt.Sprintf("组件 %s 的记录不存在", name)}
		}
		c.restore(name, instance)
	}

	h.logger.Debug("Session resumed",
		logging.String("session", id),
		logging.Any("components", len(state.Objects)))
	return c, nil
}

// Persist 保存会话内的组件，所有组件共享一个编码器，相互引用只保存一次
func (h *Handler) Persist(ctx context.Context, c *Container) error {
	instances := c.Instances()
	enc := h.serializer.NewEncoder()

	state := &State{
		Objects:   make(map[string]string, len(instances)),
		UpdatedAt: h.now().UTC(),
	}
	for _, name := range slices.Sorted(maps.Keys(instances)) {
		key, err := enc.Encode(instances[name])
		if err != nil {
			return fmt.Errorf("session: failed to serialize %s: %w", name, err)
		}
		state.Objects[name] = key
	}
	state.Graph = enc.Graph()

	if err := h.store.Save(ctx, c.ID(), state, h.ttl); err != nil {
		return err
	}
	h.logger.Debug("Session persisted",
		logging.String("session", c.ID()),
		logging.Any("objects", len(state.Graph)))
	return nil
}

// Destroy 删除会话
func (h *Handler) Destroy(ctx context.Context, id string) error {
	return h.store.Delete(ctx, id)
}

// Collect 清理已过期的会话
func (h *Handler) Collect(ctx context.Context) (int, error) {
	return h.store.Collect(ctx, h.now())
}
