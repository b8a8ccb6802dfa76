package session

import (
	"errors"
	"fmt"

	"github.com/gocrud/objects/core"
	objcron "github.com/gocrud/objects/cron"
	"github.com/gocrud/objects/mongodb"
	objredis "github.com/gocrud/objects/redis"
	"github.com/robfig/cron/v3"
)

// HandlerComponent 会话处理器注册使用的组件名
const HandlerComponent = "SessionHandler"

// StoreFactory 在 Build 时创建会话存储
type StoreFactory func(rt *core.Runtime) (Store, error)

// UseMemory 使用进程内存储
func UseMemory() StoreFactory {
	return func(*core.Runtime) (Store, error) {
		return NewMemoryStore(), nil
	}
}

// UseStore 使用已创建的存储
func UseStore(store Store) StoreFactory {
	return func(*core.Runtime) (Store, error) {
		return store, nil
	}
}

// UseRedis 使用 redis.New 配置的客户端，prefix 为空时使用 "session:"
func UseRedis(clientName, prefix string) StoreFactory {
	return func(rt *core.Runtime) (Store, error) {
		factory, ok := core.GetFeature[*objredis.RedisClientFactory](rt)
		if !ok {
			return nil, errors.New("session: redis is not enabled")
		}
		client, err := factory.Get(clientName)
		if err != nil {
			return nil, fmt.Errorf("session: %w", err)
		}
		return NewRedisStore(client, prefix), nil
	}
}

// UseMongo 使用 mongodb.New 配置的客户端的默认数据库
func UseMongo(clientName, collection string) StoreFactory {
	return func(rt *core.Runtime) (Store, error) {
		factory, ok := core.GetFeature[*mongodb.MongoFactory](rt)
		if !ok {
			return nil, errors.New("session: mongodb is not enabled")
		}
		db, err := factory.Database(clientName)
		if err != nil {
			return nil, fmt.Errorf("session: %w", err)
		}
		return NewMongoStore(db.Collection(collection)), nil
	}
}

// New 启用 session 作用域
// 必须在提供存储的选项 (redis.New, mongodb.New) 之后应用
func New(store StoreFactory, opts ...Option) core.Option {
	return func(rt *core.Runtime) error {
		rt.OnBuild(func(rt *core.Runtime) error {
			s, err := store(rt)
			if err != nil {
				return err
			}
			handlerOpts := append([]Option{WithLogger(rt.Logger.WithCategory("session"))}, opts...)
			h := NewHandler(rt.Objects, rt.Serializer, s, handlerOpts...)
			rt.Features.Set(h)
			return rt.RegisterInstance(HandlerComponent, h)
		})
		return nil
	}
}

// CollectGarbage 返回定期清理过期会话的 cron 任务
func CollectGarbage(spec string) objcron.BuilderOption {
	return objcron.AddJobFactory(spec, "session-gc", func(rt *core.Runtime) (cron.Job, error) {
		h, ok := core.GetFeature[*Handler](rt)
		if !ok {
			return nil, errors.New("session: sessions are not enabled")
		}
		return NewGarbageCollector(h), nil
	})
}
