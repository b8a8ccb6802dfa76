package mongodb

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// DefaultName 默认客户端名
const DefaultName = "default"

// MongoOptions MongoDB 客户端配置选项
type MongoOptions struct {
	Name        string
	Uri         string
	Database    string // 默认数据库
	Username    string
	Password    string
	MaxPoolSize uint64
	MinPoolSize uint64
	Timeout     time.Duration
}

// NewDefaultOptions 创建默认配置
func NewDefaultOptions(name string, uri string) *MongoOptions {
	return &MongoOptions{
		Name:        name,
		Uri:         uri,
		Database:    "objects",
		MaxPoolSize: 100,
		MinPoolSize: 5,
		Timeout:     10 * time.Second,
	}
}

// Validate 验证配置
func (o *MongoOptions) Validate() error {
	if o.Name == "" {
		return errors.New("mongo client name is required")
	}
	if o.Uri == "" {
		return errors.New("mongo uri is required")
	}
	if o.Database == "" {
		return errors.New("mongo database is required")
	}
	return nil
}

func (o *MongoOptions) clientOptions() *options.ClientOptions {
	clientOpts := options.Client().ApplyURI(o.Uri)
	if o.Username != "" || o.Password != "" {
		clientOpts.SetAuth(options.Credential{
			Username: o.Username,
			Password: o.Password,
		})
	}
	if o.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(o.MaxPoolSize)
	}
	if o.MinPoolSize > 0 {
		clientOpts.SetMinPoolSize(o.MinPoolSize)
	}
	if o.Timeout > 0 {
		clientOpts.SetConnectTimeout(o.Timeout)
	}
	return clientOpts
}

type mongoClient struct {
	client   *mongo.Client
	database string
}

// MongoFactory MongoDB 客户端工厂
type MongoFactory struct {
	clients map[string]mongoClient
	mu      sync.RWMutex
}

// NewMongoFactory 创建客户端工厂
func NewMongoFactory() *MongoFactory {
	return &MongoFactory{
		clients: make(map[string]mongoClient),
	}
}

// Connect 创建客户端，驱动在首次操作时才建立连接
func (f *MongoFactory) Connect(opts MongoOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.clients[opts.Name]; exists {
		return fmt.Errorf("mongo client '%s' already registered", opts.Name)
	}

	client, err := mongo.Connect(opts.clientOptions())
	if err != nil {
		return fmt.Errorf("failed to create mongo client '%s': %w", opts.Name, err)
	}

	f.clients[opts.Name] = mongoClient{client: client, database: opts.Database}
	return nil
}

// Client 获取指定名称的客户端
func (f *MongoFactory) Client(name string) (*mongo.Client, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	c, exists := f.clients[name]
	if !exists {
		return nil, fmt.Errorf("mongo client '%s' not found", name)
	}
	return c.client, nil
}

// Database 获取指定客户端的默认数据库
func (f *MongoFactory) Database(name string) (*mongo.Database, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	c, exists := f.clients[name]
	if !exists {
		return nil, fmt.Errorf("mongo client '%s' not found", name)
	}
	return c.client.Database(c.database), nil
}

// Names 客户端名，按名称排序
func (f *MongoFactory) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Sorted(maps.Keys(f.clients))
}

// Close 断开所有客户端
func (f *MongoFactory) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	for name, c := range f.clients {
		if err := c.client.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to close client '%s': %w", name, err))
		}
	}
	f.clients = make(map[string]mongoClient)
	return errors.Join(errs...)
}
