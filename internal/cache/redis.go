package cache

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chiptrack/internal/config"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "chiptrack"

type redisState struct {
	mu     sync.RWMutex
	client *redis.Client
	prefix string
}

var state = redisState{prefix: defaultKeyPrefix}

// InitRedis 按配置创建客户端；未启用时所有缓存操作退化为未命中
func InitRedis(cfg *config.RedisConfig) error {
	if cfg == nil || !cfg.Enabled {
		Use(nil, cfgPrefix(cfg))
		return nil
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	Use(redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(host, strconv.Itoa(port)),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	}), cfg.Prefix)
	return nil
}

func cfgPrefix(cfg *config.RedisConfig) string {
	if cfg == nil {
		return ""
	}
	return cfg.Prefix
}

// Use 替换当前客户端，client 为 nil 表示禁用缓存
func Use(client *redis.Client, prefix string) {
	prefix = strings.Trim(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	state.client = client
	state.prefix = prefix
}

func snapshot() (*redis.Client, string) {
	state.mu.RLock()
	defer state.mu.RUnlock()
	return state.client, state.prefix
}

// Enabled 判断缓存是否启用
func Enabled() bool {
	client, _ := snapshot()
	return client != nil
}

// Client 获取 Redis 客户端，未启用时为 nil
func Client() *redis.Client {
	client, _ := snapshot()
	return client
}

// Key 拼接带全局前缀的键，如 Key("rate", "scan") => chiptrack:rate:scan
func Key(parts ...string) string {
	_, prefix := snapshot()
	segments := make([]string, 0, len(parts)+1)
	segments = append(segments, prefix)
	for _, part := range parts {
		if part = strings.Trim(strings.TrimSpace(part), ":"); part != "" {
			segments = append(segments, part)
		}
	}
	return strings.Join(segments, ":")
}

// GetJSON 读取 JSON 缓存，未启用或未命中时返回 false
func GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	client, _ := snapshot()
	if client == nil {
		return false, nil
	}
	raw, err := client.Get(ctx, Key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON 写入 JSON 缓存
func SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	client, _ := snapshot()
	if client == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return client.Set(ctx, Key(key), payload, ttl).Err()
}

// Del 删除缓存
func Del(ctx context.Context, key string) error {
	client, _ := snapshot()
	if client == nil {
		return nil
	}
	return client.Del(ctx, Key(key)).Err()
}

// Ping 检查 Redis 连通性（未启用时视为正常）
func Ping(ctx context.Context) error {
	client, _ := snapshot()
	if client == nil {
		return nil
	}
	return client.Ping(ctx).Err()
}

// Close 关闭连接并禁用缓存
func Close() error {
	client, prefix := snapshot()
	if client == nil {
		return nil
	}
	Use(nil, prefix)
	return client.Close()
}
