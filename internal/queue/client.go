package queue

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/chiptrack/internal/config"
	"github.com/chiptrack/internal/constants"
	"github.com/chiptrack/internal/logger"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 默认队列名称
	DefaultQueue = constants.QueueDefault
	// CriticalQueue 高优先级队列，安全告警专用
	CriticalQueue = constants.QueueCritical

	defaultConcurrency        = 10
	defaultShutdownTimeout    = 8 * time.Second
	whitelistRefreshUniqueTTL = 30 * time.Second
)

// taskPolicy 各任务的投递策略
type taskPolicy struct {
	queue    string
	maxRetry int
}

var taskPolicies = map[string]taskPolicy{
	TaskChipSecurityAlert:    {queue: CriticalQueue, maxRetry: 5},
	TaskChipWhitelistRefresh: {queue: DefaultQueue, maxRetry: 2},
	TaskChipSavRequested:     {queue: DefaultQueue, maxRetry: 3},
}

// Client 队列客户端；未启用时所有投递为空操作
type Client struct {
	client *asynq.Client
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{}, nil
	}
	return &Client{client: asynq.NewClient(redisOpt(cfg))}, nil
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

func (c *Client) enqueue(task *asynq.Task, extra ...asynq.Option) error {
	policy, ok := taskPolicies[task.Type()]
	if !ok {
		policy = taskPolicy{queue: DefaultQueue, maxRetry: 3}
	}
	opts := append([]asynq.Option{asynq.Queue(policy.queue), asynq.MaxRetry(policy.maxRetry)}, extra...)
	info, err := c.client.Enqueue(task, opts...)
	if err != nil {
		return err
	}
	logger.Debugw("queue_task_enqueued", "task_type", task.Type(), "task_id", info.ID, "queue", info.Queue)
	return nil
}

// EnqueueChipSecurityAlert 推送安全告警任务
func (c *Client) EnqueueChipSecurityAlert(payload ChipSecurityAlertPayload, opts ...asynq.Option) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewChipSecurityAlertTask(payload)
	if err != nil {
		return err
	}
	return c.enqueue(task, opts...)
}

// EnqueueChipWhitelistRefresh 推送白名单预热任务，同一客户短时间内只保留一个
func (c *Client) EnqueueChipWhitelistRefresh(payload ChipWhitelistRefreshPayload, delay time.Duration) error {
	if !c.Enabled() || payload.CustomerID == 0 {
		return nil
	}
	task, err := NewChipWhitelistRefreshTask(payload)
	if err != nil {
		return err
	}
	err = c.enqueue(task, asynq.ProcessIn(max(delay, 0)), asynq.Unique(whitelistRefreshUniqueTTL))
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}

// EnqueueChipSavRequested 推送售后申请通知
func (c *Client) EnqueueChipSavRequested(payload ChipSavRequestedPayload) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewChipSavRequestedTask(payload)
	if err != nil {
		return err
	}
	return c.enqueue(task)
}

// BuildServerConfig 生成消费端配置；队列权重未配置时告警队列优先
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	serverCfg := asynq.Config{
		Concurrency:     defaultConcurrency,
		Queues:          map[string]int{DefaultQueue: 1, CriticalQueue: 2},
		ShutdownTimeout: defaultShutdownTimeout,
		Logger:          logger.Z().Named("asynq").Sugar(),
		ErrorHandler:    asynq.ErrorHandlerFunc(logTaskFailure),
	}
	if cfg != nil && cfg.Concurrency > 0 {
		serverCfg.Concurrency = cfg.Concurrency
	}
	if cfg != nil && len(cfg.Queues) > 0 {
		serverCfg.Queues = cfg.Queues
	}
	return redisOpt(cfg), serverCfg
}

func logTaskFailure(ctx context.Context, task *asynq.Task, err error) {
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	logger.Warnw("queue_task_failed",
		"task_type", task.Type(),
		"retried", retried,
		"max_retry", maxRetry,
		"error", err,
	)
}

func redisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	host, port := "127.0.0.1", 6379
	opt := asynq.RedisClientOpt{}
	if cfg != nil {
		if trimmed := strings.TrimSpace(cfg.Host); trimmed != "" {
			host = trimmed
		}
		if cfg.Port > 0 {
			port = cfg.Port
		}
		opt.Password = cfg.Password
		opt.DB = cfg.DB
	}
	opt.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	return opt
}
