package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/chiptrack/internal/config"
	"github.com/chiptrack/internal/logger"
	"github.com/chiptrack/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	defaultSweepInterval = time.Minute
	defaultSweepGrace    = 5 * time.Minute
	defaultSweepLimit    = 100
)

// alertResender 补发未确认告警
type alertResender interface {
	ResendPendingSecurityAlerts(grace time.Duration, limit int) (int, error)
}

// alertSweeper 周期性补发超过宽限期仍未确认的安全告警
type alertSweeper struct {
	resender alertResender
	interval time.Duration
	grace    time.Duration
	limit    int
}

func newAlertSweeper(resender alertResender, cfg config.AlertSweepConfig) *alertSweeper {
	sweeper := &alertSweeper{
		resender: resender,
		interval: defaultSweepInterval,
		grace:    defaultSweepGrace,
		limit:    defaultSweepLimit,
	}
	if cfg.IntervalSeconds > 0 {
		sweeper.interval = time.Duration(cfg.IntervalSeconds) * time.Second
	}
	if cfg.GraceSeconds > 0 {
		sweeper.grace = time.Duration(cfg.GraceSeconds) * time.Second
	}
	if cfg.Limit > 0 {
		sweeper.limit = cfg.Limit
	}
	return sweeper
}

func (s *alertSweeper) sweep() int {
	sent, err := s.resender.ResendPendingSecurityAlerts(s.grace, s.limit)
	if err != nil {
		logger.Warnw("worker_security_alert_sweep_failed", "error", err)
		return 0
	}
	if sent > 0 {
		logger.Infow("worker_security_alert_sweep_resent", "count", sent)
	}
	return sent
}

// run 启动即巡检一次，之后按间隔执行直到 ctx 结束
func (s *alertSweeper) run(ctx context.Context) {
	s.sweep()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// Service 队列消费服务
type Service struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	sweeper *alertSweeper

	sweepWG sync.WaitGroup
}

// NewService 创建队列消费服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)

	svc := &Service{server: asynq.NewServer(opt, serverCfg), mux: mux}
	if consumer.Container != nil && consumer.ChipService != nil {
		svc.sweeper = newAlertSweeper(consumer.ChipService, cfg.AlertSweep)
	}
	return svc, nil
}

// Name 服务名称
func (s *Service) Name() string {
	return "worker"
}

// Start 启动消费并阻塞到 ctx 结束；信号由上层 Runner 统一处理
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil {
		return errors.New("worker not initialized")
	}
	if err := s.server.Start(s.mux); err != nil {
		return err
	}
	if s.sweeper != nil {
		s.sweepWG.Add(1)
		go func() {
			defer s.sweepWG.Done()
			s.sweeper.run(ctx)
		}()
	}
	<-ctx.Done()
	return nil
}

// Stop 等待进行中的任务结束后关闭
func (s *Service) Stop(_ context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	s.server.Shutdown()
	s.sweepWG.Wait()
	return nil
}
