package worker

import (
	"context"
	"errors"
	"time"

	"github.com/chiptrack/internal/logger"
	"github.com/chiptrack/internal/provider"
	"github.com/chiptrack/internal/queue"
	"github.com/chiptrack/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskChipSecurityAlert, c.observe(queue.TaskChipSecurityAlert, c.handleChipSecurityAlert))
	mux.HandleFunc(queue.TaskChipWhitelistRefresh, c.observe(queue.TaskChipWhitelistRefresh, c.handleChipWhitelistRefresh))
	mux.HandleFunc(queue.TaskChipSavRequested, c.observe(queue.TaskChipSavRequested, c.handleChipSavRequested))
}

func (c *Consumer) observe(taskType string, handler func(context.Context, *asynq.Task) error) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		started := time.Now()
		err := handler(ctx, task)
		if c != nil && c.Container != nil {
			c.TaskMetrics.Observe(taskType, started, err)
		}
		return err
	}
}

// handleChipSecurityAlert 告警分发：写入 security 审计通道后回写 notified_at
func (c *Consumer) handleChipSecurityAlert(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_chip_security_alert_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseChipSecurityAlertPayload(task)
	if err != nil {
		logger.Warnw("worker_chip_security_alert_unmarshal_failed", "error", err)
		return err
	}
	if payload.EventID == 0 {
		logger.Debugw("worker_chip_security_alert_skip_invalid_payload", "event_id", payload.EventID)
		return nil
	}
	if c.ChipService == nil {
		logger.Warnw("worker_chip_security_alert_skip_service_nil", "event_id", payload.EventID)
		return nil
	}

	logger.SecurityAlertw("chip_security_alert_dispatched",
		"event_id", payload.EventID,
		"reason", payload.Reason,
		"uid", payload.UID,
	)
	if _, err := c.ChipService.MarkSecurityEventNotified(payload.EventID); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			logger.Debugw("worker_chip_security_alert_skip_event_not_found", "event_id", payload.EventID)
			return nil
		}
		logger.Warnw("worker_chip_security_alert_mark_failed", "event_id", payload.EventID, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) handleChipWhitelistRefresh(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_chip_whitelist_refresh_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseChipWhitelistRefreshPayload(task)
	if err != nil {
		logger.Warnw("worker_chip_whitelist_refresh_unmarshal_failed", "error", err)
		return err
	}
	if payload.CustomerID == 0 {
		logger.Debugw("worker_chip_whitelist_refresh_skip_invalid_payload", "customer_id", payload.CustomerID)
		return nil
	}
	if c.ChipService == nil {
		logger.Warnw("worker_chip_whitelist_refresh_skip_service_nil", "customer_id", payload.CustomerID)
		return nil
	}
	list, err := c.ChipService.RefreshWhitelist(ctx, payload.CustomerID)
	if err != nil {
		logger.Warnw("worker_chip_whitelist_refresh_failed", "customer_id", payload.CustomerID, "error", err)
		return err
	}
	logger.Debugw("worker_chip_whitelist_refreshed", "customer_id", payload.CustomerID, "entries", len(list.Entries))
	return nil
}

func (c *Consumer) handleChipSavRequested(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_chip_sav_requested_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseChipSavRequestedPayload(task)
	if err != nil {
		logger.Warnw("worker_chip_sav_requested_unmarshal_failed", "error", err)
		return err
	}
	if payload.ChipID == 0 {
		logger.Debugw("worker_chip_sav_requested_skip_invalid_payload", "chip_id", payload.ChipID)
		return nil
	}
	if c.ChipRepo == nil {
		logger.Warnw("worker_chip_sav_requested_skip_repo_nil", "chip_id", payload.ChipID)
		return nil
	}
	chip, err := c.ChipRepo.GetByID(payload.ChipID)
	if err != nil {
		logger.Warnw("worker_chip_sav_requested_fetch_chip_failed", "chip_id", payload.ChipID, "error", err)
		return err
	}
	if chip == nil {
		logger.Debugw("worker_chip_sav_requested_skip_chip_not_found", "chip_id", payload.ChipID)
		return nil
	}
	logger.Infow("worker_chip_sav_requested",
		"chip_id", chip.ID,
		"uid", chip.UID,
		"status", chip.Status,
		"customer_id", payload.CustomerID,
		"warranty_order_id", payload.WarrantyOrderID,
		"reason", payload.Reason,
	)
	return nil
}
