package queue

import (
	"encoding/json"
	"fmt"

	"github.com/chiptrack/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskChipSecurityAlert 芯片安全告警任务
	TaskChipSecurityAlert = constants.TaskChipSecurityAlert
	// TaskChipWhitelistRefresh 客户白名单预热任务
	TaskChipWhitelistRefresh = constants.TaskChipWhitelistRefresh
	// TaskChipSavRequested 售后申请通知任务
	TaskChipSavRequested = constants.TaskChipSavRequested
)

// ChipSecurityAlertPayload 安全告警任务载荷
type ChipSecurityAlertPayload struct {
	EventID uint   `json:"event_id"`
	Reason  string `json:"reason"`
	UID     string `json:"uid"`
}

// ChipWhitelistRefreshPayload 白名单预热任务载荷
type ChipWhitelistRefreshPayload struct {
	CustomerID uint `json:"customer_id"`
}

// ChipSavRequestedPayload 售后申请通知载荷
type ChipSavRequestedPayload struct {
	ChipID          uint   `json:"chip_id"`
	UID             string `json:"uid"`
	CustomerID      uint   `json:"customer_id"`
	WarrantyOrderID uint   `json:"warranty_order_id"`
	Reason          string `json:"reason"`
}

func newTask(taskType string, payload interface{}) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", taskType, err)
	}
	return asynq.NewTask(taskType, body), nil
}

// decodePayload 任务类型不符时直接拒绝，避免错投的载荷被静默解析为零值
func decodePayload[T any](task *asynq.Task, taskType string) (T, error) {
	var payload T
	if task == nil {
		return payload, fmt.Errorf("%s: nil task", taskType)
	}
	if task.Type() != taskType {
		return payload, fmt.Errorf("%s: unexpected task type %q", taskType, task.Type())
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("decode %s payload: %w", taskType, err)
	}
	return payload, nil
}

// NewChipSecurityAlertTask 创建安全告警任务
func NewChipSecurityAlertTask(payload ChipSecurityAlertPayload) (*asynq.Task, error) {
	return newTask(TaskChipSecurityAlert, payload)
}

// NewChipWhitelistRefreshTask 创建白名单预热任务
func NewChipWhitelistRefreshTask(payload ChipWhitelistRefreshPayload) (*asynq.Task, error) {
	return newTask(TaskChipWhitelistRefresh, payload)
}

// NewChipSavRequestedTask 创建售后通知任务
func NewChipSavRequestedTask(payload ChipSavRequestedPayload) (*asynq.Task, error) {
	return newTask(TaskChipSavRequested, payload)
}

func ParseChipSecurityAlertPayload(task *asynq.Task) (ChipSecurityAlertPayload, error) {
	return decodePayload[ChipSecurityAlertPayload](task, TaskChipSecurityAlert)
}

func ParseChipWhitelistRefreshPayload(task *asynq.Task) (ChipWhitelistRefreshPayload, error) {
	return decodePayload[ChipWhitelistRefreshPayload](task, TaskChipWhitelistRefresh)
}

func ParseChipSavRequestedPayload(task *asynq.Task) (ChipSavRequestedPayload, error) {
	return decodePayload[ChipSavRequestedPayload](task, TaskChipSavRequested)
}
