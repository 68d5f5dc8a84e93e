package worker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/chiptrack/internal/config"
	"github.com/chiptrack/internal/constants"
	"github.com/chiptrack/internal/metrics"
	"github.com/chiptrack/internal/models"
	"github.com/chiptrack/internal/provider"
	"github.com/chiptrack/internal/queue"
	"github.com/chiptrack/internal/repository"
	"github.com/chiptrack/internal/service"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

func setupConsumerTest(t *testing.T) (*Consumer, *gorm.DB, *prometheus.Registry) {
	t.Helper()
	dsn := fmt.Sprintf("file:worker_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Customer{},
		&models.SupplierOrder{},
		&models.SupplierOrderLine{},
		&models.Order{},
		&models.RfidChip{},
		&models.RfidChipStatusHistory{},
		&models.ChipSecurityEvent{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	reg := prometheus.NewRegistry()
	chipCfg := config.ChipConfig{ChecksumSecret: "worker-checksum", KeySecret: "worker-key", SaltBytes: 16}
	container := &provider.Container{
		Config:                &config.Config{Chip: chipCfg},
		ChipRepo:              repository.NewChipRepository(db),
		ChipSecurityEventRepo: repository.NewChipSecurityEventRepository(db),
		TaskMetrics:           metrics.NewTaskMetrics(reg),
	}
	container.ChipService = service.NewChipService(
		chipCfg,
		container.ChipRepo,
		repository.NewChipHistoryRepository(db),
		repository.NewOrderRepository(db),
		repository.NewCustomerRepository(db),
		repository.NewSupplierOrderRepository(db),
		container.ChipSecurityEventRepo,
		nil,
		nil,
		nil,
	)
	return NewConsumer(container), db, reg
}

func taskCounter(t *testing.T, reg *prometheus.Registry, name, task string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics failed: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if pair.GetName() == "task" && pair.GetValue() == task {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestHandleChipSecurityAlertMarksEventNotified(t *testing.T) {
	consumer, db, reg := setupConsumerTest(t)
	event := &models.ChipSecurityEvent{UID: "04A1B2C3D4E5F6", Reason: constants.ChipSecurityReasonChecksumMismatch}
	if err := db.Create(event).Error; err != nil {
		t.Fatalf("create event failed: %v", err)
	}

	task, err := queue.NewChipSecurityAlertTask(queue.ChipSecurityAlertPayload{EventID: event.ID, Reason: event.Reason, UID: event.UID})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	handler := consumer.observe(queue.TaskChipSecurityAlert, consumer.handleChipSecurityAlert)
	if err := handler(context.Background(), task); err != nil {
		t.Fatalf("handle alert failed: %v", err)
	}

	var stored models.ChipSecurityEvent
	if err := db.First(&stored, event.ID).Error; err != nil {
		t.Fatalf("reload event failed: %v", err)
	}
	if stored.NotifiedAt == nil {
		t.Fatalf("expected notified_at to be set")
	}
	if got := taskCounter(t, reg, "task_success_total", queue.TaskChipSecurityAlert); got != 1 {
		t.Fatalf("expected one successful task, got %f", got)
	}

	missing, _ := queue.NewChipSecurityAlertTask(queue.ChipSecurityAlertPayload{EventID: 9999})
	if err := handler(context.Background(), missing); err != nil {
		t.Fatalf("unknown event should be skipped, got %v", err)
	}
}

func TestHandleChipSecurityAlertRejectsMalformedPayload(t *testing.T) {
	consumer, _, reg := setupConsumerTest(t)
	handler := consumer.observe(queue.TaskChipSecurityAlert, consumer.handleChipSecurityAlert)
	if err := handler(context.Background(), asynq.NewTask(queue.TaskChipSecurityAlert, []byte("{"))); err == nil {
		t.Fatalf("expected malformed payload to fail")
	}
	if got := taskCounter(t, reg, "task_failure_total", queue.TaskChipSecurityAlert); got != 1 {
		t.Fatalf("expected one failed task, got %f", got)
	}
}

func TestHandleChipWhitelistRefresh(t *testing.T) {
	consumer, db, _ := setupConsumerTest(t)
	customer := &models.Customer{Name: "Acme"}
	if err := db.Create(customer).Error; err != nil {
		t.Fatalf("create customer failed: %v", err)
	}
	customerID := customer.ID
	chip := &models.RfidChip{ChipID: uuid.NewString(), UID: "04A1B2C3D4E5F7", Status: constants.ChipStatusActive, CustomerID: &customerID}
	if err := db.Create(chip).Error; err != nil {
		t.Fatalf("create chip failed: %v", err)
	}

	task, err := queue.NewChipWhitelistRefreshTask(queue.ChipWhitelistRefreshPayload{CustomerID: customer.ID})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if err := consumer.handleChipWhitelistRefresh(context.Background(), task); err != nil {
		t.Fatalf("refresh whitelist failed: %v", err)
	}

	empty, _ := queue.NewChipWhitelistRefreshTask(queue.ChipWhitelistRefreshPayload{})
	if err := consumer.handleChipWhitelistRefresh(context.Background(), empty); err != nil {
		t.Fatalf("empty payload should be skipped, got %v", err)
	}
}

func TestHandleChipSavRequestedSkipsUnknownChip(t *testing.T) {
	consumer, db, _ := setupConsumerTest(t)
	chip := &models.RfidChip{ChipID: uuid.NewString(), UID: "04A1B2C3D4E5F8", Status: constants.ChipStatusSavReturn}
	if err := db.Create(chip).Error; err != nil {
		t.Fatalf("create chip failed: %v", err)
	}

	for _, payload := range []queue.ChipSavRequestedPayload{
		{ChipID: chip.ID, UID: chip.UID, Reason: "antenna damaged"},
		{ChipID: 9999},
		{},
	} {
		task, err := queue.NewChipSavRequestedTask(payload)
		if err != nil {
			t.Fatalf("build task failed: %v", err)
		}
		if err := consumer.handleChipSavRequested(context.Background(), task); err != nil {
			t.Fatalf("sav notification for %+v failed: %v", payload, err)
		}
	}
}

func TestNewServiceRequiresEnabledQueue(t *testing.T) {
	if _, err := NewService(&config.QueueConfig{Enabled: false}, &Consumer{}); err == nil {
		t.Fatalf("expected disabled queue to be rejected")
	}
	if _, err := NewService(&config.QueueConfig{Enabled: true}, nil); err == nil {
		t.Fatalf("expected nil consumer to be rejected")
	}
}

type stubResender struct {
	calls int
	grace time.Duration
	limit int
	err   error
}

func (s *stubResender) ResendPendingSecurityAlerts(grace time.Duration, limit int) (int, error) {
	s.calls++
	s.grace = grace
	s.limit = limit
	return 2, s.err
}

func TestAlertSweeperAppliesConfig(t *testing.T) {
	stub := &stubResender{}
	sweeper := newAlertSweeper(stub, config.AlertSweepConfig{GraceSeconds: 30, Limit: 5})
	if sweeper.interval != defaultSweepInterval {
		t.Fatalf("unset interval should use default, got %s", sweeper.interval)
	}
	if sent := sweeper.sweep(); sent != 2 {
		t.Fatalf("expected 2 resent, got %d", sent)
	}
	if stub.grace != 30*time.Second || stub.limit != 5 {
		t.Fatalf("unexpected sweep args: %s %d", stub.grace, stub.limit)
	}

	stub.err = fmt.Errorf("redis down")
	if sent := sweeper.sweep(); sent != 0 {
		t.Fatalf("failed sweep should report 0, got %d", sent)
	}
}

func TestAlertSweeperRunStopsOnCancel(t *testing.T) {
	stub := &stubResender{}
	sweeper := newAlertSweeper(stub, config.AlertSweepConfig{IntervalSeconds: 3600})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("sweeper did not stop on cancel")
	}
	if stub.calls != 1 {
		t.Fatalf("expected one immediate sweep, got %d", stub.calls)
	}
}
