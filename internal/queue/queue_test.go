package queue

import (
	"testing"
	"time"

	"github.com/chiptrack/internal/config"
)

func TestDisabledClientIsNoop(t *testing.T) {
	client, err := NewClient(&config.QueueConfig{Enabled: false})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if client.Enabled() {
		t.Fatalf("client should be disabled")
	}
	if err := client.EnqueueChipSecurityAlert(ChipSecurityAlertPayload{EventID: 1}); err != nil {
		t.Fatalf("disabled enqueue should be noop, got %v", err)
	}
	if err := client.EnqueueChipWhitelistRefresh(ChipWhitelistRefreshPayload{CustomerID: 1}, time.Second); err != nil {
		t.Fatalf("disabled enqueue should be noop, got %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close disabled client failed: %v", err)
	}
}

func TestBuildServerConfig(t *testing.T) {
	opt, cfg := BuildServerConfig(&config.QueueConfig{Host: " redis ", Port: 6380, DB: 2, Concurrency: 4})
	if opt.Addr != "redis:6380" || opt.DB != 2 {
		t.Fatalf("unexpected redis opt: %+v", opt)
	}
	if cfg.Concurrency != 4 {
		t.Fatalf("concurrency want 4 got %d", cfg.Concurrency)
	}
	if cfg.Queues[CriticalQueue] <= cfg.Queues[DefaultQueue] {
		t.Fatalf("critical queue should outweigh default: %v", cfg.Queues)
	}
	if cfg.Logger == nil || cfg.ErrorHandler == nil {
		t.Fatalf("expected logger and error handler wired")
	}

	opt, cfg = BuildServerConfig(nil)
	if opt.Addr != "127.0.0.1:6379" || cfg.Concurrency != defaultConcurrency {
		t.Fatalf("unexpected defaults: %s %d", opt.Addr, cfg.Concurrency)
	}
}

func TestParsePayloadRejectsForeignTask(t *testing.T) {
	task, err := NewChipSavRequestedTask(ChipSavRequestedPayload{ChipID: 3, UID: "04A1B2C3D4E5F6"})
	if err != nil {
		t.Fatalf("new task failed: %v", err)
	}
	if _, err := ParseChipSecurityAlertPayload(task); err == nil {
		t.Fatalf("expected task type mismatch")
	}
	payload, err := ParseChipSavRequestedPayload(task)
	if err != nil || payload.ChipID != 3 || payload.UID != "04A1B2C3D4E5F6" {
		t.Fatalf("unexpected payload %+v err=%v", payload, err)
	}
	if _, err := ParseChipWhitelistRefreshPayload(nil); err == nil {
		t.Fatalf("expected nil task rejected")
	}
}
