package app

import (
	"errors"

	"github.com/chiptrack/internal/config"
	"github.com/chiptrack/internal/logger"
	"github.com/chiptrack/internal/models"
	"github.com/chiptrack/internal/provider"
	"github.com/chiptrack/internal/router"
	"github.com/chiptrack/internal/worker"
)

// BuildRunner 按启动模式组装 API 与队列消费者
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	mode, err := ParseMode(mode)
	if err != nil {
		return nil, err
	}
	if mode == ModeWorker && !cfg.Queue.Enabled {
		return nil, errors.New("worker mode requires queue.enabled=true")
	}

	container := provider.NewContainer(cfg)
	var services []Service

	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		services = append(services, NewHTTPService(cfg.Server, engine))
	}

	if mode == ModeAll || mode == ModeWorker {
		if cfg.Queue.Enabled {
			workerService, err := worker.NewService(&cfg.Queue, worker.NewConsumer(container))
			if err != nil {
				return nil, err
			}
			services = append(services, workerService)
		} else {
			// 未启用队列时安全告警只写日志与事件表，不做投递与补发
			logger.Warnw("app_worker_skipped_queue_disabled", "mode", mode)
		}
	}

	runner := NewRunner(services...)
	runner.OnShutdown("database", models.CloseDB)
	runner.OnShutdown("container", container.Close)
	return runner, nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}
	opts.Logger.Infow("app_start", "addr", opts.Config.Server.Addr(), "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
