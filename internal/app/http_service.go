package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/chiptrack/internal/config"
	"github.com/chiptrack/internal/logger"
)

// HTTPService 对外 API 服务
type HTTPService struct {
	server *http.Server
}

// NewHTTPService 按服务配置创建 HTTP 服务（含读写超时）
func NewHTTPService(cfg config.ServerConfig, handler http.Handler) *HTTPService {
	return &HTTPService{
		server: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           handler,
			ReadHeaderTimeout: seconds(cfg.ReadHeaderTimeoutSeconds),
			ReadTimeout:       seconds(cfg.ReadTimeoutSeconds),
			WriteTimeout:      seconds(cfg.WriteTimeoutSeconds),
			IdleTimeout:       seconds(cfg.IdleTimeoutSeconds),
		},
	}
}

func seconds(value int) time.Duration {
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

// Name 服务名称
func (s *HTTPService) Name() string {
	return "http-api"
}

// Start 阻塞监听，正常关闭时返回 nil
func (s *HTTPService) Start(_ context.Context) error {
	if s == nil || s.server == nil {
		return errors.New("http server not initialized")
	}
	logger.Infow("http_api_listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http api on %s: %w", s.server.Addr, err)
	}
	return nil
}

// Stop 优雅关闭，等待进行中的芯片流转请求完成
func (s *HTTPService) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
