package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/chiptrack/internal/app"
	"github.com/chiptrack/internal/config"
	"github.com/chiptrack/internal/logger"
	"github.com/chiptrack/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	ansiReset     = "\033[0m"
	ansiBold      = "\033[1m"
	ansiDim       = "\033[2m"
	ansiGreen     = "\033[32m"
	ansiBlue      = "\033[34m"
	ansiCyan      = "\033[36m"
	ansiBrightMag = "\033[95m"
)

func main() {
	printStartupBanner()

	// 加载配置
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	if err := cfg.ValidateRelease(); err != nil {
		stdLog.Fatalf("密钥校验失败，请在生产环境中配置强随机密钥: %v", err)
	}
	if weak := cfg.WeakSecrets(); len(weak) > 0 {
		stdLog.Printf("警告: 以下密钥过弱或仍为默认值，建议在生产环境中更换: %s", strings.Join(weak, ", "))
	}

	// 初始化数据库
	if err := models.InitDB(cfg.Database.ToDBOptions()); err != nil {
		stdLog.Fatalf("数据库初始化失败: %v", err)
	}

	// 自动迁移数据库表
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("数据库迁移失败: %v", err)
	}

	// 初始化默认管理员账号
	defaultAdminUser := os.Getenv("CHIPTRACK_DEFAULT_ADMIN_USERNAME")
	defaultAdminPass := os.Getenv("CHIPTRACK_DEFAULT_ADMIN_PASSWORD")
	if cfg.Server.Mode == "release" && defaultAdminPass == "" {
		stdLog.Printf("警告: 未设置 CHIPTRACK_DEFAULT_ADMIN_PASSWORD，已跳过默认管理员初始化")
	} else if err := models.InitDefaultAdmin(defaultAdminUser, defaultAdminPass); err != nil {
		stdLog.Printf("警告: 初始化默认管理员失败: %v", err)
	}

	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 解析命令行参数
	var mode string
	flag.StringVar(&mode, "mode", app.ModeAll, "启动模式: all (默认), api, worker")
	flag.Parse()

	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	}); err != nil {
		stdLog.Fatalf("服务运行失败: %v", err)
	}
}

func printStartupBanner() {
	fmt.Println(ansiBrightMag + "╔══════════════════════════════════════════════════════════╗" + ansiReset)
	fmt.Println(ansiBrightMag + "║              ChipTrack RFID Lifecycle API                ║" + ansiReset)
	fmt.Println(ansiBrightMag + "╚══════════════════════════════════════════════════════════╝" + ansiReset)
	fmt.Println(ansiCyan + "  factory  →  stock  →  delivery  →  active  →  sav  →  archive" + ansiReset)
	fmt.Println(ansiGreen + ansiBold + "Modes" + ansiReset)
	fmt.Println(ansiBlue + "• all:    HTTP API + queue worker" + ansiReset)
	fmt.Println(ansiBlue + "• api:    HTTP API only" + ansiReset)
	fmt.Println(ansiBlue + "• worker: queue worker only" + ansiReset)
	fmt.Println(ansiDim + "--------------------------------------------------------------" + ansiReset)
}
