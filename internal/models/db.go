package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chiptrack/internal/logger"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// DBPoolConfig 数据库连接池配置
type DBPoolConfig struct {
	MaxOpenConns           int
	MaxIdleConns           int
	ConnMaxLifetimeSeconds int
	ConnMaxIdleTimeSeconds int
}

// DBOptions 数据库连接参数
type DBOptions struct {
	Driver        string
	DSN           string
	Pool          DBPoolConfig
	Debug         bool
	SlowThreshold time.Duration
}

// InitDB 初始化全局数据库连接
func InitDB(opts DBOptions) error {
	db, err := OpenDB(opts)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// OpenDB 按驱动打开连接并应用连接池，SQL 日志统一走 zap
func OpenDB(opts DBOptions) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", "sqlite":
		dialector = sqlite.Open(withSQLiteBusyTimeout(opts.DSN))
	case "postgres", "postgresql":
		dialector = postgres.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", opts.Driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.NewGormLogger(opts.Debug, opts.SlowThreshold),
		// 唯一索引冲突统一转换为 gorm.ErrDuplicatedKey
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", opts.Driver, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	applyDBPool(sqlDB, opts.Pool)
	return db, nil
}

// Ping 就绪探测
func Ping(ctx context.Context) error {
	if DB == nil {
		return errors.New("database not initialized")
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// CloseDB 关闭连接池
func CloseDB() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// 并发写入时 SQLite 需要等待锁释放
func withSQLiteBusyTimeout(dsn string) string {
	if strings.Contains(dsn, "busy_timeout") || strings.Contains(dsn, "mode=memory") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)"
}

// IsDuplicateKey 判断是否唯一约束冲突
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

func applyDBPool(sqlDB *sql.DB, pool DBPoolConfig) {
	if sqlDB == nil {
		return
	}
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns >= 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetimeSeconds > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(pool.ConnMaxLifetimeSeconds) * time.Second)
	}
	if pool.ConnMaxIdleTimeSeconds > 0 {
		sqlDB.SetConnMaxIdleTime(time.Duration(pool.ConnMaxIdleTimeSeconds) * time.Second)
	}
}

// AutoMigrate 自动迁移所有数据库表
func AutoMigrate() error {
	return DB.AutoMigrate(
		&Admin{},
		&Customer{},
		&ControlPoint{},
		&SupplierOrder{},
		&SupplierOrderLine{},
		&Order{},
		&RfidChip{},
		&RfidChipStatusHistory{},
		&ChipSecurityEvent{},
		&AuthzAuditLog{},
	)
}
