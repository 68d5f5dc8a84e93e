package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const defaultSlowQueryThreshold = 200 * time.Millisecond

// GormLogger 将 GORM 日志写入 zap，logger=gorm
type GormLogger struct {
	log           *zap.SugaredLogger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

// NewGormLogger 创建 GORM 日志适配；debug 时输出全部 SQL
func NewGormLogger(debug bool, slowThreshold time.Duration) *GormLogger {
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}
	if slowThreshold <= 0 {
		slowThreshold = defaultSlowQueryThreshold
	}
	return &GormLogger{
		log:           Z().Named("gorm").WithOptions(zap.AddCallerSkip(2)).Sugar(),
		level:         level,
		slowThreshold: slowThreshold,
	}
}

// LogMode 实现 gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		l.log.Infow(fmt.Sprintf(msg, args...))
	}
}

func (l *GormLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.log.Warnw(fmt.Sprintf(msg, args...))
	}
}

func (l *GormLogger) Error(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		l.log.Errorw(fmt.Sprintf(msg, args...))
	}
}

// Trace 记录 SQL 执行；未命中记录不算错误
func (l *GormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= gormlogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.log.Errorw("gorm_query_failed", "sql", sql, "rows", rows, "elapsed", elapsed, "error", err)
	case elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		l.log.Warnw("gorm_slow_query", "sql", sql, "rows", rows, "elapsed", elapsed, "threshold", l.slowThreshold)
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		l.log.Debugw("gorm_query", "sql", sql, "rows", rows, "elapsed", elapsed)
	}
}
