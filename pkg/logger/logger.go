package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"accessctl/pkg/config"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger 未调用 Initialize 前使用 logrus 默认配置
var Logger = logrus.New()

// 这些字段的值在输出前被替换
var sensitiveFields = []string{"password", "token", "selection_ticket", "authorization", "secret"}

const redacted = "[REDACTED]"

// redactHook 屏蔽凭证类字段
type redactHook struct{}

func (redactHook) Levels() []logrus.Level { return logrus.AllLevels }

func (redactHook) Fire(entry *logrus.Entry) error {
	for key := range entry.Data {
		lower := strings.ToLower(key)
		for _, s := range sensitiveFields {
			if strings.Contains(lower, s) {
				entry.Data[key] = redacted
				break
			}
		}
	}
	return nil
}

// Initialize 按配置重建全局日志：等级、格式、文件轮转
func Initialize(cfg *config.Config) error {
	l := logrus.New()
	l.AddHook(redactHook{})

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	switch strings.ToLower(cfg.Log.Format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05"})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if cfg.Log.FilePath == "" {
		Logger = l
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Log.FilePath), 0755); err != nil {
		return err
	}
	l.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	}))

	Logger = l
	return nil
}

// GetLogger 获取日志实例
func GetLogger() *logrus.Logger {
	return Logger
}
