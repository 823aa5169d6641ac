// Package observe file: internal/observe/logging.go
package observe

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// level 是全局日志级别，配置热更新时通过 SetLevel 修改。
var level = new(slog.LevelVar)

// ParseLevel 把配置字符串解析为日志级别，无法识别时为 INFO。
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// InitLogger 初始化全局的结构化日志记录器。
// format 为 "text" 时输出带颜色的控制台日志，其余情况输出 JSON。
func InitLogger(levelStr, format string) *slog.Logger {
	return initLogger(os.Stdout, levelStr, format)
}

func initLogger(w io.Writer, levelStr, format string) *slog.Logger {
	level.Set(ParseLevel(levelStr))

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.DateTime,
			AddSource:  true,
		})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     level,
			AddSource: true,
		})
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// SetLevel 在运行时调整全局日志级别
func SetLevel(levelStr string) {
	next := ParseLevel(levelStr)
	if level.Level() == next {
		return
	}
	level.Set(next)
	slog.Info("日志级别已更新", "level", next.String())
}

// Level 返回当前日志级别
func Level() slog.Level {
	return level.Level()
}
