package logger

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// 日志输出格式
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Init 初始化全局日志器
func Init(level, format string) error {
	return InitWithWriter(level, format, os.Stdout)
}

// InitWithWriter 初始化全局日志器并指定输出（便于测试）
func InitWithWriter(level, format string, out io.Writer) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var w io.Writer
	switch format {
	case FormatJSON:
		w = out
	case FormatConsole, "":
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	default:
		return fmt.Errorf("invalid log format %q", format)
	}

	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
	return nil
}

// Component 返回带组件字段的子日志器
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// LogPanic 记录 panic 及堆栈
func LogPanic(r any) {
	log.Error().
		Str("panic", fmt.Sprint(r)).
		Str("stack", string(debug.Stack())).
		Msg("💥 recovered from panic")
}
