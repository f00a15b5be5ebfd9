package log

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"
	"time"
)

type Level int32

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var (
	currentLevel atomic.Int32
	logger       = log.New(os.Stdout, "", 0)
)

func init() {
	currentLevel.Store(int32(InfoLevel))
}

type Formatter struct{}

func (f *Formatter) Format(level Level, message string) string {
	var levelStr string
	switch level {
	case DebugLevel:
		levelStr = "DEBUG"
	case InfoLevel:
		levelStr = "INFO"
	case WarnLevel:
		levelStr = "WARN"
	case ErrorLevel:
		levelStr = "ERROR"
	default:
		return "invalid log level"
	}

	return fmt.Sprintf("[GATEKEEPER][%s][%s] %s\n", levelStr, time.Now().Format("15:04:05"), message)
}

func logMessage(level Level, args ...any) {
	if int32(level) >= currentLevel.Load() {
		formatter := &Formatter{}
		logger.Print(formatter.Format(level, fmt.Sprint(args...)))
	}
}

func logMessagef(level Level, format string, args ...any) {
	if int32(level) >= currentLevel.Load() {
		formatter := &Formatter{}
		logger.Print(formatter.Format(level, fmt.Sprintf(format, args...)))
	}
}

func Debug(args ...any) {
	logMessage(DebugLevel, args...)
}

func Info(args ...any) {
	logMessage(InfoLevel, args...)
}

func Warn(args ...any) {
	logMessage(WarnLevel, args...)
}

func Error(args ...any) {
	logMessage(ErrorLevel, args...)
}

func Debugf(format string, args ...any) {
	logMessagef(DebugLevel, format, args...)
}

func Infof(format string, args ...any) {
	logMessagef(InfoLevel, format, args...)
}

func Warnf(format string, args ...any) {
	logMessagef(WarnLevel, format, args...)
}

func Errorf(format string, args ...any) {
	logMessagef(ErrorLevel, format, args...)
}

// SetLevel sets the minimum level that gets written out.
func SetLevel(level string) error {
	switch level {
	case "DEBUG":
		currentLevel.Store(int32(DebugLevel))
	case "INFO":
		currentLevel.Store(int32(InfoLevel))
	case "WARN":
		currentLevel.Store(int32(WarnLevel))
	case "ERROR":
		currentLevel.Store(int32(ErrorLevel))
	default:
		return errors.New("invalid log level")
	}
	return nil
}

// SetOutput redirects log output, mainly so tests can capture it.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}
