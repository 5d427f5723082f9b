package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"tg-moderator/internal/config"
)

// Level orders log severities, lowest first.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
	LevelFatal
)

var levelNames = map[Level]string{
	LevelDebug:   "DEBUG",
	LevelInfo:    "INFO",
	LevelWarning: "WARNING",
	LevelError:   "ERROR",
	LevelFatal:   "FATAL",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL(%d)", int32(l))
}

// ParseLevel maps a configured level name to a Level, defaulting to INFO.
func ParseLevel(name string) Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarning
	case "ERROR":
		return LevelError
	case "FATAL":
		return LevelFatal
	default:
		return LevelInfo
	}
}

var minLevel atomic.Int32

func init() {
	minLevel.Store(int32(LevelInfo))
}

// SetLevel changes the minimum level that is written.
func SetLevel(l Level) {
	minLevel.Store(int32(l))
}

// Enabled reports whether messages at l are written.
func Enabled(l Level) bool {
	return int32(l) >= minLevel.Load()
}

// createLogFilePath generates a log file path with the current date
func createLogFilePath(logDir, prefix string) string {
	currentDate := time.Now().Format("2006-01-02")
	return filepath.Join(logDir, fmt.Sprintf("%s-%s.log", prefix, currentDate))
}

// createRotatingLogger creates a lumberjack rotating logger
func createRotatingLogger(logFilePath string, cfg *config.Config) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    cfg.Logger.Rotation.MaxSize,
		MaxBackups: cfg.Logger.Rotation.MaxBackups,
		MaxAge:     cfg.Logger.Rotation.MaxAge,
		Compress:   cfg.Logger.Rotation.Compress,
	}
}

// Setup configures logging to output to both stdout and a rotating log file
func Setup(cfg *config.Config) error {
	logDir := cfg.Logger.Directory

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	logFilePath := createLogFilePath(logDir, "tg-moderator")
	rotatingLogger := createRotatingLogger(logFilePath, cfg)

	log.SetOutput(io.MultiWriter(os.Stdout, rotatingLogger))
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	SetLevel(ParseLevel(cfg.Logger.Level))

	log.Printf("Logging initialized: writing to %s (level %s)", logFilePath, ParseLevel(cfg.Logger.Level))
	return nil
}

// callDepth points log.Lshortfile at the caller of the exported helper.
const callDepth = 3

func output(l Level, msg string) {
	if !Enabled(l) {
		return
	}
	_ = log.Output(callDepth, "["+l.String()+"] "+msg)
}

func Debugf(format string, args ...any)   { output(LevelDebug, fmt.Sprintf(format, args...)) }
func Infof(format string, args ...any)    { output(LevelInfo, fmt.Sprintf(format, args...)) }
func Warningf(format string, args ...any) { output(LevelWarning, fmt.Sprintf(format, args...)) }
func Errorf(format string, args ...any)   { output(LevelError, fmt.Sprintf(format, args...)) }

func Debug(args ...any)   { output(LevelDebug, fmt.Sprint(args...)) }
func Info(args ...any)    { output(LevelInfo, fmt.Sprint(args...)) }
func Warning(args ...any) { output(LevelWarning, fmt.Sprint(args...)) }
func Error(args ...any)   { output(LevelError, fmt.Sprint(args...)) }

// Fatalf logs at FATAL regardless of level and exits.
func Fatalf(format string, args ...any) {
	_ = log.Output(callDepth-1, "["+LevelFatal.String()+"] "+fmt.Sprintf(format, args...))
	os.Exit(1)
}
