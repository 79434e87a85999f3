package core

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var once sync.Once

type logger struct {
	*log.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

var singleton *logger

func getLogger() *logger {
	once.Do(
		func() {
			l := log.NewWithOptions(os.Stderr, log.Options{
				ReportCaller:    true,
				ReportTimestamp: true,
				TimeFormat:      time.RFC3339,
				CallerOffset:    1,
				Prefix:          "Prism 🔺",
				Level:           log.InfoLevel,
			})
			singleton = &logger{
				Logger: l,
				seen:   make(map[string]struct{}),
			}
		})
	return singleton
}

// Logger returns the process wide logger, for callers that want key/value
// pairs instead of printf style messages.
func Logger() *log.Logger {
	return getLogger().Logger
}

// SetLogLevel changes the level of the process wide logger. Accepted values
// are debug, info, warn, error and fatal.
func SetLogLevel(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	getLogger().SetLevel(lvl)
	return nil
}

func LogDebug(msg string, args ...interface{}) {
	getLogger().Debugf(msg, args...)
}

func LogInfo(msg string, args ...interface{}) {
	getLogger().Infof(msg, args...)
}

func LogWarn(msg string, args ...interface{}) {
	getLogger().Warnf(msg, args...)
}

func LogError(msg string, args ...interface{}) {
	getLogger().Errorf(msg, args...)
}

func LogFatal(msg string, args ...interface{}) {
	getLogger().Fatalf(msg, args...)
}

// WarnOnce logs a warning the first time key is seen and reports whether it
// did. Later calls with the same key are dropped.
func WarnOnce(key string, msg string, args ...interface{}) bool {
	l := getLogger()
	l.mu.Lock()
	if _, ok := l.seen[key]; ok {
		l.mu.Unlock()
		return false
	}
	l.seen[key] = struct{}{}
	l.mu.Unlock()

	l.Warnf(msg, args...)
	return true
}
