package storage

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// LogLevel is the severity of a log entry.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARNING
	ERROR
	FATAL
)

// Logger is a leveled file logger. Entries are also fanned out to any
// subscriber channels, which the web log view consumes.
type Logger struct {
	path        string
	file        *os.File
	mu          sync.Mutex
	subscribers []chan string
}

// NewLogger opens (or creates) the log file at path.
func NewLogger(path string) (*Logger, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	return &Logger{
		path: path,
		file: file,
	}, nil
}

func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Log writes one entry at the given level.
func (l *Logger) Log(level LogLevel, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := fmt.Sprintf("[%s] %s: %s\n",
		time.Now().Format("2006-01-02 15:04:05"),
		level.String(),
		message)

	l.file.WriteString(entry)

	for _, ch := range l.subscribers {
		select {
		case ch <- entry:
		default: // subscriber is slow, drop
		}
	}
}

// CheckRotate rotates the log file when it exceeds maxSize. The maxSize
// string accepts a product expression such as "10 * 1024 * 1024".
func (l *Logger) CheckRotate(maxSize string) error {
	l.mu.Lock()
	info, err := l.file.Stat()
	l.mu.Unlock()
	if err != nil {
		return err
	}

	if info.Size() > evalSize(maxSize) {
		return l.rotate()
	}
	return nil
}

func (l *Logger) rotate() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		l.file.Close()
		rotated := fmt.Sprintf("%s.%s", l.path, time.Now().Format("20060102150405"))
		os.Rename(l.path, rotated)
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	l.file = file
	return nil
}

// Subscribe returns a channel that receives every future log entry. The
// channel is buffered; entries are dropped rather than blocking the logger.
func (l *Logger) Subscribe() <-chan string {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch := make(chan string, 100)
	l.subscribers = append(l.subscribers, ch)
	return ch
}

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARNING:
		return "WARNING"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// evalSize evaluates a "a * b * c" product, defaulting to 10MiB on nonsense.
func evalSize(expr string) int64 {
	if strings.TrimSpace(expr) == "" {
		return 10 * 1024 * 1024
	}
	var result int64 = 1
	for _, part := range strings.Split(expr, "*") {
		num, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return 10 * 1024 * 1024
		}
		result *= int64(num)
	}
	return result
}

func (l *Logger) Debug(msg string)   { l.Log(DEBUG, msg) }
func (l *Logger) Info(msg string)    { l.Log(INFO, msg) }
func (l *Logger) Warning(msg string) { l.Log(WARNING, msg) }
func (l *Logger) Error(msg string)   { l.Log(ERROR, msg) }
func (l *Logger) Fatal(msg string)   { l.Log(FATAL, msg) }
