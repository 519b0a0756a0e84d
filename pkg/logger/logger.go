package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

// EnvLevel is the variable GetLogger reads its level from.
const EnvLevel = "SHINGLE_LOG_LEVEL"

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a level name, in any case, to its LogLevel.
func ParseLevel(s string) (LogLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG, true
	case "INFO":
		return INFO, true
	case "WARN", "WARNING":
		return WARN, true
	case "ERROR":
		return ERROR, true
	case "FATAL":
		return FATAL, true
	default:
		return INFO, false
	}
}

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorGray   = "\033[90m"
)

type Logger struct {
	mu         sync.Mutex
	out        io.Writer
	level      LogLevel
	prefix     string
	colorize   bool
	showCaller bool
	showTime   bool
	timeFormat string
	exit       func(int)
}

var (
	defaultLogger *Logger
	once          sync.Once
)

type Config struct {
	Level      LogLevel
	Prefix     string
	Colorize   bool
	ShowCaller bool
	ShowTime   bool
	TimeFormat string
	Output     io.Writer
}

// DefaultConfig logs INFO and above to stderr, colourised when stderr is a
// terminal.
func DefaultConfig() Config {
	return Config{
		Level:      INFO,
		Colorize:   isTerminal(os.Stderr),
		ShowTime:   true,
		TimeFormat: "2006-01-02 15:04:05",
		Output:     os.Stderr,
	}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = "2006-01-02 15:04:05"
	}

	return &Logger{
		out:        cfg.Output,
		level:      cfg.Level,
		prefix:     cfg.Prefix,
		colorize:   cfg.Colorize,
		showCaller: cfg.ShowCaller,
		showTime:   cfg.ShowTime,
		timeFormat: cfg.TimeFormat,
		exit:       os.Exit,
	}
}

func GetLogger() *Logger {
	once.Do(func() {
		cfg := DefaultConfig()
		if level, ok := ParseLevel(os.Getenv(EnvLevel)); ok {
			cfg.Level = level
		}
		defaultLogger = New(cfg)
	})
	return defaultLogger
}

func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) Level() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

func (l *Logger) SetColorize(colorize bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.colorize = colorize
}

var levelColors = map[LogLevel]string{
	DEBUG: colorGray,
	INFO:  colorBlue,
	WARN:  colorYellow,
	ERROR: colorRed,
	FATAL: colorRed,
}

// format renders "<time> [LEVEL] <file:line> <prefix> message", omitting
// the parts that are switched off.
func (l *Logger) format(level LogLevel, msg string, args ...any) string {
	var b strings.Builder
	sep := func() {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
	}

	if l.showTime {
		b.WriteString(time.Now().Format(l.timeFormat))
	}

	sep()
	if c, ok := levelColors[level]; ok && l.colorize {
		b.WriteString(c + "[" + level.String() + "]" + colorReset)
	} else {
		b.WriteString("[" + level.String() + "]")
	}

	if l.showCaller {
		// log, the exported method, then its caller
		if _, file, line, ok := runtime.Caller(3); ok {
			sep()
			fmt.Fprintf(&b, "%s:%d", filepath.Base(file), line)
		}
	}

	if l.prefix != "" {
		sep()
		b.WriteString(l.prefix)
	}

	sep()
	if len(args) > 0 {
		fmt.Fprintf(&b, msg, args...)
	} else {
		b.WriteString(msg)
	}
	return b.String()
}

func (l *Logger) log(level LogLevel, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	fmt.Fprintln(l.out, l.format(level, msg, args...))

	if level == FATAL {
		l.exit(1)
	}
}

func (l *Logger) Debugf(format string, args ...any) { l.log(DEBUG, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.log(INFO, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(WARN, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.log(ERROR, format, args...) }

// Fatalf logs at FATAL level and exits with status 1.
func (l *Logger) Fatalf(format string, args ...any) { l.log(FATAL, format, args...) }

// Package-level helpers on the default logger.

func Debugf(format string, args ...any) { GetLogger().Debugf(format, args...) }
func Infof(format string, args ...any)  { GetLogger().Infof(format, args...) }
func Warnf(format string, args ...any)  { GetLogger().Warnf(format, args...) }
func Errorf(format string, args ...any) { GetLogger().Errorf(format, args...) }
func Fatalf(format string, args ...any) { GetLogger().Fatalf(format, args...) }

func SetLevel(level LogLevel) { GetLogger().SetLevel(level) }
