package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog with a small typed-field API.
type Logger struct {
	zl zerolog.Logger
}

type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json or console
	Output     string // stdout, stderr or a file path
	TimeFormat string
}

func New(cfg *Config) (*Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
		}
		level = lvl
	}

	out, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}

	tf := cfg.TimeFormat
	if tf == "" {
		tf = time.RFC3339Nano
	}
	zerolog.TimeFieldFormat = tf
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: tf}
	}

	zl := zerolog.New(out).Level(level).With().Timestamp().CallerWithSkipFrameCount(3).Logger()
	return &Logger{zl: zl}, nil
}

func openOutput(dest string) (io.Writer, error) {
	switch dest {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	f, err := os.OpenFile(dest, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("log output: %w", err)
	}
	return f, nil
}

// NewWriter writes JSON lines to w. An unknown level means debug.
func NewWriter(w io.Writer, level string) *Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.DebugLevel
	}
	return &Logger{zl: zerolog.New(w).Level(lvl).With().Timestamp().Logger()}
}

func Nop() *Logger { return &Logger{zl: zerolog.Nop()} }

// With returns a child logger that adds fields to every event.
func (l *Logger) With(fields ...Field) *Logger {
	c := l.zl.With()
	for _, f := range fields {
		c = f.attach(c)
	}
	return &Logger{zl: c.Logger()}
}

func (l *Logger) Debug(msg string, fields ...Field) { write(l.zl.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { write(l.zl.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { write(l.zl.Warn(), msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { write(l.zl.Error(), msg, fields) }

func write(e *zerolog.Event, msg string, fields []Field) {
	if e == nil {
		return
	}
	for _, f := range fields {
		e = f.add(e)
	}
	e.Msg(msg)
}

type kind uint8

const (
	kindString kind = iota
	kindInt
	kindFloat
	kindBool
	kindErr
	kindAny
)

// Field is one typed key/value pair. Build it with the constructors below.
type Field struct {
	key  string
	kind kind
	s    string
	i    int64
	f    float64
	err  error
	v    interface{}
}

func (f Field) add(e *zerolog.Event) *zerolog.Event {
	switch f.kind {
	case kindString:
		return e.Str(f.key, f.s)
	case kindInt:
		return e.Int64(f.key, f.i)
	case kindFloat:
		return e.Float64(f.key, f.f)
	case kindBool:
		return e.Bool(f.key, f.i != 0)
	case kindErr:
		return e.AnErr(f.key, f.err)
	default:
		return e.Interface(f.key, f.v)
	}
}

func (f Field) attach(c zerolog.Context) zerolog.Context {
	switch f.kind {
	case kindString:
		return c.Str(f.key, f.s)
	case kindInt:
		return c.Int64(f.key, f.i)
	case kindFloat:
		return c.Float64(f.key, f.f)
	case kindBool:
		return c.Bool(f.key, f.i != 0)
	case kindErr:
		return c.AnErr(f.key, f.err)
	default:
		return c.Interface(f.key, f.v)
	}
}

func String(key, value string) Field { return Field{key: key, kind: kindString, s: value} }

// Strings joins the values with ", ".
func Strings(key string, value []string) Field { return String(key, strings.Join(value, ", ")) }

func Int(key string, value int) Field     { return Field{key: key, kind: kindInt, i: int64(value)} }
func Int64(key string, value int64) Field { return Field{key: key, kind: kindInt, i: value} }

func Float64(key string, value float64) Field { return Field{key: key, kind: kindFloat, f: value} }

func Bool(key string, value bool) Field {
	f := Field{key: key, kind: kindBool}
	if value {
		f.i = 1
	}
	return f
}

// Duration logs whole milliseconds.
func Duration(key string, value time.Duration) Field { return Int64(key, value.Milliseconds()) }

// Error logs err under "error"; a nil err is omitted.
func Error(err error) Field { return Field{key: zerolog.ErrorFieldName, kind: kindErr, err: err} }

func Any(key string, value interface{}) Field { return Field{key: key, kind: kindAny, v: value} }
