package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	BackendSlog = "slog"
	BackendZap  = "zap"

	FormatJSON = "json"
	FormatText = "text"
)

// Options selects and tunes a Logger implementation.
type Options struct {
	Backend string // "slog" (default) or "zap"
	Format  string // "json" (default) or "text"
	Level   string // debug, info, warn, error
	Output  io.Writer
}

// New builds a Logger from opts. The returned close func flushes the backend
// and is always non-nil.
func New(opts Options) (Logger, func() error, error) {
	level := strings.ToLower(strings.TrimSpace(opts.Level))
	if level == "" {
		level = "info"
	}

	switch strings.ToLower(opts.Backend) {
	case "", BackendSlog:
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		hopts := &slog.HandlerOptions{Level: lvl}

		var h slog.Handler
		switch opts.Format {
		case FormatText:
			h = slog.NewTextHandler(opts.Output, hopts)
		case "", FormatJSON:
			h = slog.NewJSONHandler(opts.Output, hopts)
		default:
			return nil, nil, fmt.Errorf("unsupported log format %q", opts.Format)
		}
		return NewSlogLogger(slog.New(h)), func() error { return nil }, nil

	case BackendZap:
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}

		encCfg := zap.NewProductionEncoderConfig()
		encCfg.TimeKey = "time"
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

		var enc zapcore.Encoder
		switch opts.Format {
		case FormatText:
			enc = zapcore.NewConsoleEncoder(encCfg)
		case "", FormatJSON:
			enc = zapcore.NewJSONEncoder(encCfg)
		default:
			return nil, nil, fmt.Errorf("unsupported log format %q", opts.Format)
		}

		core := zapcore.NewCore(enc, zapcore.AddSync(opts.Output), lvl)
		zl := NewZapLogger(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)))
		return zl, zl.Sync, nil

	default:
		return nil, nil, fmt.Errorf("unsupported log backend %q", opts.Backend)
	}
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return &ZapLogger{l: zap.NewNop().Sugar()}
}
