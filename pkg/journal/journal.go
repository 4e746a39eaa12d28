// Package journal provides the append-only record of every command
// attempt and workflow event in a maintenance run. Entries go to a
// size-bounded rotating file and, optionally, to the console; the file
// is the durable record, notifications are the lossy summary channel.
package journal

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// DefaultPath is where unattended runs keep their journal.
const DefaultPath = "/var/log/auto_update.log"

// Severity classifies journal entries. It is carried as a structured
// field on every entry so the file keeps the workflow's own taxonomy
// independent of the logging backend's level names.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Options configures the journal sink. Rotation bounds apply between
// runs; within a single run the file only ever grows.
type Options struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Console    bool
}

// Journal writes severity-tagged entries to the rotating file sink.
type Journal struct {
	sugar *zap.SugaredLogger
}

// Open validates that the journal file is writable and builds the sink.
func Open(opts Options) (*Journal, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("journal path must not be empty")
	}

	f, err := os.OpenFile(opts.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening journal file %s: %w", opts.Path, err)
	}
	_ = f.Close()

	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = 10
	}
	if opts.MaxBackups <= 0 {
		opts.MaxBackups = 5
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.UTC().Format(time.RFC3339))
	}

	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.Path,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
		}),
		zapcore.InfoLevel,
	)

	core := fileCore
	if opts.Console {
		consoleEnc := zap.NewDevelopmentEncoderConfig()
		consoleEnc.EncodeTime = encCfg.EncodeTime
		core = zapcore.NewTee(
			fileCore,
			zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEnc), zapcore.Lock(os.Stderr), zapcore.InfoLevel),
		)
	}

	logger := zap.New(core)
	return &Journal{sugar: logger.Sugar()}, nil
}

// NewNop returns a journal that discards everything. Test helper.
func NewNop() *Journal {
	return &Journal{sugar: zap.NewNop().Sugar()}
}

// NewConsole returns a journal that writes to stderr only. Interactive
// commands fall back to it when the journal file is not writable.
func NewConsole() *Journal {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.UTC().Format(time.RFC3339))
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), zapcore.InfoLevel)
	return &Journal{sugar: zap.New(core).Sugar()}
}

// With returns a derived journal whose entries all carry the given
// key/value pairs, used to stamp the run identifier on every entry.
func (j *Journal) With(kv ...interface{}) *Journal {
	return &Journal{sugar: j.sugar.With(kv...)}
}

// Info records an informational entry.
func (j *Journal) Info(msg string, kv ...interface{}) {
	j.write(SeverityInfo, msg, kv)
}

// Warning records a degraded-but-continuing condition.
func (j *Journal) Warning(msg string, kv ...interface{}) {
	j.write(SeverityWarning, msg, kv)
}

// Error records a failed operation the run survives.
func (j *Journal) Error(msg string, kv ...interface{}) {
	j.write(SeverityError, msg, kv)
}

// Critical records conditions needing operator intervention, such as a
// reboot mechanism that failed after updates were applied.
func (j *Journal) Critical(msg string, kv ...interface{}) {
	j.write(SeverityCritical, msg, kv)
}

func (j *Journal) write(sev Severity, msg string, kv []interface{}) {
	kv = append(kv, "severity", string(sev))
	switch sev {
	case SeverityWarning:
		j.sugar.Warnw(msg, kv...)
	case SeverityError, SeverityCritical:
		j.sugar.Errorw(msg, kv...)
	default:
		j.sugar.Infow(msg, kv...)
	}
}

// Close flushes buffered entries. Sync errors on closed stderr are not
// actionable, so they are dropped.
func (j *Journal) Close() {
	_ = j.sugar.Sync()
}
