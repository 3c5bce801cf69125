package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// ErrCreateDir 无法创建 LogDir.
	ErrCreateDir = errors.New("logger: 创建日志目录失败")
	// ErrOpenFile 无法打开 <LogDir>/<ServiceName>.log.
	ErrOpenFile = errors.New("logger: 打开日志文件失败")
)

// zapLogger zap 日志实现.
type zapLogger struct {
	logger  *zap.Logger
	sugar   *zap.SugaredLogger
	closers []io.Closer
}

// newZapLogger 创建 zap logger.
func newZapLogger(config *Config) (Logger, error) {
	level := parseLevel(config.Level)
	encoder := buildEncoder(config)

	var (
		cores   []zapcore.Core
		closers []io.Closer
	)

	if config.needsFileOutput() {
		file, err := openLogFile(config.LogDir, config.ServiceName)
		if err != nil {
			return nil, err
		}
		closers = append(closers, file)
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(file), level))
	}

	if config.needsConsoleOutput() {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level))
	}

	if len(cores) == 0 {
		return nil, &ConfigError{Field: "output", Message: "no valid output configured"}
	}

	z := newWithCore(zapcore.NewTee(cores...), buildOptions(config)...)
	z.closers = closers
	return z, nil
}

// newWithCore 以指定 core 构建 logger.
func newWithCore(core zapcore.Core, opts ...zap.Option) *zapLogger {
	l := zap.New(core, opts...)
	return &zapLogger{logger: l, sugar: l.Sugar()}
}

// NewNop 返回丢弃所有输出的 logger.
func NewNop() Logger {
	return newWithCore(zapcore.NewNopCore())
}

// buildOptions 构建 zap 选项.
func buildOptions(config *Config) []zap.Option {
	var options []zap.Option

	if config.EnableCaller {
		options = append(options, zap.AddCaller())
		if config.CallerSkip > 0 {
			options = append(options, zap.AddCallerSkip(config.CallerSkip))
		}
	}

	if config.EnableStacktrace {
		options = append(options, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	return options
}

// openLogFile 打开 <dir>/<name>.log，追加写入.
func openLogFile(dir, name string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreateDir, err)
	}
	file, err := os.OpenFile(filepath.Join(dir, name+".log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpenFile, err)
	}
	return file, nil
}

func (z *zapLogger) Debug(args ...any) {
	z.sugar.Debug(args...)
}

func (z *zapLogger) Debugf(format string, args ...any) {
	z.sugar.Debugf(format, args...)
}

func (z *zapLogger) Info(args ...any) {
	z.sugar.Info(args...)
}

func (z *zapLogger) Infof(format string, args ...any) {
	z.sugar.Infof(format, args...)
}

func (z *zapLogger) Warn(args ...any) {
	z.sugar.Warn(args...)
}

func (z *zapLogger) Warnf(format string, args ...any) {
	z.sugar.Warnf(format, args...)
}

func (z *zapLogger) Error(args ...any) {
	z.sugar.Error(args...)
}

func (z *zapLogger) Errorf(format string, args ...any) {
	z.sugar.Errorf(format, args...)
}

func (z *zapLogger) Fatal(args ...any) {
	z.sugar.Fatal(args...)
}

func (z *zapLogger) Fatalf(format string, args ...any) {
	z.sugar.Fatalf(format, args...)
}

func (z *zapLogger) Panic(args ...any) {
	z.sugar.Panic(args...)
}

func (z *zapLogger) Panicf(format string, args ...any) {
	z.sugar.Panicf(format, args...)
}

// With 返回带有附加字段的 logger.
func (z *zapLogger) With(fields ...Field) Logger {
	zapFields := make([]zap.Field, len(fields))
	for i, f := range fields {
		zapFields[i] = toZapField(f)
	}

	l := z.logger.With(zapFields...)
	return &zapLogger{logger: l, sugar: l.Sugar(), closers: z.closers}
}

// toZapField 将 Field 转换为 zap.Field.
func toZapField(f Field) zap.Field {
	switch v := f.Value.(type) {
	case string:
		return zap.String(f.Key, v)
	case int:
		return zap.Int(f.Key, v)
	case int64:
		return zap.Int64(f.Key, v)
	case float64:
		return zap.Float64(f.Key, v)
	case bool:
		return zap.Bool(f.Key, v)
	case time.Time:
		return zap.Time(f.Key, v)
	case time.Duration:
		return zap.Duration(f.Key, v)
	case error:
		return zap.NamedError(f.Key, v)
	case fmt.Stringer:
		return zap.Stringer(f.Key, v)
	default:
		return zap.Any(f.Key, v)
	}
}

// WithContext 返回带有 context 中链路信息的 logger.
//
// 任务处理函数收到的 ctx 携带 scheduler.fire span，
// 在其中打印的日志会带上 traceId 与 spanId.
func (z *zapLogger) WithContext(ctx context.Context) Logger {
	if ctx == nil {
		return z
	}

	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return z
	}

	return z.With(
		Field{Key: "traceId", Value: sc.TraceID().String()},
		Field{Key: "spanId", Value: sc.SpanID().String()},
	)
}

// Sync 同步日志缓冲区.
func (z *zapLogger) Sync() error {
	return z.logger.Sync()
}

// Close 关闭 logger 并释放文件句柄.
func (z *zapLogger) Close() error {
	// stdout 的 sync 错误忽略，见 https://github.com/uber-go/zap/issues/328
	_ = z.logger.Sync()

	var errs []error
	for _, c := range z.closers {
		if err := c.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// String 创建字符串字段.
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int 创建整数字段.
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Int64 创建 int64 字段.
func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

// Bool 创建布尔字段.
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Time 创建时间字段.
func Time(key string, value time.Time) Field {
	return Field{Key: key, Value: value}
}

// Duration 创建持续时间字段.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

// Err 创建错误字段.
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

// Any 创建任意类型字段.
func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}
