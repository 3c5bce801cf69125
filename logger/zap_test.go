package logger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// ZapLoggerTestSuite zap logger 测试套件.
type ZapLoggerTestSuite struct {
	suite.Suite
	logs *observer.ObservedLogs
	log  *zapLogger
}

func TestZapLoggerSuite(t *testing.T) {
	suite.Run(t, new(ZapLoggerTestSuite))
}

func (s *ZapLoggerTestSuite) SetupTest() {
	core, logs := observer.New(zapcore.DebugLevel)
	s.logs = logs
	s.log = newWithCore(core)
}

func (s *ZapLoggerTestSuite) TestNewLogger_Console() {
	log, err := NewLogger(DefaultConfig())
	s.Require().NoError(err)
	s.NotNil(log)
	s.NoError(log.Close())
}

func (s *ZapLoggerTestSuite) TestNewLogger_Nop() {
	log, err := NewLogger(&Config{Type: TypeNop})
	s.Require().NoError(err)
	log.Info("discarded")
	s.NoError(log.Close())
}

func (s *ZapLoggerTestSuite) TestNewLogger_InvalidConfig() {
	_, err := NewLogger(nil)
	s.Error(err)

	s.Panics(func() { MustNewLogger(&Config{Level: "verbose"}) })
}

func (s *ZapLoggerTestSuite) TestNewLogger_FileOutput() {
	dir := s.T().TempDir()
	log, err := NewLogger(&Config{
		Level:       LevelDebug,
		Output:      OutputFile,
		LogDir:      dir,
		ServiceName: "weekly-test",
	})
	s.Require().NoError(err)

	log.Infof("任务已添加: %s", "weekly-report")
	s.NoError(log.Close())

	data, err := os.ReadFile(filepath.Join(dir, "weekly-test.log"))
	s.Require().NoError(err)
	s.Contains(string(data), "weekly-report")
}

func (s *ZapLoggerTestSuite) TestLevels() {
	s.log.Debug("debug")
	s.log.Infof("info %d", 1)
	s.log.Warn("warn")
	s.log.Errorf("error %s", "x")

	entries := s.logs.All()
	s.Require().Len(entries, 4)
	s.Equal(zapcore.DebugLevel, entries[0].Level)
	s.Equal("info 1", entries[1].Message)
	s.Equal(zapcore.WarnLevel, entries[2].Level)
	s.Equal("error x", entries[3].Message)
}

func (s *ZapLoggerTestSuite) TestWith() {
	due := time.Date(2024, 1, 5, 4, 0, 0, 0, time.UTC)
	s.log.With(
		String("job", "weekly-report"),
		Int64("attempt", 3),
		Time("due", due),
		Duration("took", time.Second),
		Err(errors.New("boom")),
		Bool("distributed", true),
	).Info("fired")

	entries := s.logs.All()
	s.Require().Len(entries, 1)
	fields := entries[0].ContextMap()
	s.Equal("weekly-report", fields["job"])
	s.Equal(int64(3), fields["attempt"])
	s.Equal(due, fields["due"])
	s.Equal(time.Second, fields["took"])
	s.Equal("boom", fields["error"])
	s.Equal(true, fields["distributed"])
}

func (s *ZapLoggerTestSuite) TestWithContext_NoSpan() {
	l := s.log.WithContext(context.Background())
	s.Same(s.log, l)
}

func (s *ZapLoggerTestSuite) TestWithContext_Span() {
	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "scheduler.fire")
	defer span.End()

	s.log.WithContext(ctx).Info("in handler")

	entries := s.logs.All()
	s.Require().Len(entries, 1)
	fields := entries[0].ContextMap()
	s.Equal(span.SpanContext().TraceID().String(), fields["traceId"])
	s.Equal(span.SpanContext().SpanID().String(), fields["spanId"])
}
