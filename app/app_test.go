package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/sanurielf/scheduler/logger"
)

// fakeServer 记录启动与停止顺序.
type fakeServer struct {
	name     string
	startErr error
	record   func(string)
}

func (f *fakeServer) Start(context.Context) error {
	f.record("start:" + f.name)
	return f.startErr
}

func (f *fakeServer) Stop(context.Context) error {
	f.record("stop:" + f.name)
	return nil
}

func (f *fakeServer) Name() string { return f.name }
func (f *fakeServer) Addr() string { return "" }

// ApplicationTestSuite 应用生命周期测试套件.
type ApplicationTestSuite struct {
	suite.Suite
	mu     sync.Mutex
	events []string
}

func TestApplicationSuite(t *testing.T) {
	suite.Run(t, new(ApplicationTestSuite))
}

func (s *ApplicationTestSuite) SetupTest() {
	s.events = nil
}

func (s *ApplicationTestSuite) record(e string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *ApplicationTestSuite) recorded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

func (s *ApplicationTestSuite) server(name string, err error) *fakeServer {
	return &fakeServer{name: name, startErr: err, record: s.record}
}

func (s *ApplicationTestSuite) TestNew_RequiresLogger() {
	s.Panics(func() { New() })
}

func (s *ApplicationTestSuite) TestRun_StartAndStopInOrder() {
	hooks := NewHooks().
		AfterStart(func(context.Context) error { s.record("after-start"); return nil }).
		BeforeStop(func(context.Context) error { s.record("before-stop"); return nil }).
		Build()

	a := New(
		Name("weeklyd-test"),
		Version("0.0.1"),
		Logger(logger.NewNop()),
		SetHooks(hooks),
		GracefulTimeout(time.Second),
		RegisterCleanup("flush", func(context.Context) error { s.record("cleanup"); return nil }, 1),
	)
	a.Use(s.server("driver", nil), s.server("http", nil))
	s.Equal("weeklyd-test", a.Name())
	s.Equal("0.0.1", a.Version())

	go func() {
		s.Eventually(func() bool {
			return len(s.recorded()) >= 3
		}, time.Second, 5*time.Millisecond)
		a.Stop()
	}()

	s.NoError(a.Run())
	s.Equal([]string{
		"start:driver", "start:http", "after-start",
		"before-stop", "stop:http", "stop:driver", "cleanup",
	}, s.recorded())
}

func (s *ApplicationTestSuite) TestRun_StartFailureStopsStarted() {
	boom := errors.New("address in use")
	a := New(Logger(logger.NewNop()))
	a.Use(s.server("driver", nil), s.server("http", boom), s.server("never", nil))

	err := a.Run()
	s.ErrorIs(err, boom)
	s.Equal([]string{"start:driver", "start:http", "stop:driver"}, s.recorded())
}

func (s *ApplicationTestSuite) TestRun_BeforeStartHookFails() {
	boom := errors.New("not ready")
	a := New(
		Logger(logger.NewNop()),
		SetHooks(NewHooks().BeforeStart(func(context.Context) error { return boom }).Build()),
	)
	a.Use(s.server("driver", nil))

	s.ErrorIs(a.Run(), boom)
	s.Empty(s.recorded())
}

func (s *ApplicationTestSuite) TestRegisterCloserAndShutdowner() {
	closed := false
	shut := false
	a := New(
		Logger(logger.NewNop()),
		RegisterCloser("closer", closerFunc(func() error { closed = true; return nil }), 2),
		RegisterShutdowner("tracer", shutdownerFunc(func(context.Context) error { shut = true; return nil }), 1),
	)

	a.Stop()
	s.NoError(a.Run())
	s.True(closed)
	s.True(shut)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

type shutdownerFunc func(context.Context) error

func (f shutdownerFunc) Shutdown(ctx context.Context) error { return f(ctx) }

func TestHooks_Phases(t *testing.T) {
	first := errors.New("first")
	second := errors.New("second")

	var ran []string
	hooks := NewHooks().
		BeforeStart(func(context.Context) error { ran = append(ran, "bs1"); return first }).
		BeforeStart(func(context.Context) error { ran = append(ran, "bs2"); return nil }).
		AfterStop(func(context.Context) error { ran = append(ran, "as1"); return first }).
		AfterStop(func(context.Context) error { ran = append(ran, "as2"); return second }).
		Build()

	assert.Equal(t, 2, hooks.Len(BeforeStart))
	assert.Zero(t, hooks.Len(BeforeStop))

	err := hooks.run(context.Background(), BeforeStart)
	assert.ErrorIs(t, err, first)
	assert.Contains(t, err.Error(), "before_start")

	err = hooks.run(context.Background(), AfterStop)
	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, second)
	assert.Equal(t, []string{"bs1", "as1", "as2"}, ran)

	var none *Hooks
	assert.NoError(t, none.run(context.Background(), AfterStart))
	assert.Zero(t, none.Len(AfterStart))

	assert.Equal(t, "after_start", AfterStart.String())
	assert.Equal(t, "Phase(9)", Phase(9).String())
}

func TestOptions_Defaults(t *testing.T) {
	o := defaultOptions()
	for _, opt := range []Option{Name(""), Version(""), GracefulTimeout(0), Signals()} {
		opt(o)
	}

	assert.Equal(t, "weeklyd", o.name)
	assert.Equal(t, "dev", o.version)
	assert.Equal(t, DefaultGracefulTimeout, o.gracefulTimeout)
	assert.Len(t, o.signals, 2)
}

func TestCleanupList_Ordered(t *testing.T) {
	l := cleanupList{
		{Name: "cache", Priority: 20},
		{Name: "scheduler", Priority: 0},
		{Name: "tracer", Priority: 10},
		{Name: "status", Priority: 10},
	}

	var names []string
	for _, c := range l.ordered() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"scheduler", "tracer", "status", "cache"}, names)
	assert.Equal(t, "cache", l[0].Name)
}
