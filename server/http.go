// Package server 提供 weeklyd 的 HTTP 服务器，用于暴露指标、健康检查与任务状态.
//
// HTTP 实现 app.Server，由 app.Application 管理生命周期.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/sanurielf/scheduler/logger"
)

var (
	// ErrServerRunning 重复启动.
	ErrServerRunning = errors.New("server: 服务已在运行")
	// ErrAddrEmpty 未配置监听地址.
	ErrAddrEmpty = errors.New("server: 监听地址为空")
	// ErrNilHandler 未提供处理器.
	ErrNilHandler = errors.New("server: handler 为空")
)

// HTTP HTTP 服务器.
type HTTP struct {
	opts    *httpOptions
	handler http.Handler

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// NewHTTP 创建 HTTP 服务器.
//
// 示例:
//
//	mux := http.NewServeMux()
//	mux.Handle("/metrics", collector.Handler())
//	mux.Handle("/jobs", s.StatusHandler())
//
//	srv, err := server.NewHTTP(mux,
//	    server.WithHTTPAddr(":9090"),
//	    server.WithHTTPLogger(log),
//	)
func NewHTTP(handler http.Handler, opts ...HTTPOption) (*HTTP, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}

	o := defaultHTTPOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.addr == "" {
		return nil, ErrAddrEmpty
	}

	return &HTTP{
		opts:    o,
		handler: handler,
	}, nil
}

// Start 监听端口并在后台提供服务，监听失败时立即返回错误.
func (s *HTTP) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.server != nil {
		s.mu.Unlock()
		return ErrServerRunning
	}

	ln, err := net.Listen("tcp", s.opts.addr)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.opts.readTimeout,
		WriteTimeout: s.opts.writeTimeout,
		IdleTimeout:  s.opts.idleTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	s.server = srv
	s.listener = ln
	s.mu.Unlock()

	s.logDebugf("HTTP 服务器启动 [name:%s] [addr:%s]", s.opts.name, ln.Addr())

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logErrorf("HTTP 服务器异常退出 [name:%s] [error:%v]", s.opts.name, err)
		}
	}()

	return nil
}

// Stop 优雅停止 HTTP 服务器.
func (s *HTTP) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	s.logDebug("HTTP 服务器停止中...")
	return srv.Shutdown(ctx)
}

// Name 返回服务器名称.
func (s *HTTP) Name() string {
	return s.opts.name
}

// Addr 返回监听地址，启动后为实际地址.
func (s *HTTP) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.opts.addr
}

// Handler 返回 HTTP Handler.
func (s *HTTP) Handler() http.Handler {
	return s.handler
}

// 日志辅助方法.

func (s *HTTP) logger() logger.Logger {
	return s.opts.logger
}

func (s *HTTP) logDebug(msg string) {
	if log := s.logger(); log != nil {
		log.Debug("[HTTP] " + msg)
	}
}

func (s *HTTP) logDebugf(format string, args ...any) {
	if log := s.logger(); log != nil {
		log.Debugf("[HTTP] "+format, args...)
	}
}

func (s *HTTP) logErrorf(format string, args ...any) {
	if log := s.logger(); log != nil {
		log.Errorf("[HTTP] "+format, args...)
	}
}
