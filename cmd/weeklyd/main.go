// Command weeklyd 按配置文件运行周任务调度器.
//
//	weeklyd -config configs/weeklyd.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sanurielf/scheduler/app"
	"github.com/sanurielf/scheduler/cache"
	"github.com/sanurielf/scheduler/config"
	"github.com/sanurielf/scheduler/lock"
	"github.com/sanurielf/scheduler/logger"
	"github.com/sanurielf/scheduler/metrics"
	"github.com/sanurielf/scheduler/scheduler"
	"github.com/sanurielf/scheduler/server"
	"github.com/sanurielf/scheduler/tracing"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "configs/weeklyd.yaml", "配置文件路径")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "weeklyd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load[Config](configPath, config.WithEnvPrefix("WEEKLYD"))
	if err != nil {
		return err
	}

	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = log.Sync()
		_ = log.Close()
	}()

	a, err := build(cfg, log)
	if err != nil {
		return err
	}
	return a.Run()
}

// build 组装调度器、驱动器和 HTTP 服务.
func build(cfg *Config, log logger.Logger) (*app.Application, error) {
	appOpts := []app.Option{
		app.Name(cfg.Name),
		app.Version(version),
		app.Logger(log),
		app.GracefulTimeout(cfg.ShutdownTimeout),
	}

	tp, err := tracing.NewTracer(cfg.Tracing, cfg.Name, version)
	if err != nil {
		return nil, err
	}
	appOpts = append(appOpts, app.RegisterShutdowner("tracer", tp, 10))

	schedOpts, err := cfg.Scheduler.Options()
	if err != nil {
		return nil, err
	}
	schedOpts = append(schedOpts,
		scheduler.WithLogger(log),
		scheduler.WithTracerProvider(tp),
	)

	var collector *metrics.PrometheusCollector
	if cfg.Metrics.Enabled {
		collector, err = metrics.NewPrometheus(cfg.Metrics)
		if err != nil {
			return nil, err
		}
		schedOpts = append(schedOpts, scheduler.WithMetrics(collector))
	}

	if cfg.Cache != nil {
		c, err := cache.NewCache(cfg.Cache, log)
		if err != nil {
			return nil, err
		}
		appOpts = append(appOpts, app.RegisterCloser("cache", c, 20))
		schedOpts = append(schedOpts, scheduler.WithLocker(lock.NewRedis(c)))
	}

	s, err := scheduler.New(schedOpts...)
	if err != nil {
		return nil, err
	}
	if _, err := scheduler.RegisterConfig(s, &cfg.Scheduler, builtinHandlers(log)); err != nil {
		return nil, err
	}
	appOpts = append(appOpts,
		app.SetHooks(app.NewHooks().AfterStart(func(context.Context) error {
			for _, st := range s.Status() {
				log.Infof("周任务 %s [timing:%s, next:%s]", st.Name, st.Timing, st.NextDue.Format(time.RFC3339))
			}
			return nil
		}).Build()),
		app.RegisterCleanup("scheduler", func(context.Context) error {
			s.Close()
			return nil
		}, 0),
	)

	driver, err := scheduler.NewDriver(s, cfg.Scheduler.DriverOptions()...)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("GET /jobs", s.StatusHandler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if collector != nil {
		mux.Handle(collector.Path(), collector.Handler())
	}
	srv, err := server.NewHTTP(mux,
		server.WithHTTPName("status"),
		server.WithHTTPAddr(cfg.Metrics.Addr),
		server.WithHTTPLogger(log),
	)
	if err != nil {
		return nil, err
	}

	return app.New(appOpts...).Use(srv, driver), nil
}

// builtinHandlers 配置文件中可引用的处理函数.
func builtinHandlers(log logger.Logger) map[string]scheduler.JobFunc {
	return map[string]scheduler.JobFunc{
		"log": func(ctx context.Context) error {
			log.WithContext(ctx).Info("weekly job fired")
			return nil
		},
		"noop": func(context.Context) error { return nil },
	}
}
