package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/sanurielf/scheduler/app"
	"github.com/sanurielf/scheduler/cache"
	"github.com/sanurielf/scheduler/logger"
	"github.com/sanurielf/scheduler/metrics"
	"github.com/sanurielf/scheduler/scheduler"
	"github.com/sanurielf/scheduler/tracing"
)

// Config weeklyd 配置文件结构.
//
// Cache 为空时不启用分布式锁；ShutdownTimeout 是停止时等待任务与清理的上限.
type Config struct {
	Name            string           `json:"name" yaml:"name" mapstructure:"name"`
	ShutdownTimeout time.Duration    `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	Logger          *logger.Config   `json:"logger" yaml:"logger" mapstructure:"logger"`
	Tracing         *tracing.Config  `json:"tracing" yaml:"tracing" mapstructure:"tracing"`
	Metrics         *metrics.Config  `json:"metrics" yaml:"metrics" mapstructure:"metrics"`
	Cache           *cache.Config    `json:"cache" yaml:"cache" mapstructure:"cache"`
	Scheduler       scheduler.Config `json:"scheduler" yaml:"scheduler" mapstructure:"scheduler"`
}

// ApplyDefaults 填充默认值.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "weeklyd"
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = app.DefaultGracefulTimeout
	}
	if c.Logger == nil {
		c.Logger = logger.DefaultConfig()
	}
	if c.Logger.ServiceName == "" {
		c.Logger.ServiceName = c.Name
	}
	c.Logger.ApplyDefaults()
	if c.Tracing == nil {
		c.Tracing = &tracing.Config{}
	}
	if c.Metrics == nil {
		c.Metrics = metrics.DefaultConfig()
	}
	c.Metrics.ApplyDefaults()
	if c.Cache != nil {
		c.Cache.ApplyDefaults()
	}
}

// Validate 验证配置.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Logger.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Cache != nil {
		if err := c.Cache.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.Scheduler.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("scheduler: %w", err))
	}
	return errors.Join(errs...)
}
