package scheduler

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config 调度器声明式配置.
type Config struct {
	// Timezone 参考时区（IANA 名称），为空时使用 time.Local.
	Timezone string `json:"timezone" yaml:"timezone" mapstructure:"timezone"`
	// TickInterval 驱动器 tick 间隔，默认 1s.
	TickInterval time.Duration `json:"tick_interval" yaml:"tick_interval" mapstructure:"tick_interval"`
	// AttemptPolicy 计数策略: all | success，默认 all.
	AttemptPolicy string `json:"attempt_policy" yaml:"attempt_policy" mapstructure:"attempt_policy"`
	// LockTTL 分布式锁过期时间.
	LockTTL time.Duration `json:"lock_ttl" yaml:"lock_ttl" mapstructure:"lock_ttl"`
	// Jobs 周任务列表.
	Jobs []JobConfig `json:"jobs" yaml:"jobs" mapstructure:"jobs"`
}

// JobConfig 单个周任务配置.
type JobConfig struct {
	Name        string        `json:"name" yaml:"name" mapstructure:"name"`
	Timing      []string      `json:"timing" yaml:"timing" mapstructure:"timing"`
	Handler     string        `json:"handler" yaml:"handler" mapstructure:"handler"`
	Distributed bool          `json:"distributed" yaml:"distributed" mapstructure:"distributed"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// Validate 验证配置，包括每个任务的时间规格.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if _, err := c.LoadLocation(); err != nil {
		return err
	}
	if _, err := c.Policy(); err != nil {
		return err
	}
	if c.TickInterval < 0 || c.LockTTL < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(c.Jobs))
	var errs []error
	for i, jc := range c.Jobs {
		if jc.Name == "" {
			errs = append(errs, fmt.Errorf("%w: jobs[%d].name is required", ErrInvalidConfig, i))
			continue
		}
		if seen[jc.Name] {
			errs = append(errs, fmt.Errorf("%w: %s", ErrJobExists, jc.Name))
			continue
		}
		seen[jc.Name] = true
		if jc.Handler == "" {
			errs = append(errs, fmt.Errorf("%w: jobs[%s].handler is required", ErrInvalidConfig, jc.Name))
		}
		if _, err := jc.Triggers(); err != nil {
			errs = append(errs, fmt.Errorf("jobs[%s]: %w", jc.Name, err))
		}
	}
	return errors.Join(errs...)
}

// LoadLocation 解析参考时区.
func (c *Config) LoadLocation() (*time.Location, error) {
	switch c.Timezone {
	case "":
		return time.Local, nil
	case "UTC", "utc":
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Timezone, err)
	}
	return loc, nil
}

// Policy 解析计数策略.
func (c *Config) Policy() (AttemptPolicy, error) {
	switch strings.ToLower(c.AttemptPolicy) {
	case "", "all":
		return CountAllAttempts, nil
	case "success":
		return CountSuccessOnly, nil
	}
	return 0, fmt.Errorf("%w: attempt_policy %q", ErrInvalidConfig, c.AttemptPolicy)
}

// Options 将配置转换为调度器选项.
func (c *Config) Options() ([]Option, error) {
	loc, err := c.LoadLocation()
	if err != nil {
		return nil, err
	}
	policy, err := c.Policy()
	if err != nil {
		return nil, err
	}

	opts := []Option{WithLocation(loc), WithAttemptPolicy(policy)}
	if c.LockTTL > 0 {
		opts = append(opts, WithLockTTL(c.LockTTL))
	}
	return opts, nil
}

// DriverOptions 将配置转换为驱动器选项.
func (c *Config) DriverOptions() []DriverOption {
	if c.TickInterval > 0 {
		return []DriverOption{WithInterval(c.TickInterval)}
	}
	return nil
}

// Triggers 解析任务的时间规格.
func (jc JobConfig) Triggers() (Timing, error) {
	if len(jc.Timing) == 0 {
		return nil, fmt.Errorf("%w: empty timing", ErrInvalidTimingType)
	}
	t, err := ParseTiming(jc.Timing)
	if err != nil {
		return nil, err
	}
	set, err := Normalize(t)
	if err != nil {
		return nil, err
	}
	if _, err := Validate(set); err != nil {
		return nil, err
	}
	return t, nil
}

// RegisterConfig 按配置注册任务，handlers 以 JobConfig.Handler 为键.
//
// 任一任务注册失败时，已注册的任务会被移除.
func RegisterConfig(s *Scheduler, cfg *Config, handlers map[string]JobFunc) ([]*Job, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	jobs := make([]*Job, 0, len(cfg.Jobs))
	rollback := func() {
		for _, j := range jobs {
			_ = s.Remove(j.ID())
		}
	}

	for _, jc := range cfg.Jobs {
		fn, ok := handlers[jc.Handler]
		if !ok || fn == nil {
			rollback()
			return nil, fmt.Errorf("%w: jobs[%s] handler %q not registered", ErrHandlerNil, jc.Name, jc.Handler)
		}
		timing, err := jc.Triggers()
		if err != nil {
			rollback()
			return nil, fmt.Errorf("jobs[%s]: %w", jc.Name, err)
		}

		opts := []JobOption{WithName(jc.Name), WithTimeout(jc.Timeout)}
		if jc.Distributed {
			opts = append(opts, Distributed())
		}
		job, err := s.Weekly(timing, fn, opts...)
		if err != nil {
			rollback()
			return nil, fmt.Errorf("jobs[%s]: %w", jc.Name, err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
