package config

import "strings"

// envKeyReplacer 将 scheduler.timezone 映射为 <PREFIX>_SCHEDULER_TIMEZONE.
var envKeyReplacer = strings.NewReplacer(".", "_", "-", "_")

type options struct {
	envPrefix  string
	env        bool
	configType string
	defaults   map[string]any
}

// Option 配置加载选项.
type Option func(*options)

// WithEnvPrefix 设置环境变量前缀，例如 "WEEKLYD".
func WithEnvPrefix(prefix string) Option {
	return func(o *options) {
		o.envPrefix = strings.ToUpper(prefix)
	}
}

// WithoutEnv 不读取环境变量，测试和 LoadFromBytes 场景常用.
func WithoutEnv() Option {
	return func(o *options) {
		o.env = false
	}
}

// WithDefaults 设置键级默认值，优先级低于文件与环境变量.
func WithDefaults(defaults map[string]any) Option {
	return func(o *options) {
		o.defaults = defaults
	}
}

// WithConfigType 显式指定配置文件类型，覆盖扩展名推断.
func WithConfigType(configType string) Option {
	return func(o *options) {
		o.configType = configType
	}
}

func buildOptions(opts []Option) *options {
	o := &options{env: true}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
