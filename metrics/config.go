package metrics

// Config 指标监控配置.
type Config struct {
	// Enabled 是否暴露指标
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	// Addr 指标服务监听地址，默认 :9090
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
	// Path 指标暴露路径，默认 /metrics
	Path string `json:"path" yaml:"path" mapstructure:"path"`
	// Namespace 指标命名空间，默认 weekly
	Namespace string `json:"namespace" yaml:"namespace" mapstructure:"namespace"`
	// RuntimeMetrics 是否同时采集 Go 运行时与进程指标
	RuntimeMetrics bool `json:"runtime_metrics" yaml:"runtime_metrics" mapstructure:"runtime_metrics"`
}

// ApplyDefaults 应用默认值.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = ":9090"
	}
	if c.Path == "" {
		c.Path = "/metrics"
	}
	if c.Namespace == "" {
		c.Namespace = "weekly"
	}
}

// DefaultConfig 返回默认配置.
func DefaultConfig() *Config {
	c := &Config{Enabled: true}
	c.ApplyDefaults()
	return c
}
