package logger

import (
	"fmt"
	"strings"
)

// Config 日志配置.
type Config struct {
	Type        string `json:"type" yaml:"type" mapstructure:"type"`
	ServiceName string `json:"service_name" yaml:"service_name" mapstructure:"service_name"`
	Level       string `json:"level" yaml:"level" mapstructure:"level"`
	Format      string `json:"format" yaml:"format" mapstructure:"format"`

	// 输出配置
	Output string `json:"output" yaml:"output" mapstructure:"output"`
	LogDir string `json:"log_dir" yaml:"log_dir" mapstructure:"log_dir"`

	// 调用者信息配置
	EnableCaller     bool `json:"enable_caller" yaml:"enable_caller" mapstructure:"enable_caller"`
	EnableStacktrace bool `json:"enable_stacktrace" yaml:"enable_stacktrace" mapstructure:"enable_stacktrace"`
	CallerSkip       int  `json:"caller_skip" yaml:"caller_skip" mapstructure:"caller_skip"`

	// 编码器配置
	TimeFormat  string `json:"time_format" yaml:"time_format" mapstructure:"time_format"`
	TimeKey     string `json:"time_key" yaml:"time_key" mapstructure:"time_key"`
	LevelKey    string `json:"level_key" yaml:"level_key" mapstructure:"level_key"`
	MessageKey  string `json:"message_key" yaml:"message_key" mapstructure:"message_key"`
	CallerKey   string `json:"caller_key" yaml:"caller_key" mapstructure:"caller_key"`
	EncodeLevel string `json:"encode_level" yaml:"encode_level" mapstructure:"encode_level"`
}

// ConfigError 配置错误.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("logger config error [%s]: %s", e.Field, e.Message)
}

// Validate 验证配置.
func (c *Config) Validate() error {
	if c == nil {
		return &ConfigError{Field: "config", Message: "config cannot be nil"}
	}

	if c.Type != "" && c.Type != TypeZap && c.Type != TypeNop {
		return &ConfigError{Field: "type", Message: "unsupported logger type: " + c.Type}
	}

	if c.Level != "" && !isValidLevel(c.Level) {
		return &ConfigError{Field: "level", Message: "invalid log level: " + c.Level}
	}

	if c.Format != "" && !isValidFormat(c.Format) {
		return &ConfigError{Field: "format", Message: "invalid format: " + c.Format}
	}

	if c.Output != "" && !isValidOutput(c.Output) {
		return &ConfigError{Field: "output", Message: "invalid output: " + c.Output}
	}

	if c.needsFileOutput() && c.LogDir == "" {
		return &ConfigError{Field: "log_dir", Message: "log_dir is required when output is file or both"}
	}

	return nil
}

// ApplyDefaults 应用默认值.
func (c *Config) ApplyDefaults() {
	if c.Type == "" {
		c.Type = TypeZap
	}
	if c.Level == "" {
		c.Level = LevelInfo
	}
	if c.Format == "" {
		c.Format = FormatJSON
	}
	if c.Output == "" {
		c.Output = OutputConsole
	}
	if c.ServiceName == "" {
		c.ServiceName = "weeklyd"
	}
	if c.TimeKey == "" {
		c.TimeKey = "timestamp"
	}
	if c.LevelKey == "" {
		c.LevelKey = "level"
	}
	if c.MessageKey == "" {
		c.MessageKey = "msg"
	}
	if c.CallerKey == "" {
		c.CallerKey = "caller"
	}
	if c.TimeFormat == "" {
		c.TimeFormat = TimeFormatDateTime
	}
	if c.EncodeLevel == "" {
		c.EncodeLevel = EncodeLevelCapital
	}
}

func (c *Config) needsFileOutput() bool {
	output := strings.ToLower(c.Output)
	return output == OutputFile || output == OutputBoth
}

func (c *Config) needsConsoleOutput() bool {
	output := strings.ToLower(c.Output)
	return output == OutputConsole || output == OutputBoth
}

func isValidLevel(level string) bool {
	switch strings.ToLower(level) {
	case LevelDebug, LevelInfo, LevelWarn, "warning", LevelError, LevelFatal, LevelPanic:
		return true
	}
	return false
}

func isValidFormat(format string) bool {
	switch strings.ToLower(format) {
	case FormatJSON, FormatConsole:
		return true
	}
	return false
}

func isValidOutput(output string) bool {
	switch strings.ToLower(output) {
	case OutputConsole, OutputFile, OutputBoth:
		return true
	}
	return false
}

// DefaultConfig 返回默认配置.
func DefaultConfig() *Config {
	config := &Config{}
	config.ApplyDefaults()
	return config
}

// NewDevConfig 返回开发环境配置.
func NewDevConfig() *Config {
	return &Config{
		Type:         TypeZap,
		Level:        LevelDebug,
		Format:       FormatConsole,
		Output:       OutputConsole,
		EnableCaller: true,
		EncodeLevel:  EncodeLevelCapitalColor,
	}
}
