package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Load 从文件加载配置.
//
// 文件类型根据扩展名识别，也可通过 WithConfigType 指定.
// 时长字段支持 "90s"、"5m" 这类写法.
// 若 T 实现了 Defaultable/Validatable，会依次填充默认值并验证.
func Load[T any](configPath string, opts ...Option) (*T, error) {
	o := buildOptions(opts)

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, configPath)
	}

	configType := o.configType
	if configType == "" {
		configType = GetConfigType(configPath)
	}
	if configType == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidType, configPath)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType(configType)
	applyOptions(v, o)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadConfig, err)
	}

	return unmarshalAndValidate[T](v)
}

// MustLoad 加载配置，失败时 panic.
func MustLoad[T any](configPath string, opts ...Option) *T {
	config, err := Load[T](configPath, opts...)
	if err != nil {
		panic(err)
	}
	return config
}

// LoadFromBytes 从字节数组加载配置.
func LoadFromBytes[T any](data []byte, configType string, opts ...Option) (*T, error) {
	o := buildOptions(opts)

	v := viper.New()
	v.SetConfigType(configType)
	applyOptions(v, o)

	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadConfig, err)
	}

	return unmarshalAndValidate[T](v)
}

// LoadWithSearch 在多个目录中按名称搜索配置文件.
func LoadWithSearch[T any](configName string, searchPaths []string, opts ...Option) (*T, error) {
	o := buildOptions(opts)

	v := viper.New()
	v.SetConfigName(configName)
	for _, path := range searchPaths {
		v.AddConfigPath(path)
	}
	applyOptions(v, o)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %s in %v", ErrFileNotFound, configName, searchPaths)
		}
		return nil, fmt.Errorf("%w: %w", ErrReadConfig, err)
	}

	return unmarshalAndValidate[T](v)
}

// applyOptions 应用通用选项到 viper 实例.
func applyOptions(v *viper.Viper, o *options) {
	for key, value := range o.defaults {
		v.SetDefault(key, value)
	}

	if !o.env {
		return
	}
	if o.envPrefix != "" {
		v.SetEnvPrefix(o.envPrefix)
	}
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()
}

// unmarshalAndValidate 解析配置，填充默认值并验证.
func unmarshalAndValidate[T any](v *viper.Viper) (*T, error) {
	config := new(T)
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnmarshal, err)
	}

	if d, ok := any(config).(Defaultable); ok {
		d.ApplyDefaults()
	}
	if validator, ok := any(config).(Validatable); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrValidation, err)
		}
	}

	return config, nil
}
