// Package config 提供基于 viper 的配置加载.
//
// weeklyd 的服务配置与调度器的声明式任务配置都通过 Load 加载，
// 支持 yaml/json/toml 文件与环境变量覆盖.
package config

import (
	"errors"
	"path/filepath"
	"strings"
)

// 加载错误，调用方可用 errors.Is 区分阶段.
var (
	ErrFileNotFound = errors.New("config: 配置文件不存在")
	ErrInvalidType  = errors.New("config: 不支持的配置文件类型")
	ErrReadConfig   = errors.New("config: 读取配置失败")
	ErrUnmarshal    = errors.New("config: 解析配置失败")
	ErrValidation   = errors.New("config: 配置验证失败")
)

// Validatable 可验证的配置接口.
type Validatable interface {
	Validate() error
}

// Defaultable 可填充默认值的配置接口，在验证之前调用.
type Defaultable interface {
	ApplyDefaults()
}

// GetConfigType 根据文件扩展名获取配置类型.
func GetConfigType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	case ".toml":
		return "toml"
	case ".env":
		return "env"
	default:
		return ""
	}
}
