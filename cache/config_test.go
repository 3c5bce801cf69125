package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/sanurielf/scheduler/logger"
)

// ConfigTestSuite 配置测试套件.
type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (s *ConfigTestSuite) TestValidate_NilConfig() {
	var config *Config
	s.Equal(ErrNilConfig, config.Validate())
}

func (s *ConfigTestSuite) TestValidate_EmptyConfig() {
	s.NoError((&Config{}).Validate())
}

func (s *ConfigTestSuite) TestValidate_InvalidType() {
	err := (&Config{Type: "invalid"}).Validate()
	s.Error(err)
	s.IsType(&ConfigError{}, err)
}

func (s *ConfigTestSuite) TestValidate_RedisWithoutAddr() {
	err := (&Config{Type: TypeRedis}).Validate()
	s.Error(err)
	s.IsType(&ConfigError{}, err)
}

func (s *ConfigTestSuite) TestApplyDefaults() {
	config := &Config{}
	config.ApplyDefaults()

	s.Equal(TypeMemory, config.Type)
	s.Equal(DefaultPoolSize, config.PoolSize)
	s.Equal(DefaultTimeout, config.Timeout)
	s.Equal(DefaultMaxRetries, config.MaxRetries)
	s.Equal(DefaultCleanupInterval, config.CleanupInterval)
}

func (s *ConfigTestSuite) TestNewRedisConfig() {
	config := NewRedisConfig("127.0.0.1:6379")
	s.Equal(TypeRedis, config.Type)
	s.Equal("127.0.0.1:6379", config.Addr)
	s.Equal(DefaultReadTimeout, config.ReadTimeout)
	s.NoError(config.Validate())
}

func (s *ConfigTestSuite) TestNewCache() {
	log, err := logger.NewLogger(logger.DefaultConfig())
	s.Require().NoError(err)
	defer log.Close()

	_, err = NewCache(NewMemoryConfig(), nil)
	s.ErrorIs(err, ErrNilLogger)

	_, err = NewCache(nil, log)
	s.ErrorIs(err, ErrNilConfig)

	c, err := NewCache(&Config{Type: TypeMemory, CleanupInterval: time.Second}, log)
	s.NoError(err)
	s.NotNil(c)
	s.NoError(c.Close())
}
