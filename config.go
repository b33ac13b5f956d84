package qnode

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	ClusterSize       int     `mapstructure:"cluster_size"`
	Radius            float64 `mapstructure:"radius"`
	Steps             int     `mapstructure:"steps"`
	TimeStep          float64 `mapstructure:"time_step"`
	ChangeProbability float64 `mapstructure:"change_probability"`
	Seed              uint64  `mapstructure:"seed"` // 0 means unseeded
	Inspect           string  `mapstructure:"inspect"`
}

func NewConfig() *Config {
	return &Config{
		ClusterSize:       12,
		Radius:            5.0,
		Steps:             5,
		TimeStep:          1.0,
		ChangeProbability: DefaultChangeProbability,
		Inspect:           "QN-1",
	}
}

/*
LoadConfig reads the run configuration from v, which may already carry bound
flags. A config file is optional; QNODE_ prefixed environment variables
override it.
*/
func LoadConfig(v *viper.Viper, configPath string) (*Config, error) {
	config := NewConfig()

	v.SetDefault("cluster_size", config.ClusterSize)
	v.SetDefault("radius", config.Radius)
	v.SetDefault("steps", config.Steps)
	v.SetDefault("time_step", config.TimeStep)
	v.SetDefault("change_probability", config.ChangeProbability)
	v.SetDefault("seed", config.Seed)
	v.SetDefault("inspect", config.Inspect)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("qnode")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("QNODE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.ClusterSize < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidSize, c.ClusterSize)
	}

	if !validRadius(c.Radius) {
		return fmt.Errorf("%w: %v", ErrInvalidRadius, c.Radius)
	}

	if c.Steps < 0 {
		return fmt.Errorf("steps must not be negative: %d", c.Steps)
	}

	if !(c.TimeStep > 0) || math.IsInf(c.TimeStep, 1) {
		return fmt.Errorf("time step must be positive: %v", c.TimeStep)
	}

	if !validProbability(c.ChangeProbability) {
		return fmt.Errorf("%w: %v", ErrInvalidProbability, c.ChangeProbability)
	}

	return nil
}

// RandomSource returns a seeded source when Seed is set, the global one otherwise.
func (c *Config) RandomSource() RandomSource {
	if c.Seed == 0 {
		return globalSource{}
	}
	return NewSeededSource(c.Seed)
}
