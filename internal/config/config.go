// Package config defines the data structures related to configuration and
// includes functions for loading, validating and defaulting it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/iwvelando/data-dashboard/pkg/constants"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for data-dashboard.
type Configuration struct {
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging,omitempty"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output,omitempty"`
	Sample  SampleConfig  `mapstructure:"sample" yaml:"sample,omitempty"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server,omitempty"`
	Report  ReportConfig  `mapstructure:"report" yaml:"report,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level,omitempty" validate:"omitempty,oneof=debug info warn warning error"`
	Format     string `mapstructure:"format" yaml:"format,omitempty" validate:"omitempty,oneof=json console"`
	OutputFile string `mapstructure:"outputFile" yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format,omitempty" validate:"omitempty,oneof=pretty csv json yaml xlsx"`
}

// SampleConfig locates the sample dataset loaded at startup. An empty BaseURL
// uses the copy bundled into the binary.
type SampleConfig struct {
	BaseURL  string        `mapstructure:"baseURL" yaml:"baseURL,omitempty" validate:"omitempty,url"`
	Path     string        `mapstructure:"path" yaml:"path" validate:"required"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gt=0"`
	Attempts uint          `mapstructure:"attempts" yaml:"attempts" validate:"min=1,max=10"`
}

// ServerConfig defines runtime parameters for the HTTP server.
type ServerConfig struct {
	Address         string `mapstructure:"address" yaml:"address" validate:"required"`
	MaxUploadSize   string `mapstructure:"maxUploadSize" yaml:"maxUploadSize"`
	uploadSizeBytes int64
}

// ReportConfig controls report export and KPI display formatting.
type ReportConfig struct {
	OutputFile     string `mapstructure:"outputFile" yaml:"outputFile" validate:"required"`
	Locale         string `mapstructure:"locale" yaml:"locale" validate:"required"`
	CurrencySymbol string `mapstructure:"currencySymbol" yaml:"currencySymbol"`
	ChartWidth     int    `mapstructure:"chartWidth" yaml:"chartWidth" validate:"min=100,max=4000"`
	ChartHeight    int    `mapstructure:"chartHeight" yaml:"chartHeight" validate:"min=100,max=4000"`
}

var validate = validator.New()

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Configuration {
	cfg := &Configuration{}
	v := viper.New()
	setDefaults(v)
	// Defaults are always decodable.
	_ = v.Unmarshal(cfg)
	_ = cfg.normalize()
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "")
	v.SetDefault("logging.format", "")
	v.SetDefault("logging.outputFile", "")
	v.SetDefault("output.format", constants.OutputFormatPretty)
	v.SetDefault("sample.baseURL", "")
	v.SetDefault("sample.path", constants.DefaultSamplePath)
	v.SetDefault("sample.timeout", constants.DefaultSampleTimeoutSeconds*time.Second)
	v.SetDefault("sample.attempts", constants.DefaultSampleAttempts)
	v.SetDefault("server.address", constants.DefaultServerAddress)
	v.SetDefault("server.maxUploadSize", fmt.Sprintf("%d", constants.DefaultMaxUploadSizeBytes))
	v.SetDefault("report.outputFile", constants.ReportFileName)
	v.SetDefault("report.locale", constants.DefaultLocale)
	v.SetDefault("report.currencySymbol", constants.DefaultCurrencySymbol)
	v.SetDefault("report.chartWidth", constants.DefaultChartWidth)
	v.SetDefault("report.chartHeight", constants.DefaultChartHeight)
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there. A missing file yields the defaults. Environment
// variables prefixed with DASHBOARD_ override both, e.g.
// DASHBOARD_SERVER_ADDRESS for server.address.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file, %w", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file, %w", err)
		}
	}

	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}

	if err := configuration.normalize(); err != nil {
		return nil, err
	}
	if err := configuration.Validate(); err != nil {
		return nil, err
	}
	return &configuration, nil
}

// Validate checks every field constraint and returns them joined.
func (c *Configuration) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		messages := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			messages = append(messages, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(messages, "; "))
	}
	return nil
}

func (c *Configuration) normalize() error {
	return c.Server.normalize()
}
