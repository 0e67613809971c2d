// Package config provides Viper-based configuration management for rationctl
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/smart-ration/rationctl/internal/registry"
)

// Config represents the complete rationctl configuration
type Config struct {
	Project  ProjectConfig   `mapstructure:"project"`
	Compose  ComposeConfig   `mapstructure:"compose"`
	Deploy   DeployConfig    `mapstructure:"deploy"`
	Monitor  MonitorConfig   `mapstructure:"monitor"`
	Services []ServiceConfig `mapstructure:"services"`
	Logging  LoggingConfig   `mapstructure:"logging"`
	Output   OutputConfig    `mapstructure:"output"`
}

// ProjectConfig contains project-level settings
type ProjectConfig struct {
	Root string `mapstructure:"root"`
	Name string `mapstructure:"name"`
}

// ComposeConfig contains compose definition settings
type ComposeConfig struct {
	File    string `mapstructure:"file"`
	EnvFile string `mapstructure:"env_file"`
}

// DeployConfig contains deployment state machine settings
type DeployConfig struct {
	Settle         time.Duration `mapstructure:"settle"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	BuildTimeout   time.Duration `mapstructure:"build_timeout"`
}

// MonitorConfig contains health monitor settings
type MonitorConfig struct {
	LogTail        int           `mapstructure:"log_tail"`
	LogsDir        string        `mapstructure:"logs_dir"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	DBUser         string        `mapstructure:"db_user"`
	DBName         string        `mapstructure:"db_name"`
}

// ServiceConfig describes one expected service; overrides the built-in set
type ServiceConfig struct {
	Name           string   `mapstructure:"name"`
	Container      string   `mapstructure:"container"`
	Role           string   `mapstructure:"role"`
	ReadinessProbe []string `mapstructure:"readiness_probe"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// OutputConfig contains output formatting settings
type OutputConfig struct {
	Colors bool `mapstructure:"colors"`
}

// Load reads configuration from file and environment variables
func Load(cfgFile, projectDir string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		// Search paths for .rationctl.yaml
		v.SetConfigName(".rationctl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/rationctl")

		if projectDir != "" {
			v.AddConfigPath(projectDir)
		}
	}

	// Environment variables
	v.SetEnvPrefix("RATIONCTL")
	v.AutomaticEnv()

	setDefaults(v)

	// Override project root if specified via flag
	if projectDir != "" {
		v.Set("project.root", projectDir)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	// Auto-detect project root if not set
	if v.GetString("project.root") == "" {
		v.Set("project.root", detectProjectRoot())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values
func setDefaults(v *viper.Viper) {
	v.SetDefault("project.name", "smart_ration")

	v.SetDefault("compose.file", "docker-compose.yml")
	v.SetDefault("compose.env_file", ".env")

	v.SetDefault("deploy.settle", 10*time.Second)
	v.SetDefault("deploy.command_timeout", 2*time.Minute)
	v.SetDefault("deploy.build_timeout", 30*time.Minute)

	v.SetDefault("monitor.log_tail", 50)
	v.SetDefault("monitor.logs_dir", "logs")
	v.SetDefault("monitor.command_timeout", 15*time.Second)
	v.SetDefault("monitor.db_user", "postgres")
	v.SetDefault("monitor.db_name", "telegram_bot")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("output.colors", true)
}

// detectProjectRoot walks up from the working directory looking for
// deployment markers
func detectProjectRoot() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}

	dir := cwd
	for {
		if _, err := os.Stat(filepath.Join(dir, "docker-compose.yml")); err == nil {
			return dir
		}
		if _, err := os.Stat(filepath.Join(dir, ".rationctl.yaml")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return cwd
		}
		dir = parent
	}
}

// validate checks the configuration for errors
func validate(cfg *Config) error {
	if cfg.Project.Root != "" {
		if _, err := os.Stat(cfg.Project.Root); os.IsNotExist(err) {
			return fmt.Errorf("project root does not exist: %s", cfg.Project.Root)
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", cfg.Logging.Level)
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s (must be text or json)", cfg.Logging.Format)
	}

	validRoles := map[string]bool{"app": true, "database": true, "cache": true, "proxy": true}
	for _, s := range cfg.Services {
		if s.Name == "" || s.Container == "" {
			return fmt.Errorf("service entries require name and container")
		}
		if !validRoles[s.Role] {
			return fmt.Errorf("invalid role %q for service %s (must be app, database, cache, or proxy)", s.Role, s.Name)
		}
	}

	return nil
}

// ComposeFilePath returns the full path to the compose definition
func (c *Config) ComposeFilePath() string {
	if filepath.IsAbs(c.Compose.File) {
		return c.Compose.File
	}
	return filepath.Join(c.Project.Root, c.Compose.File)
}

// EnvFilePath returns the full path to the secrets/env file
func (c *Config) EnvFilePath() string {
	if filepath.IsAbs(c.Compose.EnvFile) {
		return c.Compose.EnvFile
	}
	return filepath.Join(c.Project.Root, c.Compose.EnvFile)
}

// Registry builds the service registry from config, falling back to the
// built-in smart-ration service set when no services are declared.
func (c *Config) Registry() *registry.Registry {
	if len(c.Services) == 0 {
		return registry.NewRegistry()
	}

	services := make([]registry.Service, 0, len(c.Services))
	for _, s := range c.Services {
		services = append(services, registry.Service{
			Name:             s.Name,
			ContainerPattern: s.Container,
			Role:             registry.Role(s.Role),
			ReadinessProbe:   s.ReadinessProbe,
		})
	}
	return registry.NewRegistryFromServices(services)
}
