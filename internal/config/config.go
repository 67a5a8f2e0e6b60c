package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all odoogen configuration.
type Config struct {
	Ports     PortsConfig     `yaml:"ports"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Scaffold  ScaffoldConfig  `yaml:"scaffold"`
	Registry  RegistryConfig  `yaml:"registry"`
	Docker    DockerConfig    `yaml:"docker"`
	Execution ExecutionConfig `yaml:"execution"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	return &Config{
		Ports: PortsConfig{
			Start:         8069,
			MaxAttempts:   100,
			SocketTool:    "ss",
			ProbeDocker:   true,
			ProbeRegistry: true,
		},
		Catalog: CatalogConfig{
			Path:         filepath.Join(home, "Documents", "BBG-ODOO-ADDONS-PACK"),
			Repository:   "https://github.com/bbgstack/BBG-ODOO-ADDONS-PACK",
			BranchSuffix: ".0",
			Marker:       "__manifest__.py",
		},
		Scaffold: ScaffoldConfig{
			DefaultVersion:  "18",
			OpenPermissions: "777",
		},
		Registry: RegistryConfig{
			Enabled: true,
			Path:    filepath.Join(dataHome(home), "odoogen", "projects.db"),
		},
		Docker: DockerConfig{
			Binary:  "docker",
			Timeout: "5s",
		},
		Execution: ExecutionConfig{
			DefaultTimeout: "5m",
			MaxOutputBytes: 4 * 1024 * 1024,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/odoogen/config.yaml (or the
// platform equivalent).
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".odoogen", "config.yaml")
	}
	return filepath.Join(dir, "odoogen", "config.yaml")
}

func dataHome(home string) string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir
	}
	return filepath.Join(home, ".local", "share")
}

// LoadDotEnv loads KEY=VALUE pairs from the given .env files into the
// process environment. Missing files are skipped and variables already set
// in the environment win.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// Load loads configuration from a YAML file, then applies environment
// overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	cfg.Catalog.Path = expandHome(cfg.Catalog.Path)
	cfg.Registry.Path = expandHome(cfg.Registry.Path)

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("ODOOGEN_CATALOG_PATH"); v != "" {
		c.Catalog.Path = v
	}
	if v := os.Getenv("ODOOGEN_CATALOG_REPO"); v != "" {
		c.Catalog.Repository = v
	}
	if v := os.Getenv("ODOOGEN_START_PORT"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("ODOOGEN_START_PORT: %w", err)
		}
		c.Ports.Start = n
	}
	if v := os.Getenv("ODOOGEN_MAX_PORT_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("ODOOGEN_MAX_PORT_ATTEMPTS: %w", err)
		}
		c.Ports.MaxAttempts = n
	}
	if v := os.Getenv("ODOOGEN_SOCKET_TOOL"); v != "" {
		c.Ports.SocketTool = v
	}
	if v := os.Getenv("ODOOGEN_REGISTRY_PATH"); v != "" {
		c.Registry.Path = v
	}
	if v := os.Getenv("ODOOGEN_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// GetDockerTimeout returns the docker API timeout as a duration.
func (c *Config) GetDockerTimeout() time.Duration {
	d, err := time.ParseDuration(c.Docker.Timeout)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// ValidSocketTools lists the supported listening-socket query tools.
var ValidSocketTools = []string{"ss", "netstat"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Ports.Start < 1 || c.Ports.Start > 65535 {
		return fmt.Errorf("ports.start must be within 1-65535, got %d", c.Ports.Start)
	}
	if c.Ports.MaxAttempts < 1 {
		return fmt.Errorf("ports.max_attempts must be >= 1, got %d", c.Ports.MaxAttempts)
	}

	validTool := false
	for _, tool := range ValidSocketTools {
		if c.Ports.SocketTool == tool {
			validTool = true
			break
		}
	}
	if !validTool {
		return fmt.Errorf("invalid ports.socket_tool: %s (valid: %v)", c.Ports.SocketTool, ValidSocketTools)
	}

	if strings.TrimSpace(c.Catalog.Path) == "" {
		return fmt.Errorf("catalog.path is required")
	}
	if strings.TrimSpace(c.Catalog.Marker) == "" || strings.ContainsAny(c.Catalog.Marker, `/\`) {
		return fmt.Errorf("catalog.marker must be a plain file name, got %q", c.Catalog.Marker)
	}
	if c.Scaffold.OpenPermissions != "" {
		if _, err := strconv.ParseUint(c.Scaffold.OpenPermissions, 8, 32); err != nil {
			return fmt.Errorf("scaffold.open_permissions must be an octal mode: %w", err)
		}
	}
	if c.Registry.Enabled && strings.TrimSpace(c.Registry.Path) == "" {
		return fmt.Errorf("registry.path is required when the registry is enabled")
	}

	return nil
}

// CatalogBranch returns the catalog branch tracking an Odoo version.
func (c *Config) CatalogBranch(odooVersion string) string {
	return odooVersion + c.Catalog.BranchSuffix
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
