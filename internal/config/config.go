package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models courseline.yml.
type Config struct {
	Studio struct {
		BaseURL        string `yaml:"base_url"`
		Token          string `yaml:"token"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"studio"`
	Course struct {
		ID string `yaml:"id"`
	} `yaml:"course"`
	Clipboard struct {
		RedisAddr string `yaml:"redis_addr"`
		Channel   string `yaml:"channel"`
	} `yaml:"clipboard"`
	Serve struct {
		Addr   string `yaml:"addr"`
		DBPath string `yaml:"db_path"`
	} `yaml:"serve"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with cl config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Studio.BaseURL == "" {
		return fmt.Errorf("config.studio.base_url is required")
	}
	u, err := url.Parse(c.Studio.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config.studio.base_url %q is not an absolute URL", c.Studio.BaseURL)
	}
	if c.Course.ID == "" {
		return fmt.Errorf("config.course.id is required")
	}
	if c.Studio.TimeoutSeconds < 0 {
		return fmt.Errorf("config.studio.timeout_seconds must not be negative")
	}
	if c.Clipboard.RedisAddr != "" && c.Clipboard.Channel == "" {
		return fmt.Errorf("config.clipboard.channel is required when redis_addr is set")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "courseline.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(courseID string) string {
	return fmt.Sprintf(defaultTemplate, courseID)
}

// Default returns the default Config struct for a course.
func Default(courseID string) *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(fmt.Sprintf(defaultTemplate, courseID)), &cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `studio:
  base_url: http://localhost:8377
  token: ""
  timeout_seconds: 30

course:
  id: %s

clipboard:
  redis_addr: ""
  channel: courseline.clipboard

serve:
  addr: :8377
  db_path: courseline.db
`
