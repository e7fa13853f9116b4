// Package config loads service configuration from an optional YAML file
// with environment variable overrides on top.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
	VectorStore VectorStoreConfig `yaml:"vectorStore"`
	DataForSEO  DataForSEOConfig  `yaml:"dataforseo"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type StorageConfig struct {
	Dir string `yaml:"dir"`
}

type VectorStoreConfig struct {
	Path string `yaml:"path"`
}

type DataForSEOConfig struct {
	Login         string `yaml:"login"`
	Password      string `yaml:"password"`
	BaseURL       string `yaml:"baseUrl"`
	RatePerMinute int    `yaml:"ratePerMinute"`
}

func Default() Config {
	return Config{
		Server:      ServerConfig{Port: 8080},
		Storage:     StorageConfig{Dir: "data/requests"},
		VectorStore: VectorStoreConfig{Path: "data/vectorstore.json"},
		DataForSEO:  DataForSEOConfig{RatePerMinute: 2000},
	}
}

// Load builds the effective configuration: defaults, then the YAML file at
// path if it exists, then environment overrides. A missing file is not an
// error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Server.Port = n
		}
	}
	if v := os.Getenv("STORAGE_DIR"); v != "" {
		c.Storage.Dir = v
	}
	if v := os.Getenv("VECTOR_STORE_PATH"); v != "" {
		c.VectorStore.Path = v
	}
	if v := os.Getenv("DATAFORSEO_API_LOGIN"); v != "" {
		c.DataForSEO.Login = v
	}
	if v := os.Getenv("DATAFORSEO_API_PASSWORD"); v != "" {
		c.DataForSEO.Password = v
	}
	if v := os.Getenv("DATAFORSEO_API_URL"); v != "" {
		c.DataForSEO.BaseURL = v
	}
	if v := os.Getenv("DATAFORSEO_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.DataForSEO.RatePerMinute = n
		}
	}
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Storage.Dir == "" {
		return fmt.Errorf("storage dir must not be empty")
	}
	if c.VectorStore.Path == "" {
		return fmt.Errorf("vector store path must not be empty")
	}
	if c.DataForSEO.RatePerMinute <= 0 {
		return fmt.Errorf("dataforseo rate limit must be positive, got %d", c.DataForSEO.RatePerMinute)
	}
	return nil
}
