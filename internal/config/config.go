// 包 config 负责加载与校验应用配置（settings.yaml），
// 对外提供结构体 Config 及默认值/合法性校验；配置文件缺失时全部使用默认值。
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	OutputDir       string      `yaml:"OUTPUT_DIR"`
	Preset          string      `yaml:"PRESET"`
	DefaultCategory string      `yaml:"DEFAULT_CATEGORY"`
	SimpleMode      bool        `yaml:"SIMPLE_MODE"`
	ResetOnStart    bool        `yaml:"RESET_ON_START"`
	Database        Database    `yaml:"DATABASE"`
	Concurrency     Concurrency `yaml:"CONCURRENCY"`
	Proxy           Proxy       `yaml:"PROXY"`
	Fetch           Fetch       `yaml:"FETCH"`
	LogLevel        string      `yaml:"LOG_LEVEL"`
	LogFormat       string      `yaml:"LOG_FORMAT"` // text|json|pretty
	LogLocale       string      `yaml:"LOG_LOCALE"` // zh-CN|en
	LogColor        string      `yaml:"LOG_COLOR"`  // auto|always|never
}

type Database struct {
	Type string `yaml:"type"` // sqlite (default)
	DSN  string `yaml:"dsn"`  // ./reports.db
}

type Concurrency struct {
	// Workers：导入目录时并行解析的文件数
	Workers int `yaml:"workers"`
	Retry   int `yaml:"retry"`
}

type Proxy struct {
	HTTP  string `yaml:"http"`
	HTTPS string `yaml:"https"`
}

// Fetch 为直接下载报告页时的请求参数；报告页需要登录会话。
type Fetch struct {
	UserAgent      string `yaml:"user_agent"`
	Cookie         string `yaml:"cookie"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Default 返回已填充默认值的配置。
func Default() *Config {
	c := &Config{}
	_ = c.Validate()
	return c
}

func Load(path string) (*Config, error) {
	// Load 从文件读取 YAML 并反序列化为 Config；文件不存在时返回默认配置。
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

func (c *Config) Validate() error {
	// Validate 负责合法性检查与默认值设置，避免在业务层分散判空逻辑。
	if c.Concurrency.Workers < 0 {
		return errors.New("CONCURRENCY.workers must be >= 0")
	}
	if c.Concurrency.Retry < 0 {
		return errors.New("CONCURRENCY.retry must be >= 0")
	}
	if c.Fetch.TimeoutSeconds < 0 {
		return errors.New("FETCH.timeout_seconds must be >= 0")
	}
	if c.OutputDir == "" {
		c.OutputDir = "."
	}
	if c.Preset == "" {
		c.Preset = "default"
	}
	if c.DefaultCategory == "" {
		c.DefaultCategory = "Uncategorized"
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.Type != "sqlite" {
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}
	if c.Database.DSN == "" {
		c.Database.DSN = "./reports.db"
	}
	if c.Concurrency.Workers == 0 {
		c.Concurrency.Workers = 4
	}
	if c.Fetch.TimeoutSeconds == 0 {
		c.Fetch.TimeoutSeconds = 25
	}
	if c.LogFormat == "" {
		c.LogFormat = "pretty"
	}
	if c.LogLocale == "" {
		c.LogLocale = "zh-CN"
	}
	if c.LogColor == "" {
		c.LogColor = "auto"
	}
	return nil
}
