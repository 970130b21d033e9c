package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"go-rating/internal/spam"
)

const (
	defaultConfigPath = "config.yaml"
	configPathEnv     = "CONFIG_PATH"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Cron     CronConfig     `yaml:"cron"`
	Spam     SpamConfig     `yaml:"spam"`
	Log      LogConfig      `yaml:"log"`

	source string
}

type ServerConfig struct {
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type CronConfig struct {
	FetchInterval string `yaml:"fetch_interval"` // RSS抓取间隔, cron 表达式
}

// SpamConfig 刷分检测参数
type SpamConfig struct {
	IsActive          bool    `yaml:"is_active"`
	CountLimit        int64   `yaml:"count_limit"`         // 评分数低于此值不做初筛
	ZScoreBound       float64 `yaml:"zscore_bound"`        // 初筛 z 分数阈值
	ProbDiffLimit     float64 `yaml:"prob_diff_limit"`     // 复核时实际频率与正态期望的差值阈值
	TaskPeriodMinutes int     `yaml:"task_period_minutes"` // 复核任务间隔(分钟)
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default 默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Path: "data/rating.db",
		},
		Cron: CronConfig{
			FetchInterval: "*/30 * * * *", // 每30分钟
		},
		Spam: SpamConfig{
			IsActive:          true,
			CountLimit:        100,
			ZScoreBound:       2.0,
			ProbDiffLimit:     0.05,
			TaskPeriodMinutes: 15,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load 加载配置文件, configPath 为空时读取 CONFIG_PATH 或 config.yaml
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = os.Getenv(configPathEnv)
	}
	if configPath == "" {
		configPath = defaultConfigPath
	}

	cfg := Default()

	// 如果配置文件存在,读取配置
	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", configPath, err)
		}
		cfg.source = configPath
	}

	// 环境变量覆盖配置
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("GIN_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if dbPath := os.Getenv("DB_PATH"); dbPath != "" {
		c.Database.Path = dbPath
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if interval := os.Getenv("FEED_FETCH_INTERVAL"); interval != "" {
		c.Cron.FetchInterval = interval
	}

	if v := os.Getenv("SPAM_DETECTION_IS_ACTIVE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SPAM_DETECTION_IS_ACTIVE: %w", err)
		}
		c.Spam.IsActive = b
	}
	if v := os.Getenv("SPAM_RATE_COUNT_LIMIT"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("SPAM_RATE_COUNT_LIMIT: %w", err)
		}
		c.Spam.CountLimit = n
	}
	if v := os.Getenv("SPAM_RATE_ZSCORE_BOUND"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("SPAM_RATE_ZSCORE_BOUND: %w", err)
		}
		c.Spam.ZScoreBound = f
	}
	if v := os.Getenv("SPAM_RATE_PROB_DIFF_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("SPAM_RATE_PROB_DIFF_LIMIT: %w", err)
		}
		c.Spam.ProbDiffLimit = f
	}
	if v := os.Getenv("SPAM_DETECTION_TASK_PERIOD_TIME"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SPAM_DETECTION_TASK_PERIOD_TIME: %w", err)
		}
		c.Spam.TaskPeriodMinutes = n
	}
	return nil
}

// Validate 检查配置取值
func (c *Config) Validate() error {
	var problems []string
	if c.Spam.CountLimit < 0 {
		problems = append(problems, "spam.count_limit must not be negative")
	}
	if c.Spam.ZScoreBound <= 0 {
		problems = append(problems, "spam.zscore_bound must be positive")
	}
	if c.Spam.TaskPeriodMinutes <= 0 {
		problems = append(problems, "spam.task_period_minutes must be positive")
	}
	if c.Database.Path == "" {
		problems = append(problems, "database.path is required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Source 返回读取的配置文件路径, 未找到配置文件时为空
func (c *Config) Source() string {
	return c.source
}

// GetServerAddress 获取服务器监听地址
func (c *Config) GetServerAddress() string {
	// 如果端口是纯数字,加上冒号前缀
	if _, err := strconv.Atoi(c.Server.Port); err == nil {
		return ":" + c.Server.Port
	}
	return c.Server.Port
}

// SpamSchedule 复核任务的 cron 表达式
func (c *Config) SpamSchedule() string {
	return fmt.Sprintf("@every %dm", c.Spam.TaskPeriodMinutes)
}

// ClassifierConfig 初筛器参数
func (c *Config) ClassifierConfig() spam.ClassifierConfig {
	return spam.ClassifierConfig{
		IsActive:       c.Spam.IsActive,
		MinRatingCount: c.Spam.CountLimit,
		ZScoreBound:    c.Spam.ZScoreBound,
	}
}
