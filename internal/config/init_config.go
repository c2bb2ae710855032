package config

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config 服务配置，yaml文件可选，环境变量优先
type Config struct {
	Addr                 string `yaml:"addr"`
	DataDir              string `yaml:"data_dir"`
	LogFile              string `yaml:"log_file"`
	ChatModel            string `yaml:"chat_model"`
	ImageModel           string `yaml:"image_model"`
	TextQuotaBytes       int    `yaml:"text_quota_bytes"`
	BlobQuotaBytes       int64  `yaml:"blob_quota_bytes"`
	RetryAttempts        int    `yaml:"retry_attempts"`
	RetryDelayMS         int    `yaml:"retry_delay_ms"`
	PageDelayMS          int    `yaml:"page_delay_ms"`
	PageConcurrency      int    `yaml:"page_concurrency"`
	TextReferenceBaseURL string `yaml:"text_reference_base_url"`
}

// Default 默认配置
func Default() *Config {
	return &Config{
		Addr:            ":8080",
		DataDir:         "data",
		LogFile:         "app.log",
		ChatModel:       "ep-20250220181854-c8s82",
		ImageModel:      "doubao-seedream-4.0",
		TextQuotaBytes:  5 << 20,   // 对标localStorage约5MB
		BlobQuotaBytes:  200 << 20, // blob存储预算
		RetryAttempts:   3,
		RetryDelayMS:    2000,
		PageDelayMS:     5000,
		PageConcurrency: 1, // 默认严格顺序生成，保证跨页一致性
	}
}

// Load 读取配置：默认值 <- yaml文件（存在时） <- 环境变量
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(b, cfg); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}
	if v := os.Getenv("STORYBOOK_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("STORYBOOK_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("ARK_CHAT_MODEL"); v != "" {
		cfg.ChatModel = v
	}
	if v := os.Getenv("ARK_IMAGE_MODEL"); v != "" {
		cfg.ImageModel = v
	}
	return cfg, nil
}

// RetryDelay 重试间隔
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMS) * time.Millisecond
}

// PageDelay 页间固定延迟，用于照顾外部接口限流
func (c *Config) PageDelay() time.Duration {
	return time.Duration(c.PageDelayMS) * time.Millisecond
}

// InitLog 初始化日志输出，同时写到stdout和日志文件
func (c *Config) InitLog() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetLevel(logrus.InfoLevel)
	if c.LogFile == "" {
		return
	}
	logFile, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		logrus.Warnf("打开日志文件失败: %v", err)
		return
	}
	logrus.SetOutput(io.MultiWriter(os.Stdout, logFile))
}
