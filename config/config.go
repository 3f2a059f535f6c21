// Package config 从环境变量（以及可选的 .env 文件）读取运行配置。
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config 是命令行与导出流程使用的配置。
type Config struct {
	Log    LogConfig
	Export ExportConfig
	DPP    DPPConfig
	// DatabaseURL 为空时不启用设计存储。
	DatabaseURL string
}

type LogConfig struct {
	Level  string
	Format string
}

type ExportConfig struct {
	OutputDir string
	Pacing    time.Duration
	Locale    string
}

// DPPConfig 对应 labeldata.DPPURLOptions。
type DPPConfig struct {
	Format  string
	Domain  string
	BaseURL string
}

// Load 先加载 .env（不存在时忽略），再读取 LABELKIT_* 环境变量。
// 已经存在的环境变量不会被 .env 覆盖。
func Load(files ...string) *Config {
	_ = godotenv.Load(files...)
	return FromEnv()
}

// FromEnv 只读取当前环境变量。
func FromEnv() *Config {
	return &Config{
		Log: LogConfig{
			Level:  getEnv("LABELKIT_LOG_LEVEL", "info"),
			Format: getEnv("LABELKIT_LOG_FORMAT", "console"),
		},
		Export: ExportConfig{
			OutputDir: getEnv("LABELKIT_OUTPUT_DIR", "output"),
			Pacing:    time.Duration(getEnvInt("LABELKIT_EXPORT_PACING_MS", 0)) * time.Millisecond,
			Locale:    getEnv("LABELKIT_LOCALE", "en"),
		},
		DPP: DPPConfig{
			Format:  getEnv("LABELKIT_DPP_FORMAT", "gs1"),
			Domain:  getEnv("LABELKIT_DPP_DOMAIN", ""),
			BaseURL: strings.TrimRight(getEnv("LABELKIT_DPP_BASE_URL", "https://dpp.example.com"), "/"),
		},
		DatabaseURL: getEnv("LABELKIT_DATABASE_URL", ""),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}
