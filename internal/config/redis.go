package config

import (
	"os"
	"strconv"

	"github.com/go-redis/redis/v8"
)

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Stream   string `yaml:"stream"`
}

// GetRedisConfig returns redis settings from the environment only,
// for binaries that run without a config file.
func GetRedisConfig() RedisConfig {
	cfg := RedisConfig{Addr: "localhost:6379", Stream: "day_summaries"}
	cfg.applyEnv()
	return cfg
}

// ClientOptions converts the settings into go-redis options
func (r RedisConfig) ClientOptions() *redis.Options {
	return &redis.Options{
		Addr:     r.Addr,
		Password: r.Password,
		DB:       r.DB,
	}
}

func (r *RedisConfig) applyEnv() {
	r.Addr = getEnv("REDIS_ADDR", r.Addr)
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		r.Password = password
	}
	r.DB = getEnvInt("REDIS_DB", r.DB)
	r.Stream = getEnv("REDIS_STREAM", r.Stream)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
