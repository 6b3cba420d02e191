package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"weathercache/internal/models"
)

type Location struct {
	Name      string  `yaml:"name"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

func (l Location) Coordinate() models.Coordinate {
	return models.Coordinate{Latitude: l.Latitude, Longitude: l.Longitude}
}

var (
	instance *Config
	loadErr  error
	once     sync.Once
)

var storageDrivers = []string{"sqlite", "redis", "mysql", "memory"}

type Config struct {
	Server struct {
		Addr           string   `yaml:"addr"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	OpenWeather struct {
		APIKey          string        `yaml:"api_key"`
		BaseURL         string        `yaml:"base_url"`
		Units           string        `yaml:"units"`
		Timeout         time.Duration `yaml:"timeout"`
		BreakerFailures uint32        `yaml:"breaker_failures"`
	} `yaml:"openweather"`
	Cache struct {
		TimeZone string `yaml:"time_zone"`
		SyncHour int    `yaml:"sync_hour"`
		Strict   bool   `yaml:"strict"`
		MaxDays  int    `yaml:"max_days"`
	} `yaml:"cache"`
	Storage struct {
		Driver     string `yaml:"driver"`
		SQLitePath string `yaml:"sqlite_path"`
		KeyPrefix  string `yaml:"key_prefix"`
		MySQLDSN   string `yaml:"mysql_dsn"`
	} `yaml:"storage"`
	Redis  RedisConfig `yaml:"redis"`
	Events struct {
		Enabled bool   `yaml:"enabled"`
		Group   string `yaml:"group"`
	} `yaml:"events"`
	Warm struct {
		Enabled  bool          `yaml:"enabled"`
		Interval time.Duration `yaml:"interval"`
		Days     int           `yaml:"days"`
	} `yaml:"warm"`
	Locations []Location `yaml:"locations"`
}

// Load reads the yaml file once, layers .env files and environment
// variables on top and validates the result.
func Load(configPath string) (*Config, error) {
	once.Do(func() {
		instance = Defaults()

		data, err := os.ReadFile(configPath)
		if err != nil {
			loadErr = fmt.Errorf("failed to read config file %s: %w", configPath, err)
			return
		}

		if err := yaml.Unmarshal(data, instance); err != nil {
			loadErr = fmt.Errorf("failed to parse config: %w", err)
			return
		}

		loadEnvFiles()
		instance.applyEnv()
		loadErr = instance.validate()
	})

	if loadErr != nil {
		return nil, loadErr
	}
	return instance, nil
}

func Get() *Config {
	if instance == nil || loadErr != nil {
		panic("config not loaded - call config.Load() first")
	}
	return instance
}

// Defaults returns a config with every optional setting filled in
func Defaults() *Config {
	c := &Config{}
	c.Server.Addr = ":3000"
	c.OpenWeather.BaseURL = "https://api.openweathermap.org/data/3.0/onecall/day_summary"
	c.OpenWeather.Timeout = 10 * time.Second
	c.OpenWeather.BreakerFailures = 5
	c.Cache.TimeZone = "UTC"
	c.Cache.MaxDays = 3660
	c.Storage.Driver = "sqlite"
	c.Storage.SQLitePath = "./data/weathercache.db"
	c.Redis = RedisConfig{Addr: "localhost:6379", Stream: "day_summaries"}
	c.Events.Group = "day_summary_mirrors"
	c.Warm.Interval = 24 * time.Hour
	c.Warm.Days = 7
	return c
}

func (c *Config) applyEnv() {
	c.OpenWeather.APIKey = getEnv("OPENWEATHER_API_KEY", c.OpenWeather.APIKey)
	c.OpenWeather.BaseURL = getEnv("OPENWEATHER_BASE_URL", c.OpenWeather.BaseURL)
	c.Cache.TimeZone = getEnv("APP_TIME_ZONE", c.Cache.TimeZone)
	c.Cache.SyncHour = getEnvInt("APP_SYNC_HOUR", c.Cache.SyncHour)
	c.Cache.MaxDays = getEnvInt("APP_MAX_DAYS", c.Cache.MaxDays)
	c.Storage.Driver = getEnv("STORAGE_DRIVER", c.Storage.Driver)
	c.Storage.SQLitePath = getEnv("SQLITE_PATH", c.Storage.SQLitePath)
	c.Storage.MySQLDSN = GetDatabaseDSN(c.Storage.MySQLDSN)

	if port := os.Getenv("PORT"); port != "" {
		c.Server.Addr = ":" + port
	}
	if origins := os.Getenv("APP_ENABLED_ORIGINS"); origins != "" {
		c.Server.AllowedOrigins = strings.Split(origins, ",")
	}

	c.Redis.applyEnv()
}

func (c *Config) validate() error {
	if _, err := time.LoadLocation(c.Cache.TimeZone); err != nil {
		return &models.ConfigurationError{Setting: "cache.time_zone", Err: err}
	}
	if c.Cache.SyncHour < 0 || c.Cache.SyncHour > 23 {
		return &models.ConfigurationError{Setting: "cache.sync_hour", Err: fmt.Errorf("must be between 0 and 23, got %d", c.Cache.SyncHour)}
	}
	if c.Cache.MaxDays < 0 {
		return &models.ConfigurationError{Setting: "cache.max_days", Err: errors.New("cannot be negative")}
	}
	if !contains(storageDrivers, c.Storage.Driver) {
		return &models.ConfigurationError{Setting: "storage.driver", Err: fmt.Errorf("unknown driver %q, want one of %s", c.Storage.Driver, strings.Join(storageDrivers, ", "))}
	}
	if c.Storage.Driver == "sqlite" && c.Storage.SQLitePath == "" {
		return &models.ConfigurationError{Setting: "storage.sqlite_path", Err: errors.New("cannot be empty")}
	}
	if c.Warm.Days < 0 {
		return &models.ConfigurationError{Setting: "warm.days", Err: errors.New("cannot be negative")}
	}
	if c.Warm.Enabled && c.Warm.Interval <= 0 {
		return &models.ConfigurationError{Setting: "warm.interval", Err: errors.New("must be positive")}
	}
	return nil
}

// Location returns the configured cache time zone. Load has already validated it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Cache.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
