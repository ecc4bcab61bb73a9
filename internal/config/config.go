package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port        int               `yaml:"port"`
		CORSOrigins []string          `yaml:"corsOrigins"`
		APIKeys     map[string]string `yaml:"apiKeys"` // client id -> api key
		RateLimit   struct {
			Capacity   int           `yaml:"capacity"`
			RefillRate int           `yaml:"refillRate"`
			Interval   time.Duration `yaml:"interval"`
		} `yaml:"rateLimit"`
		SessionTTL   time.Duration `yaml:"sessionTTL"`
		SweepEvery   time.Duration `yaml:"sweepEvery"`
		WriteTimeout time.Duration `yaml:"writeTimeout"`
	} `yaml:"server"`

	AI struct {
		APIKey      string `yaml:"apiKey"`
		BaseURL     string `yaml:"baseURL"`
		TextModel   string `yaml:"textModel"`
		VisionModel string `yaml:"visionModel"`
		MaxTokens   int    `yaml:"maxTokens"`
	} `yaml:"ai"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres | sqlite | none
		Path     string `yaml:"path"`   // sqlite file
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string        `yaml:"endpoint"`
		AccessKey  string        `yaml:"accessKey"`
		SecretKey  string        `yaml:"secretKey"`
		BucketName string        `yaml:"bucketName"`
		Region     string        `yaml:"region"`
		UseSSL     bool          `yaml:"useSSL"`
		PresignTTL time.Duration `yaml:"presignTTL"`
	} `yaml:"minio"`

	Report struct {
		SigningKeyPath    string `yaml:"signingKeyPath"` // armored OpenPGP private key
		SigningPassphrase string `yaml:"signingPassphrase"`
	} `yaml:"report"`

	Discord struct {
		Token     string `yaml:"token"`
		ChannelID string `yaml:"channelID"`
	} `yaml:"discord"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Load baca file config.yaml; file yang tidak ada berarti pakai default + env
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Path returns CONFIG_PATH or config.yaml.
func Path() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "config.yaml"
}

func (c *Config) applyEnv() {
	if v := os.Getenv("AI_API_KEY"); v != "" {
		c.AI.APIKey = v
	}
	if v := os.Getenv("AI_BASE_URL"); v != "" {
		c.AI.BaseURL = v
	}
	if v := os.Getenv("DISCORD_TOKEN"); v != "" {
		c.Discord.Token = v
	}
	if v := os.Getenv("DISCORD_CHANNEL_ID"); v != "" {
		c.Discord.ChannelID = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("REPORT_SIGNING_PASSPHRASE"); v != "" {
		c.Report.SigningPassphrase = v
	}
	if v := os.Getenv("DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.RateLimit.Capacity == 0 {
		c.Server.RateLimit.Capacity = 60
	}
	if c.Server.RateLimit.RefillRate == 0 {
		c.Server.RateLimit.RefillRate = 1
	}
	if c.Server.RateLimit.Interval == 0 {
		c.Server.RateLimit.Interval = time.Second
	}
	if c.Server.SessionTTL == 0 {
		c.Server.SessionTTL = 2 * time.Hour
	}
	if c.Server.SweepEvery == 0 {
		c.Server.SweepEvery = 5 * time.Minute
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 120 * time.Second
	}
	if c.AI.TextModel == "" {
		c.AI.TextModel = "gpt-4o-mini"
	}
	if c.AI.VisionModel == "" {
		c.AI.VisionModel = c.AI.TextModel
	}
	if c.AI.MaxTokens == 0 {
		c.AI.MaxTokens = 2048
	}
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver == "" {
		c.Database.Driver = "none"
	}
	if c.Database.Port == 0 {
		switch c.Database.Driver {
		case "mysql":
			c.Database.Port = 3306
		case "postgres":
			c.Database.Port = 5432
		}
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "data/sentinel.db"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate cek kombinasi config yang tidak masuk akal
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite", "none":
	default:
		return fmt.Errorf("database.driver %q: want mysql, postgres, sqlite or none", c.Database.Driver)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if (c.Discord.Token == "") != (c.Discord.ChannelID == "") {
		return fmt.Errorf("discord.token and discord.channelID must be set together")
	}
	return nil
}

// MinioEnabled true kalau endpoint diisi
func (c *Config) MinioEnabled() bool { return c.Minio.Endpoint != "" }

// DiscordEnabled true kalau token + channel diisi
func (c *Config) DiscordEnabled() bool { return c.Discord.Token != "" && c.Discord.ChannelID != "" }

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// Helper untuk build DSN Postgres
func (c *Config) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:     "/" + c.Database.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.Database.SSLMode),
	}
	return u.String()
}
