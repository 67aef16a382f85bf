package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type ServerCfg struct {
	Port                string `mapstructure:"port"`
	ReadTimeoutSeconds  int    `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds"`
	Development         bool   `mapstructure:"development"`
}

type MongoCfg struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type RedisCfg struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaCfg struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

type JwtCfg struct {
	PublicKeyPath string `mapstructure:"public_key_path"`
}

type CollaboratorsCfg struct {
	ProfileBaseURL string `mapstructure:"profile_base_url"`
	GraphBaseURL   string `mapstructure:"graph_base_url"`
}

type MediaCfg struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	URLTTLSeconds int    `mapstructure:"url_ttl_seconds"`
}

type Config struct {
	Server        ServerCfg        `mapstructure:"server"`
	Mongo         MongoCfg         `mapstructure:"mongo"`
	Redis         RedisCfg         `mapstructure:"redis"`
	Kafka         KafkaCfg         `mapstructure:"kafka"`
	JWT           JwtCfg           `mapstructure:"jwt"`
	Collaborators CollaboratorsCfg `mapstructure:"collaborators"`
	Media         MediaCfg         `mapstructure:"media"`
	// Derived
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MediaURLTTL  time.Duration
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("server.port", "8084")
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "dmdb")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "messages.events")
	v.SetDefault("kafka.group_id", "dm-service")
	v.SetDefault("jwt.public_key_path", "./keys/jwt_pub.pem")
	v.SetDefault("media.url_ttl_seconds", 900)

	// config file is optional, env/defaults carry a local run
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, err
			}
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.Server.ReadTimeoutSeconds == 0 {
		cfg.Server.ReadTimeoutSeconds = 15
	}
	if cfg.Server.WriteTimeoutSeconds == 0 {
		cfg.Server.WriteTimeoutSeconds = 15
	}
	cfg.ReadTimeout = time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second
	cfg.WriteTimeout = time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second
	cfg.MediaURLTTL = time.Duration(cfg.Media.URLTTLSeconds) * time.Second
	return &cfg, nil
}
