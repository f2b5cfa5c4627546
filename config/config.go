package config

import (
    "fmt"
    "strings"

    "github.com/spf13/viper"
)

type Config struct {
    Server struct {
        Port string `mapstructure:"port"`
        Host string `mapstructure:"host"`
        Name string `mapstructure:"name"`
    } `mapstructure:"server"`

    Database struct {
        Path       string `mapstructure:"path"`       // sqlite file path
        Migrations string `mapstructure:"migrations"` // migrations directory
    } `mapstructure:"database"`

    Redis struct {
        Addr      string `mapstructure:"addr"`
        Password  string `mapstructure:"password"`
        DB        int    `mapstructure:"db"`
        OpTimeout string `mapstructure:"op_timeout"` // per-call timeout for shared-store round-trips
    } `mapstructure:"redis"`

    Auth struct {
        JWTSecret   string `mapstructure:"jwt_secret"`
        Pepper      string `mapstructure:"pepper"`
        TokenExpiry string `mapstructure:"token_expiry"`
    } `mapstructure:"auth"`

    Chat struct {
        HistoryLimit int      `mapstructure:"history_limit"` // recent messages kept per room
        BusChannel   string   `mapstructure:"bus_channel"`
        Rooms        []string `mapstructure:"rooms"` // static room catalog
    } `mapstructure:"chat"`
}

func Load() (*Config, error) {
    viper.SetConfigName("config")
    viper.SetConfigType("yaml")
    viper.AddConfigPath(".")
    viper.AddConfigPath("./config")

    // Environment variable support
    viper.AutomaticEnv()
    viper.SetEnvPrefix("APP")
    viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

    setDefaults()

    // Read config file (optional - fallback to env vars)
    if err := viper.ReadInConfig(); err != nil {
        if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
            return nil, fmt.Errorf("error reading config file: %w", err)
        }
    }

    var config Config
    if err := viper.Unmarshal(&config); err != nil {
        return nil, fmt.Errorf("unable to decode config: %w", err)
    }

    if err := config.validate(); err != nil {
        return nil, err
    }

    return &config, nil
}

// validate refuses empty signing secrets: HS256 tokens signed with an empty
// key would verify for anyone who knows that.
func (c *Config) validate() error {
    if c.Auth.JWTSecret == "" {
        return fmt.Errorf("auth.jwt_secret must be set (APP_AUTH_JWT_SECRET)")
    }
    if c.Auth.Pepper == "" {
        return fmt.Errorf("auth.pepper must be set (APP_AUTH_PEPPER)")
    }
    return nil
}

func setDefaults() {
    viper.SetDefault("server.port", "8000")
    viper.SetDefault("server.host", "localhost")
    viper.SetDefault("server.name", "PARLOR")
    viper.SetDefault("database.path", "parlor.db")
    viper.SetDefault("database.migrations", "migrations")
    viper.SetDefault("redis.addr", "localhost:6379")
    viper.SetDefault("redis.db", 0)
    viper.SetDefault("redis.op_timeout", "5s")
    viper.SetDefault("auth.token_expiry", "24h")
    // Registered with empty defaults so the env override is picked up by
    // Unmarshal; validate rejects them if they stay empty.
    viper.SetDefault("auth.jwt_secret", "")
    viper.SetDefault("auth.pepper", "")
    viper.SetDefault("chat.history_limit", 20)
    viper.SetDefault("chat.bus_channel", "chat")
    viper.SetDefault("chat.rooms", []string{"General", "Sports", "Tech", "Random"})
}
