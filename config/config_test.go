package config

import (
    "strings"
    "testing"

    "github.com/spf13/viper"
)

func TestLoadRequiresSigningSecrets(t *testing.T) {
    tests := []struct {
        name    string
        secret  string
        pepper  string
        wantErr string
    }{
        {"missing jwt secret", "", "pep", "auth.jwt_secret"},
        {"missing pepper", "shh", "", "auth.pepper"},
    }

    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            viper.Reset()
            t.Setenv("APP_AUTH_JWT_SECRET", tt.secret)
            t.Setenv("APP_AUTH_PEPPER", tt.pepper)

            _, err := Load()
            if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
                t.Fatalf("Load() error = %v, want mention of %s", err, tt.wantErr)
            }
        })
    }
}

func TestLoadAppliesDefaults(t *testing.T) {
    viper.Reset()
    t.Setenv("APP_AUTH_JWT_SECRET", "shh")
    t.Setenv("APP_AUTH_PEPPER", "pep")

    cfg, err := Load()
    if err != nil {
        t.Fatalf("Load() error: %v", err)
    }
    if cfg.Auth.JWTSecret != "shh" {
        t.Errorf("jwt secret = %q, want env value", cfg.Auth.JWTSecret)
    }
    if cfg.Server.Port != "8000" {
        t.Errorf("default port = %q, want 8000", cfg.Server.Port)
    }
    if cfg.Chat.HistoryLimit != 20 {
        t.Errorf("default history limit = %d, want 20", cfg.Chat.HistoryLimit)
    }
    if cfg.Chat.BusChannel != "chat" {
        t.Errorf("default bus channel = %q, want chat", cfg.Chat.BusChannel)
    }
}
