package database

import (
	"testing"
	"time"

	"github.com/stemsi/exstem-wizard/internal/config"
)

func TestPoolConfig(t *testing.T) {
	cfg := &config.Config{
		AppName:       "exstem-wizard",
		DatabaseURL:   "postgres://u:p@localhost:5432/db?sslmode=disable",
		MaxDBConns:    8,
		MinDBConns:    2,
		DBLockTimeout: 3 * time.Second,
	}
	got, err := poolConfig(cfg)
	if err != nil {
		t.Fatalf("poolConfig: %v", err)
	}
	if got.MaxConns != 8 || got.MinConns != 2 {
		t.Errorf("conns = %d/%d, want 8/2", got.MaxConns, got.MinConns)
	}
	params := got.ConnConfig.RuntimeParams
	if params["lock_timeout"] != "3000" || params["application_name"] != "exstem-wizard" {
		t.Errorf("runtime params = %v", params)
	}

	cfg.MinDBConns = 20
	cfg.DBLockTimeout = 0
	got, err = poolConfig(cfg)
	if err != nil {
		t.Fatalf("poolConfig: %v", err)
	}
	if got.MinConns != 0 {
		t.Errorf("min conns above max must be ignored, got %d", got.MinConns)
	}
	if _, ok := got.ConnConfig.RuntimeParams["lock_timeout"]; ok {
		t.Error("zero lock timeout must leave the server default")
	}

	if _, err := poolConfig(&config.Config{DatabaseURL: "://"}); err == nil {
		t.Error("bad URL accepted")
	}
}

func TestRedisOptions(t *testing.T) {
	opt, err := redisOptions(&config.Config{AppName: "exstem-wizard", RedisURL: "redis://localhost:6379/3", RedisPoolSize: 4})
	if err != nil {
		t.Fatalf("redisOptions: %v", err)
	}
	if opt.DB != 3 || opt.PoolSize != 4 || opt.ClientName != "exstem-wizard" {
		t.Errorf("options = db %d, pool %d, name %q", opt.DB, opt.PoolSize, opt.ClientName)
	}
	if _, err := redisOptions(&config.Config{RedisURL: "http://nope"}); err == nil {
		t.Error("bad URL accepted")
	}
}
