package config

import (
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TRACKER_PASSWORD", "secret")
	t.Setenv("INSTANCE_ID", "node-1")

	cfg, err := Load(zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.StorageBackend != "memory" || cfg.SessionBackend != "memory" || cfg.Realtime != "off" {
		t.Fatalf("backends = %s/%s/%s", cfg.StorageBackend, cfg.SessionBackend, cfg.Realtime)
	}
	if cfg.SessionTTL != 12*time.Hour || !cfg.ConfirmDeletes || cfg.ReconcileRepair {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.InstanceID != "node-1" || cfg.DefaultStudent != "Dima" || cfg.LedgerKey == cfg.RosterKey {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ADMIN_PASSWORD", "a")
	t.Setenv("STUDENT_PASSWORD", "s")
	t.Setenv("STORAGE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "r1:6379, r2:6379,")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("CONFIRM_DELETES", "false")

	cfg, err := Load(zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.RedisAddrs) != 2 || cfg.RedisAddrs[1] != "r2:6379" {
		t.Fatalf("redis addrs = %q", cfg.RedisAddrs)
	}
	if cfg.SessionTTL != 30*time.Minute || cfg.ConfirmDeletes {
		t.Fatalf("overrides ignored: %+v", cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"no password", map[string]string{}, "TRACKER_PASSWORD"},
		{"only admin password", map[string]string{"ADMIN_PASSWORD": "a"}, "set together"},
		{"shared password with lone admin password", map[string]string{"TRACKER_PASSWORD": "x", "ADMIN_PASSWORD": "a"}, "set together"},
		{"shared password with lone student password", map[string]string{"TRACKER_PASSWORD": "x", "STUDENT_PASSWORD": "s"}, "set together"},
		{"bad ttl", map[string]string{"TRACKER_PASSWORD": "x", "SESSION_TTL": "soon"}, "SESSION_TTL"},
		{"bad bool", map[string]string{"TRACKER_PASSWORD": "x", "CONFIRM_DELETES": "maybe"}, "CONFIRM_DELETES"},
		{"unknown backend", map[string]string{"TRACKER_PASSWORD": "x", "STORAGE_BACKEND": "floppy"}, "STORAGE_BACKEND"},
		{"postgres without dsn", map[string]string{"TRACKER_PASSWORD": "x", "STORAGE_BACKEND": "postgres"}, "POSTGRES_DSN"},
		{"mysql without dsn", map[string]string{"TRACKER_PASSWORD": "x", "STORAGE_BACKEND": "mysql"}, "MYSQL_DSN"},
		{"unknown realtime", map[string]string{"TRACKER_PASSWORD": "x", "REALTIME": "pigeon"}, "REALTIME"},
		{"in-process realtime", map[string]string{"TRACKER_PASSWORD": "x", "REALTIME": "memory"}, "REALTIME"},
		{"same keys", map[string]string{"TRACKER_PASSWORD": "x", "LEDGER_KEY": "k", "ROSTER_KEY": "k"}, "ROSTER_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"TRACKER_PASSWORD", "ADMIN_PASSWORD", "STUDENT_PASSWORD"} {
				t.Setenv(k, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(zaptest.NewLogger(t))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want mention of %s", err, tt.want)
			}
		})
	}
}
