package params

import (
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Web.Addr != ":3000" {
		t.Errorf("addr = %q, want :3000", cfg.Web.Addr)
	}
	if cfg.Web.EngineWait != 2*time.Second {
		t.Errorf("engine wait = %v, want 2s", cfg.Web.EngineWait)
	}
	if cfg.Engine.ChannelCapacity != 1024 {
		t.Errorf("channel capacity = %d, want 1024", cfg.Engine.ChannelCapacity)
	}
	if cfg.Log.File != "data/exchange.log" {
		t.Errorf("log file = %q, want data/exchange.log", cfg.Log.File)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("WEBSERVER_ADDR", ":9999")
	t.Setenv("ENGINE_WAIT_MS", "250")
	t.Setenv("TE_CHANNEL_CAPACITY", "64")
	t.Setenv("DATABASE_URL", "postgres://localhost/voltex")
	t.Setenv("PEBBLE_PATH", "/tmp/journal")
	t.Setenv("LOG_FILE", "/tmp/exchange.log")

	cfg := LoadFromEnv("")
	if cfg.Web.Addr != ":9999" {
		t.Errorf("addr = %q, want :9999", cfg.Web.Addr)
	}
	if cfg.Web.EngineWait != 250*time.Millisecond {
		t.Errorf("engine wait = %v, want 250ms", cfg.Web.EngineWait)
	}
	if cfg.Engine.ChannelCapacity != 64 {
		t.Errorf("channel capacity = %d, want 64", cfg.Engine.ChannelCapacity)
	}
	if cfg.Store.DatabaseURL != "postgres://localhost/voltex" {
		t.Errorf("dsn = %q", cfg.Store.DatabaseURL)
	}
	if cfg.Store.PebblePath != "/tmp/journal" {
		t.Errorf("pebble path = %q", cfg.Store.PebblePath)
	}
	if cfg.Log.File != "/tmp/exchange.log" {
		t.Errorf("log file = %q", cfg.Log.File)
	}
}

func TestInvalidEnvIgnored(t *testing.T) {
	t.Setenv("ENGINE_WAIT_MS", "not-a-number")
	t.Setenv("TE_CHANNEL_CAPACITY", "-5")

	cfg := LoadFromEnv("")
	if cfg.Web.EngineWait != Default().Web.EngineWait {
		t.Errorf("bad ENGINE_WAIT_MS overrode the default")
	}
	if cfg.Engine.ChannelCapacity != Default().Engine.ChannelCapacity {
		t.Errorf("bad TE_CHANNEL_CAPACITY overrode the default")
	}
}
