package params

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Web struct {
	// Addr is the listen address of the order-entry API.
	Addr string
	// EngineWait bounds how long a request handler waits for the trading
	// engine before giving up and reverting its reservation.
	EngineWait time.Duration
}

type Engine struct {
	// ChannelCapacity is the size of the bounded command channel feeding
	// the single engine goroutine. Submission blocks when full.
	ChannelCapacity int
}

type Store struct {
	// DatabaseURL is the postgres DSN for users and fund reservations.
	DatabaseURL string
	// PebblePath is the directory of the execution journal.
	PebblePath string
}

type Log struct {
	// File is where the logger tees its JSON output besides stdout.
	File string
}

type Config struct {
	Web    Web
	Engine Engine
	Store  Store
	Log    Log
}

func Default() Config {
	return Config{
		Web: Web{
			Addr:       ":3000",
			EngineWait: 2 * time.Second,
		},
		Engine: Engine{
			ChannelCapacity: 1024,
		},
		Store: Store{
			DatabaseURL: "",
			PebblePath:  "data/journal",
		},
		Log: Log{
			File: "data/exchange.log",
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if addr := os.Getenv("WEBSERVER_ADDR"); addr != "" {
		cfg.Web.Addr = addr
	}

	if wait := os.Getenv("ENGINE_WAIT_MS"); wait != "" {
		if ms, err := strconv.Atoi(wait); err == nil && ms > 0 {
			cfg.Web.EngineWait = time.Duration(ms) * time.Millisecond
		}
	}

	if cap := os.Getenv("TE_CHANNEL_CAPACITY"); cap != "" {
		if n, err := strconv.Atoi(cap); err == nil && n > 0 {
			cfg.Engine.ChannelCapacity = n
		}
	}

	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		cfg.Store.DatabaseURL = dsn
	}

	if path := os.Getenv("PEBBLE_PATH"); path != "" {
		cfg.Store.PebblePath = path
	}

	if path := os.Getenv("LOG_FILE"); path != "" {
		cfg.Log.File = path
	}

	return cfg
}
