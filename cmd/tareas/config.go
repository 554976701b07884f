package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/agalitsyn/flagutils"
	"github.com/agalitsyn/secret"

	"github.com/agalitsyn/tareas/internal/listing"
	"github.com/agalitsyn/tareas/internal/pagination"
	"github.com/agalitsyn/tareas/internal/storage/redis"
	"github.com/agalitsyn/tareas/version"
)

const EnvPrefix = "TAREAS"

type Config struct {
	Debug bool

	Log struct {
		Level string
	}

	HTTP struct {
		Addr string
	}

	DB struct {
		Path string
		Seed bool
	}

	Redis struct {
		Addr string
		TTL  time.Duration
	}

	Token secret.String

	// List prints one page to the terminal and exits when Flow is set.
	List struct {
		Flow     string
		Term     string
		Page     int
		PageSize int
	}
}

func (c Config) String() string {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stdout, err)
		os.Exit(0)
	}
	return string(b)
}

func ParseFlags() Config {
	var cfg Config

	printVersion := flag.Bool("version", false, "Show version.")
	logLevel := flag.String("log-level", "info", "Log level (trace | debug | info).")
	flag.StringVar(&cfg.HTTP.Addr, "addr", ":8080", "HTTP listen address.")
	flag.StringVar(&cfg.DB.Path, "db", "tareas.db", "SQLite database path.")
	flag.BoolVar(&cfg.DB.Seed, "seed", false, "Insert demo tasks into an empty database.")
	flag.StringVar(&cfg.Redis.Addr, "redis-addr", "", "Redis address for listing snapshots, empty disables the cache.")
	flag.DurationVar(&cfg.Redis.TTL, "redis-ttl", redis.DefaultTTL, "Lifetime of a cached listing snapshot.")
	token := flag.String("token", "", "Telegram bot token, empty disables the bot.")
	flag.StringVar(&cfg.List.Flow, "list", "", "Print one page of tasks and exit (activas | finalizadas).")
	flag.StringVar(&cfg.List.Term, "q", "", "Search term for -list.")
	flag.IntVar(&cfg.List.Page, "pagina", 1, "Page number for -list.")
	flag.IntVar(&cfg.List.PageSize, "cantidad", pagination.DefaultPageSize, "Page size for -list.")

	flagutils.Prefix = EnvPrefix
	flagutils.Parse()
	flag.Parse()

	cfg.Log.Level = strings.ToLower(strings.TrimSpace(*logLevel))
	if cfg.Log.Level == "debug" || cfg.Log.Level == "trace" {
		cfg.Debug = true
	}

	cfg.Token = secret.NewString(*token)

	if *printVersion {
		fmt.Fprintln(os.Stdout, version.String())
		os.Exit(0)
	}

	if cfg.List.Flow != "" {
		if _, ok := listing.FlowByName(cfg.List.Flow); !ok {
			fmt.Fprintf(os.Stderr, "unknown listing %q, use %s or %s\n", cfg.List.Flow, listing.Active.Name, listing.Finished.Name)
			os.Exit(2)
		}
	}

	return cfg
}

func (c Config) listQuery() listing.Query {
	q := listing.NewQuery(c.List.Term)
	q.Page = c.List.Page
	q.PageSize = c.List.PageSize
	return q
}
