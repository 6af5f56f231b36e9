package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/avmapper/metarcal/internal/api"
	"github.com/avmapper/metarcal/internal/cache"
	"github.com/avmapper/metarcal/internal/stats"
	"github.com/avmapper/metarcal/internal/storage"
)

type flags struct {
	Backend    string `help:"Cache storage backend." enum:"local,sqlite,s3" default:"local" env:"METARCAL_BACKEND"`
	CacheDir   string `help:"Cache directory for the local backend (default: user cache dir)." env:"METARCAL_CACHE_DIR"`
	DB         string `help:"Cache database path for the sqlite backend." default:"data/metarcal.db" env:"METARCAL_DB"`
	S3Bucket   string `name:"s3-bucket" help:"Bucket for the s3 backend." env:"METARCAL_S3_BUCKET"`
	S3Prefix   string `name:"s3-prefix" help:"Key prefix inside the s3 bucket." env:"METARCAL_S3_PREFIX"`
	ArchiveURL string `help:"ASOS archive endpoint (default: IEM)." env:"METARCAL_ARCHIVE_URL"`
	NoCache    bool   `help:"Bypass the cache and recompute everything fresh."`

	Stats statsCmd `cmd:"" help:"Print hourly flight condition statistics for one airport and month."`
	Serve serveCmd `cmd:"" help:"Run the HTTP statistics API."`
}

type runContext struct {
	cache      *cache.Cache
	archiveURL string
}

type statsCmd struct {
	Airport string `short:"a" required:"" help:"Airport ICAO code (e.g. KACV)."`
	Month   int    `short:"m" required:"" help:"Month number (1-12)."`
	JSON    bool   `help:"Emit JSON instead of a table."`
}

func (c *statsCmd) Run(rc *runContext) error {
	analyzer := stats.NewAnalyzer(rc.cache, rc.archiveURL)
	dist, err := analyzer.MonthlyDistribution(c.Airport, time.Month(c.Month))
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(dist)
	}

	fmt.Print(formatTable(dist))
	return nil
}

type serveCmd struct {
	Port        string `default:"8080" env:"METARCAL_PORT" help:"HTTP server port."`
	AllowOrigin string `default:"https://www.avmapper.com" help:"Access-Control-Allow-Origin header value."`
}

func (c *serveCmd) Run(rc *runContext) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	server := api.NewServer(stats.NewAnalyzer(rc.cache, rc.archiveURL), c.Port, c.AllowOrigin)
	log.Printf("starting server on :%s", c.Port)
	return server.Run(ctx)
}

func main() {
	var cli flags
	ktx := kong.Parse(&cli,
		kong.Name("metarcal"),
		kong.Description("Hourly flight rule statistics from historical METAR observations."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)

	c, err := buildCache(&cli)
	ktx.FatalIfErrorf(err)

	ktx.FatalIfErrorf(ktx.Run(&runContext{cache: c, archiveURL: cli.ArchiveURL}))
}

func buildCache(cli *flags) (*cache.Cache, error) {
	if cli.NoCache {
		return cache.NewNoOp(), nil
	}

	switch cli.Backend {
	case "local":
		dir := cli.CacheDir
		if dir == "" {
			base, err := os.UserCacheDir()
			if err != nil {
				return nil, fmt.Errorf("resolve user cache dir: %w", err)
			}
			dir = filepath.Join(base, "metarcal")
		}
		backend, err := storage.NewLocal(dir)
		if err != nil {
			return nil, err
		}
		return cache.New(backend), nil

	case "sqlite":
		if dir := filepath.Dir(cli.DB); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
		db, err := sql.Open("sqlite", cli.DB)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		db.Exec("PRAGMA journal_mode=WAL")
		db.Exec("PRAGMA busy_timeout=5000")
		backend, err := storage.NewSQLite(db)
		if err != nil {
			return nil, err
		}
		return cache.New(backend), nil

	case "s3":
		if cli.S3Bucket == "" {
			return nil, fmt.Errorf("--s3-bucket is required with the s3 backend")
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		client := s3.NewFromConfig(awsCfg)
		return cache.New(storage.NewS3(client, cli.S3Bucket, cli.S3Prefix)), nil

	default:
		return nil, fmt.Errorf("unknown backend %q", cli.Backend)
	}
}
