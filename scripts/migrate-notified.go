package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/laptoptracker/laptop-tracker/internal/notify"
	"github.com/laptoptracker/laptop-tracker/internal/store"
)

type output struct {
	From     string   `json:"from"`
	To       string   `json:"to"`
	Copied   int      `json:"copied"`
	Existing int      `json:"existing"`
	Total    int      `json:"total"`
	Serials  []string `json:"serials,omitempty"`
}

type options struct {
	from, to    string
	filePath    string
	redisURL    string
	databaseURL string
	format      string
}

func main() {
	var opts options
	flag.StringVar(&opts.from, "from", store.BackendFile, "Source backend (file, redis, postgres)")
	flag.StringVar(&opts.to, "to", "", "Target backend (file, redis, postgres)")
	flag.StringVar(&opts.filePath, "file", store.DefaultFilePath, "Notified file path")
	flag.StringVar(&opts.redisURL, "redis-url", os.Getenv("REDIS_URL"), "Redis connection string")
	flag.StringVar(&opts.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	flag.StringVar(&opts.format, "format", "plain", "Output format: plain or json")
	flag.Parse()

	if err := run(context.Background(), opts, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, w io.Writer) error {
	if opts.to == "" || opts.to == opts.from {
		return errors.New("-to is required and must differ from -from")
	}
	format := strings.ToLower(opts.format)
	if format != "plain" && format != "json" {
		return errors.New("invalid format; use plain or json")
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	open := func(backend string) (store.Store, error) {
		s, err := store.Open(ctx, store.Options{
			Backend:     backend,
			FilePath:    opts.filePath,
			RedisURL:    opts.redisURL,
			DatabaseURL: opts.databaseURL,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", backend, err)
		}
		return s, nil
	}

	src, err := open(opts.from)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := open(opts.to)
	if err != nil {
		return err
	}
	defer dst.Close()

	out, err := migrate(ctx, src, dst)
	if err != nil {
		return err
	}
	out.From, out.To = opts.from, opts.to

	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	_, err = fmt.Fprintf(w, "copied %d serials (%d already present, %d total)\n", out.Copied, out.Existing, out.Total)
	return err
}

// migrate merges the source set into the target. The target never loses a
// serial, so a notified device stays notified.
func migrate(ctx context.Context, src, dst notify.Store) (output, error) {
	incoming, err := src.Load(ctx)
	if err != nil {
		return output{}, fmt.Errorf("load source: %w", err)
	}
	existing, err := dst.Load(ctx)
	if err != nil {
		return output{}, fmt.Errorf("load target: %w", err)
	}

	merged := notify.NewSet(existing...)
	out := output{Existing: len(merged)}
	for _, serial := range incoming {
		if merged.Add(serial) {
			out.Copied++
		}
	}

	out.Serials = merged.Sorted()
	out.Total = len(out.Serials)
	if out.Copied == 0 {
		return out, nil
	}
	if err := dst.Save(ctx, out.Serials); err != nil {
		return output{}, fmt.Errorf("save target: %w", err)
	}
	return out, nil
}
