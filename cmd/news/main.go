package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/DarkSidr/news/pkg/config"
	"github.com/DarkSidr/news/pkg/db"
	"github.com/DarkSidr/news/pkg/pipeline"
	"github.com/DarkSidr/news/pkg/scheduler"
	"github.com/DarkSidr/news/pkg/source"
	"github.com/DarkSidr/news/pkg/translator"
	"github.com/DarkSidr/news/server"
)

// Opts with all CLI options
type Opts struct {
	Config string `short:"f" long:"config" env:"CONFIG" default:"config.yml" description:"config file path"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	setupLog(opts.Debug, opts.NoColor, secrets(cfg)...)

	log.Printf("[INFO] starting news version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Print("[INFO] termination signal received")
		cancel()
	}()

	if err := run(ctx, cfg, opts.Debug); err != nil {
		log.Printf("[ERROR] %v", err)
		cancel()
		os.Exit(1)
	}

	cancel()
	log.Print("[INFO] shutdown complete")
}

// run wires components per configuration and serves until ctx is done
func run(ctx context.Context, cfg *config.Config, debug bool) error {
	fetcher := source.NewFetcher(cfg.Fetch.Timeout, cfg.Fetch.UserAgent)
	filterCfg := cfg.GetFilters()
	pipe := pipeline.New(fetcher, filterCfg, cfg.Fetch.Concurrency)
	cache := pipeline.NewCache(cfg.Cache.TTL)

	sources := cfg.GetSources()
	reader := pipeline.NewReader(pipe, cache, sources)

	trans := buildTranslator(cfg.GetTranslationConfig())

	srvOpts := server.Opts{
		Config:     cfg,
		Reader:     reader,
		Filters:    filterCfg,
		CronSecret: cfg.Cron.Secret,
		Version:    revision,
		Debug:      debug,
	}

	if cfg.Persisted() {
		database, err := db.New(db.Config{
			DSN:             cfg.Database.DSN,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
			Retention:       time.Duration(cfg.Schedule.RetentionDays) * 24 * time.Hour,
		})
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer database.Close()

		if _, err := database.EnsureSources(ctx, sources); err != nil {
			return fmt.Errorf("seed sources: %w", err)
		}

		sched := scheduler.New(database, pipe, trans, cache, scheduler.Config{
			Interval:        time.Duration(cfg.Schedule.UpdateInterval) * time.Minute,
			Retention:       time.Duration(cfg.Schedule.RetentionDays) * 24 * time.Hour,
			TargetLang:      cfg.Translation.TargetLang,
			TranslateBudget: cfg.Translation.Budget,
		})
		sched.Start(ctx)
		defer sched.Stop()

		srvOpts.Store = database
		srvOpts.Trigger = sched
	} else {
		log.Print("[INFO] no database configured, running ephemeral")
	}

	srv := server.New(srvOpts)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// buildTranslator assembles the provider chain, nil when translation is off
func buildTranslator(tc config.TranslationConfig) translator.Service {
	if !tc.Enabled || len(tc.Providers) == 0 {
		return nil
	}
	providers := make([]translator.Provider, 0, len(tc.Providers))
	for _, pc := range tc.Providers {
		switch pc.Kind {
		case "openai":
			providers = append(providers, translator.NewOpenAIProvider(pc.APIKey, pc.Endpoint, pc.Model))
		case "libretranslate":
			providers = append(providers, translator.NewLibreProvider(pc.Endpoint, pc.APIKey, pc.Timeout))
		}
	}
	return translator.NewChain(providers, tc.BatchSize)
}

// secrets collects sensitive config values to mask in logs
func secrets(cfg *config.Config) []string {
	var res []string
	if cfg.Cron.Secret != "" {
		res = append(res, cfg.Cron.Secret)
	}
	for _, p := range cfg.Translation.Providers {
		if p.APIKey != "" {
			res = append(res, p.APIKey)
		}
	}
	for _, s := range cfg.Sources {
		if s.APIKey != "" {
			res = append(res, s.APIKey)
		}
	}
	return res
}

func setupLog(dbg, noColor bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	if dbg {
		logOpts = append(logOpts, lgr.Debug)
	}

	if !noColor {
		colorizer := lgr.Mapper{
			ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
			WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
			InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
			DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
			CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
			TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
		}
		logOpts = append(logOpts, lgr.Map(colorizer))
	}

	if len(secs) > 0 {
		logOpts = append(logOpts, lgr.Secret(secs...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
