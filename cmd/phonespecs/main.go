package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/findyourpaths/phonespecs/catalog"
	"github.com/findyourpaths/phonespecs/config"
	"github.com/findyourpaths/phonespecs/dataset"
	"github.com/findyourpaths/phonespecs/fetch"
	"github.com/findyourpaths/phonespecs/observability"
	"github.com/findyourpaths/phonespecs/output"
	"github.com/findyourpaths/phonespecs/server"
	"github.com/findyourpaths/phonespecs/utils"
	"github.com/samber/lo"
)

var version = "dev"

func main() {
	cli := CLI{}
	kctx := kong.Parse(&cli,
		kong.Name("phonespecs"),
		kong.Description("Scrape smartphone specifications and derive ML feature datasets."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		})
	kctx.FatalIfErrorf(run(kctx, &cli.Globals))
}

func run(kctx *kong.Context, globals *Globals) error {
	cfg, err := config.Load(globals.ConfigFile)
	if err != nil {
		return err
	}
	if globals.LogLevel != "" {
		cfg.Log.Level = globals.LogLevel
	}
	if globals.LogFile != "" {
		cfg.Log.File = globals.LogFile
	}
	level, err := observability.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	observability.InitLogging(os.Stdout, level, cfg.Log.Color)
	if cfg.Log.File != "" {
		logS, err := output.SetDefaultLogger(cfg.Log.File, level, slog.Default().Handler())
		if err != nil {
			return err
		}
		defer output.RestoreDefaultLogger(logS)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := observability.InitAll(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Error("failed to shut down telemetry", "err", err)
		}
	}()

	kctx.BindTo(ctx, (*context.Context)(nil))
	kctx.Bind(cfg)
	if err := kctx.Run(globals); err != nil {
		return err
	}
	if globals.TraceFile != "" {
		return observability.WriteTraceTree(context.Background(), globals.TraceFile)
	}
	return nil
}

type CLI struct {
	Globals

	Scrape   ScrapeCmd   `cmd:"" help:"Scrape the most popular phones into the raw dataset"`
	Process  ProcessCmd  `cmd:"" help:"Derive the basic, common features and ML feature datasets from the raw dataset"`
	Filter   FilterCmd   `cmd:"" help:"Project the raw dataset straight onto the selected features"`
	Features FeaturesCmd `cmd:"" help:"Print the feature list the server would return"`
	Serve    ServeCmd    `cmd:"" help:"Serve the feature list over HTTP"`
	Config   ConfigCmd   `cmd:"" help:"Print the effective configuration"`
}

type Globals struct {
	ConfigFile string `short:"c" default:"phonespecs.yaml" help:"YAML configuration file. Missing is fine; environment variables still apply."`
	LogLevel   string `short:"l" help:"Override log level: debug, info, warn or error."`
	LogFile    string `help:"Also write logs to this file as JSON lines."`
	TraceFile  string `help:"Write the span tree of the run to this file."`
}

type ScrapeCmd struct {
	Limit       int    `short:"n" help:"Number of products to scrape. Defaults to the configured limit."`
	Out         string `short:"o" help:"Raw dataset path. Defaults to the configured path."`
	ListingJSON string `help:"Also write the listing records as JSON to this path, or - for stdout."`
	Offline     bool   `help:"Only read pages from the cache directory."`
	RenderJS    bool   `short:"r" help:"Render pages in a headless browser."`
}

func (cmd *ScrapeCmd) Run(globals *Globals, ctx context.Context, cfg *config.Config) error {
	sc := cfg.Scrape
	if cmd.Limit != 0 {
		sc.Limit = cmd.Limit
	}
	if cmd.RenderJS {
		sc.RenderJS = true
	}
	out := cfg.Datasets.Raw
	if cmd.Out != "" {
		out = cmd.Out
	}

	f, closeFn, err := newFetcher(sc, cmd.Offline)
	if err != nil {
		return err
	}
	defer closeFn()

	p := &catalog.Paginator{
		Fetcher:  f,
		BaseURL:  sc.BaseURL,
		ListBase: sc.ListBase(),
		Delay:    fetch.Jitter{Min: sc.PageDelayMin, Max: sc.PageDelayMax},
	}
	listings, err := p.FetchPopular(ctx, sc.Limit, sc.SortKey)
	if err != nil {
		return fmt.Errorf("error fetching listing: %w", err)
	}
	if cmd.ListingJSON != "" {
		recs := make(output.Records, 0, len(listings))
		for _, l := range listings {
			recs = append(recs, l.Record())
		}
		if err := output.NewWriter(cmd.ListingJSON).Write(recs); err != nil {
			return err
		}
	}

	a := &dataset.Assembler{
		Detail: dataset.FetchDetail(f, sc.ListBase()),
		Delay:  fetch.Jitter{Min: sc.DetailDelayMin, Max: sc.DetailDelayMax},
	}
	recs, err := a.Assemble(ctx, listings)
	if err != nil {
		return fmt.Errorf("error assembling dataset: %w", err)
	}

	t := dataset.NewTable(recs)
	if err := dataset.WriteCSV(out, t, dataset.WriteOpts{BOM: cfg.Processing.RawBOM}); err != nil {
		return err
	}
	slog.Info("wrote raw dataset", "path", out, "products", len(t.Rows), "columns", len(t.Columns), "cells", recs.TotalFields())
	return nil
}

// newFetcher builds the configured fetcher, wrapped in the page cache when
// one is configured. Offline runs need the cache.
func newFetcher(sc config.ScrapeConfig, offline bool) (fetch.Fetcher, func(), error) {
	if offline {
		if sc.CacheDir == "" {
			return nil, nil, fmt.Errorf("offline scraping needs a cache directory")
		}
		return fetch.NewCachingFetcher(nil, sc.CacheDir), func() {}, nil
	}

	var f fetch.Fetcher
	closeFn := func() {}
	if sc.RenderJS {
		d := fetch.NewDynamicFetcher(sc.UserAgent, sc.PageLoadWait, sc.Timeout)
		f, closeFn = d, d.Cancel
	} else {
		f = fetch.NewStaticFetcher(sc.UserAgent, sc.Timeout)
	}
	if sc.CacheDir != "" {
		if err := os.MkdirAll(sc.CacheDir, 0770); err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("error creating cache directory %q: %w", sc.CacheDir, err)
		}
		f = fetch.NewCachingFetcher(f, sc.CacheDir)
	}
	return f, closeFn, nil
}

func newProcessor(cfg *config.Config) *dataset.Processor {
	p := dataset.NewProcessor(dataset.Paths{
		Raw:      cfg.Datasets.Raw,
		Basic:    cfg.Datasets.Basic,
		Common:   cfg.Datasets.Common,
		ML:       cfg.Datasets.ML,
		Filtered: cfg.Datasets.Filtered,
	})
	p.CoverageThreshold = cfg.Processing.CoverageThreshold
	p.DominanceThreshold = cfg.Processing.DominanceThreshold
	p.Join = dataset.JoinStrategy(cfg.Processing.Join)
	return p
}

type ProcessCmd struct {
	Step string `short:"s" enum:"all,basic,common,ml,constant" default:"all" help:"Run one step only: basic, common, ml or constant."`
}

func (cmd *ProcessCmd) Run(globals *Globals, ctx context.Context, cfg *config.Config) error {
	p := newProcessor(cfg)
	steps := []struct {
		name  string
		title string
		fn    func(context.Context) (*dataset.Table, error)
	}{
		{"basic", "Basic product information", p.CreateBasicDataset},
		{"common", "Common features", p.CreateCommonFeaturesDataset},
		{"ml", "ML features", p.GenerateMLFeatures},
	}

	n := len(steps) + 1
	for i, s := range steps {
		if cmd.Step != "all" && cmd.Step != s.name {
			continue
		}
		fmt.Printf("[%d/%d] %s\n", i+1, n, s.title)
		t, err := s.fn(ctx)
		if err != nil {
			return fmt.Errorf("error in step %s: %w", s.name, err)
		}
		dataset.RenderSummary(os.Stdout, s.title, t)
	}

	if cmd.Step == "all" || cmd.Step == "constant" {
		fmt.Printf("[%d/%d] Constant features\n", n, n)
		cols, err := p.CheckConstantFeatures(ctx)
		if err != nil {
			return fmt.Errorf("error in step constant: %w", err)
		}
		dataset.RenderConstantReport(os.Stdout, cols)
	}
	return nil
}

type FilterCmd struct{}

func (cmd *FilterCmd) Run(globals *Globals, ctx context.Context, cfg *config.Config) error {
	t, err := newProcessor(cfg).GenerateFilteredDataset(ctx)
	if err != nil {
		return err
	}
	dataset.RenderSummary(os.Stdout, "Filtered dataset", t)
	return nil
}

type FeaturesCmd struct {
	Groups bool `short:"g" help:"Group features by their shared name prefix."`
}

func (cmd *FeaturesCmd) Run(globals *Globals, ctx context.Context, cfg *config.Config) error {
	cols, err := dataset.ReadHeader(cfg.Server.FeaturesPath)
	if err != nil {
		return err
	}
	features := lo.Without(cols, cfg.Server.ExcludedFeatures...)

	var payload any = server.FeaturesResponse{Features: features}
	if cmd.Groups {
		payload = server.FeatureGroupsResponse{Groups: catalog.FeatureGroups(features, server.MinGroupSize)}
	}
	bs, err := utils.WriteJSONBytes(payload)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(bs)
	return err
}

type ServeCmd struct {
	Addr string `short:"a" help:"Listen address. Defaults to the configured address."`
}

func (cmd *ServeCmd) Run(globals *Globals, ctx context.Context, cfg *config.Config) error {
	sc := cfg.Server
	if cmd.Addr != "" {
		sc.Addr = cmd.Addr
	}
	s := server.New(server.Options{
		Addr:           sc.Addr,
		FeaturesPath:   sc.FeaturesPath,
		Excluded:       sc.ExcludedFeatures,
		AllowedOrigins: sc.AllowedOrigins,
		ReadTimeout:    sc.ReadTimeout,
		WriteTimeout:   sc.WriteTimeout,
	})
	return s.Run(ctx, 10*time.Second)
}

type ConfigCmd struct{}

func (cmd *ConfigCmd) Run(globals *Globals, cfg *config.Config) error {
	fmt.Print(cfg.String())
	return nil
}
