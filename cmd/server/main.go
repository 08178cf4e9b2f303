package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/xtding233/arkgrid-toolkit/internal/cache"
	"github.com/xtding233/arkgrid-toolkit/internal/config"
	"github.com/xtding233/arkgrid-toolkit/internal/jobs"
	"github.com/xtding233/arkgrid-toolkit/internal/logger"
	"github.com/xtding233/arkgrid-toolkit/internal/rpc"
	"github.com/xtding233/arkgrid-toolkit/internal/server"
	"github.com/xtding233/arkgrid-toolkit/internal/service"
)

type options struct {
	configDir string
	profile   string
	variant   string
	httpAddr  string
	grpcAddr  string
	mode      string
	watch     time.Duration
	cacheSize int
	cacheTTL  time.Duration

	levelMode string
	maxPool   int
	maxTrials int
	limit     int
	workers   int
}

func main() {
	var o options
	rootCmd := &cobra.Command{
		Use:   "arkgrid-server",
		Short: "Ark Grid toolkit HTTP and gRPC server",
		Long: `Serves gem allocation, refinement evaluation and reroll advice over
HTTP (JSON) and gRPC. Game tables are read from <config>/tables and
reloaded when the files change.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, o)
		},
	}

	f := rootCmd.Flags()
	f.StringVarP(&o.configDir, "config", "c", "configs", "Config directory holding tables/ (empty for built-in tables)")
	f.StringVar(&o.profile, "profile", "", "Table profile layered over default.yaml")
	f.StringVar(&o.variant, "variant", "", "Variant of the profile layered last")
	f.StringVar(&o.httpAddr, "http", ":8080", "HTTP listen address (empty to disable)")
	f.StringVar(&o.grpcAddr, "grpc", ":50051", "gRPC listen address (empty to disable)")
	f.StringVar(&o.mode, "log", "dev", "Log mode: dev or prod")
	f.DurationVar(&o.watch, "watch", 2*time.Second, "Config poll interval (0 disables reloading)")
	f.IntVar(&o.cacheSize, "cache-size", 4096, "In-memory result cache entries when REDIS_ADDR is unset")
	f.DurationVar(&o.cacheTTL, "cache-ttl", time.Hour, "Result cache TTL (0 never expires)")
	f.StringVar(&o.levelMode, "level-mode", "", "Override optimizer level mode: curve or linear")
	f.IntVar(&o.maxPool, "max-pool", 0, "Override the gem pool ceiling")
	f.IntVar(&o.maxTrials, "max-trials", 0, "Override the default Monte Carlo trial budget")
	f.IntVar(&o.limit, "trials-limit", 0, "Override the per-request Monte Carlo trial ceiling")
	f.IntVar(&o.workers, "workers", 0, "Override Monte Carlo workers per evaluation")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (o options) overrides(cmd *cobra.Command) config.Overrides {
	var ov config.Overrides
	if cmd.Flags().Changed("level-mode") {
		ov.LevelMode = &o.levelMode
	}
	if cmd.Flags().Changed("max-pool") {
		ov.MaxPoolSize = &o.maxPool
	}
	if cmd.Flags().Changed("max-trials") {
		ov.MaxTrials = &o.maxTrials
	}
	if cmd.Flags().Changed("trials-limit") {
		ov.TrialsLimit = &o.limit
	}
	if cmd.Flags().Changed("workers") {
		ov.Workers = &o.workers
	}
	return ov
}

func run(cmd *cobra.Command, o options) error {
	log, err := logger.New(o.mode)
	if err != nil {
		return err
	}
	defer log.Sync()

	var resolver config.Resolver
	if o.configDir != "" {
		resolver = config.NewLoader(o.configDir)
	}
	store, err := config.NewStore(resolver, o.profile, o.variant, o.overrides(cmd))
	if err != nil {
		return fmt.Errorf("load tables: %w", err)
	}
	store.Log = log
	store.OnReload = func(t *config.Tables, changed []string, err error) {
		if err == nil {
			log.Info("tables reloaded", "version", t.Version, "changed", changed)
		}
	}
	log.Info("tables loaded", "version", store.Current().Version, "dir", o.configDir, "profile", o.profile)
	if o.watch > 0 {
		if w := store.Watch(o.watch); w != nil {
			defer w.Stop()
		}
	}

	results, err := cache.FromEnv(log, o.cacheSize)
	if err != nil {
		return err
	}
	defer results.Close()

	svc, err := service.New(service.Deps{
		Store:    store,
		Cache:    results,
		Jobs:     jobs.NewTracker(log, 256),
		Log:      log,
		CacheTTL: o.cacheTTL,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	if o.grpcAddr != "" {
		lis, err := net.Listen("tcp", o.grpcAddr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", o.grpcAddr, err)
		}
		gs := rpc.NewGRPCServer(svc, log)
		g.Go(func() error {
			log.Info("grpc listening", "addr", o.grpcAddr)
			return gs.Serve(lis)
		})
		g.Go(func() error {
			<-ctx.Done()
			gs.GracefulStop()
			return nil
		})
	}
	if o.httpAddr != "" {
		hs := server.NewServer(o.httpAddr, svc, log)
		g.Go(func() error { return hs.Run(ctx) })
	}
	err = g.Wait()
	log.Info("server stopped")
	return err
}
