package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/xtding233/arkgrid-toolkit/internal/config"
	"github.com/xtding233/arkgrid-toolkit/internal/logger"
	"github.com/xtding233/arkgrid-toolkit/internal/rpc"
	"github.com/xtding233/arkgrid-toolkit/internal/service"
)

var (
	configDir string
	profile   string
	variant   string
	remote    string
	asJSON    bool
	verbose   bool
)

var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen, color.Bold)
	warnColor    = color.New(color.FgYellow)
	failColor    = color.New(color.FgRed, color.Bold)
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "arkgrid",
		Short: "Ark Grid gem allocation and refinement toolkit",
		Long: `Assigns gems to cores by priority and estimates refinement
outcomes by Monte Carlo simulation.`,
		SilenceUsage: true,
	}
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configDir, "config", "c", "", "Config directory holding tables/ (default: built-in tables)")
	pf.StringVar(&profile, "profile", "", "Table profile layered over default.yaml")
	pf.StringVar(&variant, "variant", "", "Variant of the profile layered last")
	pf.StringVar(&remote, "remote", "", "gRPC address of an arkgrid-server to run requests on")
	pf.BoolVar(&asJSON, "json", false, "Print raw JSON instead of tables")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Log to stderr")

	rootCmd.AddCommand(optimizeCmd(), refineCmd(), adviseCmd(), playCmd(), tablesCmd())

	if err := rootCmd.Execute(); err != nil {
		failColor.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() (*logger.Logger, error) {
	if !verbose {
		return logger.Nop(), nil
	}
	return logger.New("dev")
}

func loadStore() (*config.Store, error) {
	var r config.Resolver
	if configDir != "" {
		r = config.NewLoader(configDir)
	}
	return config.NewStore(r, profile, variant, config.Overrides{})
}

// backend runs requests locally or, with --remote, on a server.
type backend struct {
	svc    *service.Service
	client *rpc.Client
	conn   *grpc.ClientConn
	store  *config.Store
}

func newBackend() (*backend, error) {
	log, err := newLogger()
	if err != nil {
		return nil, err
	}
	if remote != "" {
		conn, err := grpc.NewClient(remote, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, err
		}
		log.Debug("using remote server", "addr", remote)
		return &backend{client: rpc.NewClient(conn), conn: conn}, nil
	}
	store, err := loadStore()
	if err != nil {
		return nil, err
	}
	svc, err := service.New(service.Deps{Store: store, Log: log})
	if err != nil {
		return nil, err
	}
	return &backend{svc: svc, store: store}, nil
}

func (b *backend) Close() {
	if b.conn != nil {
		_ = b.conn.Close()
	}
}

func (b *backend) optimize(ctx context.Context, req service.OptimizeRequest) (*service.OptimizeResponse, error) {
	if b.client != nil {
		return b.client.Allocate(ctx, &req)
	}
	resp, err := b.svc.Optimize(ctx, req)
	return &resp, err
}

func (b *backend) evaluate(ctx context.Context, req service.EvaluateRequest, progress service.EvaluateProgress) (*service.EvaluateResponse, error) {
	if b.client != nil {
		return b.client.EvaluateAll(ctx, &req, progress)
	}
	resp, err := b.svc.Evaluate(ctx, req, progress)
	return &resp, err
}

func (b *backend) advise(ctx context.Context, req service.AdviseRequest) (*service.AdviseResponse, error) {
	if b.client != nil {
		return b.client.AdviseReroll(ctx, &req)
	}
	resp, err := b.svc.Advise(ctx, req)
	return &resp, err
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func pct(p float64) string { return fmt.Sprintf("%.2f%%", p*100) }
