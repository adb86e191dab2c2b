// textgend serves a text generation provider over gRPC so the dashboard can
// run with TEXTGEN_PROVIDER=grpc.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/ashureev/genomics-xai/internal/config"
	"github.com/ashureev/genomics-xai/internal/textgen"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		slog.Error("Sidecar failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	// The sidecar forwarding to itself would loop forever.
	if cfg.TextGen.Provider == "grpc" {
		return errors.New("textgend needs a direct provider, not grpc")
	}

	gen, err := textgen.New(cfg.TextGen.Provider, cfg.TextGen.Settings())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := textgen.Close(gen); closeErr != nil {
			slog.Error("Failed to close text generator", "error", closeErr)
		}
	}()

	lis, err := net.Listen("tcp", cfg.SidecarAddr)
	if err != nil {
		return err
	}

	srv := grpc.NewServer()
	textgen.RegisterServer(srv, gen, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Sidecar listening", "addr", lis.Addr().String(), "provider", cfg.TextGen.Provider)
		return srv.Serve(lis)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down sidecar...")
		srv.GracefulStop()
		return nil
	})

	return g.Wait()
}
