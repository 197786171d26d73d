package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/0xc0d3d00d/dccd/internal/domain"
	"github.com/0xc0d3d00d/dccd/internal/importer"
	"github.com/0xc0d3d00d/dccd/internal/poloniex"
	"github.com/0xc0d3d00d/dccd/internal/server"
	"github.com/0xc0d3d00d/dccd/internal/storage"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"golang.org/x/sync/errgroup"
)

type config struct {
	DataDir        string        `env:"DATA_DIR" envDefault:"./data"`
	PoloniexURL    string        `env:"POLONIEX_URL" envDefault:"https://api.poloniex.com"`
	Crypto         string        `env:"CRYPTO" envDefault:"BTC"`
	Fiat           string        `env:"FIAT" envDefault:"USD"`
	FiatSubstitute string        `env:"FIAT_SUBSTITUTE" envDefault:"USDT"`
	Span           string        `env:"SPAN" envDefault:"60"`
	Start          string        `env:"START" envDefault:"last"`
	End            string        `env:"END" envDefault:"now"`
	Form           string        `env:"FORM" envDefault:"csv"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	ListenAddress  string        `env:"ADDR"`
	LogLevel       slog.Level    `env:"LOG_LEVEL" envDefault:"info"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := config{}
	err := loadConfig(&cfg)

	// set global logger with custom options
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      cfg.LogLevel,
			TimeFormat: time.DateTime,
		}),
	))

	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	if err := run(ctx, cfg); err != nil {
		slog.ErrorContext(ctx, "dccd terminated", "error", err)
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	telemetry, err := server.NewTelemetry()
	if err != nil {
		return fmt.Errorf("failed to create telemetry: %w", err)
	}
	defer func() {
		if err := telemetry.Shutdown(context.Background()); err != nil {
			slog.WarnContext(ctx, "failed to shut down telemetry", "error", err)
		}
	}()

	key, form, err := parseSeries(cfg)
	if err != nil {
		return err
	}

	db, err := storage.NewOsStorage(cfg.DataDir, form)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}

	client, err := poloniex.New(
		poloniex.WithBaseURL(cfg.PoloniexURL),
		poloniex.WithTimeout(cfg.RequestTimeout),
		poloniex.WithMeterProvider(telemetry.MeterProvider()),
	)
	if err != nil {
		return fmt.Errorf("failed to create poloniex client: %w", err)
	}

	imp, err := importer.New(client, db, key.Pair, key.Span)
	if err != nil {
		return fmt.Errorf("failed to create importer: %w", err)
	}

	if cfg.ListenAddress == "" {
		_, err := download(ctx, imp, cfg)
		return err
	}

	candles := server.NewHandler(db, cfg.FiatSubstitute)
	httpServer, err := server.New(ctx, cfg.ListenAddress,
		server.WithHandlerFunc(candles.HTTPHandler),
		server.WithHandlerFunc(candles.ConnectHandler),
		server.WithTelemetry(telemetry),
	)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.InfoContext(ctx, "starting server", "listen_address", cfg.ListenAddress)
		if err := runHttpServer(ctx, cfg.ListenAddress, httpServer); err != nil {
			slog.ErrorContext(ctx, "failed to start server", "error", err)
			cancel()
			return err
		}
		return nil
	})

	g.Go(func() error {
		_, err := download(gCtx, imp, cfg)
		return err
	})

	// Handle graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		slog.Info("shutting down server gracefully")

		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func parseSeries(cfg config) (storage.SeriesKey, storage.Form, error) {
	pair, err := domain.NewPair(cfg.Crypto, cfg.Fiat, cfg.FiatSubstitute)
	if err != nil {
		return storage.SeriesKey{}, "", err
	}
	span, err := domain.ParseSpan(cfg.Span)
	if err != nil {
		return storage.SeriesKey{}, "", err
	}
	form, err := storage.ParseForm(cfg.Form)
	if err != nil {
		return storage.SeriesKey{}, "", err
	}
	return storage.SeriesKey{Pair: pair, Span: span}, form, nil
}

// download runs an incremental update for the default last/now range and a
// plain import otherwise.
func download(ctx context.Context, imp *importer.Importer, cfg config) (int, error) {
	slog.InfoContext(ctx, "downloading candles", "pair", imp.Pair(), "span", imp.Span(), "start", cfg.Start, "end", cfg.End)

	if cfg.Start == importer.Last && cfg.End == importer.Now {
		return imp.Update(ctx)
	}
	return imp.GetData(ctx, cfg.Start, cfg.End)
}

func runHttpServer(ctx context.Context, listenAddress string, srv *server.Server) error {
	var lc net.ListenConfig
	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return err
	}

	err = srv.Serve(lis)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

func loadConfig(config any) error {
	// Ignore error if .env is missing
	err := godotenv.Load()

	if err != nil && !os.IsNotExist(err) {
		return err
	}

	// Parse for built-in types
	if err := env.Parse(config); err != nil {
		return err
	}

	return nil
}
