// cmd/hotelledger serves a single in-memory hotel booking ledger over HTTP.
//
// Usage:
//
//	go run ./cmd/hotelledger
//	PORT=8080 SERVER_ALLOW_TAMPER=true go run ./cmd/hotelledger
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/hotelledger/internal/audit"
	"github.com/jmerrifield20/hotelledger/internal/config"
	"github.com/jmerrifield20/hotelledger/internal/ledger"
	"github.com/jmerrifield20/hotelledger/internal/node"
	"github.com/jmerrifield20/hotelledger/internal/node/handler"
	"github.com/jmerrifield20/hotelledger/internal/webhooks"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load(viper.New())
	if err != nil {
		fmt.Fprintf(os.Stderr, "hotelledger: %v\n", err)
		os.Exit(1)
	}

	logger, err := cfg.Log.Logger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "hotelledger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("hotelledger exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Webhooks ─────────────────────────────────────────────────────────────
	notifier := webhooks.NewService(cfg.Webhooks.Endpoints, logger.Named("webhooks"),
		webhooks.WithTimeout(cfg.Webhooks.Timeout),
		webhooks.WithMetricsRecorder(handler.RecordWebhookDelivery),
	)
	if n := len(cfg.Webhooks.Endpoints); n > 0 {
		logger.Info("webhooks enabled", zap.Int("endpoints", n))
	}

	// ── Ledger ───────────────────────────────────────────────────────────────
	l := ledger.New(
		ledger.WithLogger(logger.Named("ledger")),
		ledger.WithMinedHook(func(b ledger.Block) {
			notifier.Dispatch(ctx, webhooks.EventBlockMined, map[string]string{
				"index":    strconv.Itoa(b.Index),
				"hash":     b.Hash,
				"bookings": strconv.Itoa(b.Data.Len()),
			})
		}),
	)
	genesis, _ := l.Block(0)
	logger.Info("ledger created",
		zap.String("genesis_hash", genesis.Hash),
		zap.Bool("valid", l.IsValid()),
	)

	// ── HTTP Router ──────────────────────────────────────────────────────────
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router, err := node.NewRouter(ctx, cfg, l, logger)
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}
	srv := node.NewServer(cfg, router)

	var grpcLis net.Listener
	if cfg.GRPC.Port > 0 {
		grpcLis, err = net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPC.Port))
		if err != nil {
			return fmt.Errorf("gRPC listen on :%d: %w", cfg.GRPC.Port, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("hotelledger HTTP listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	// ── gRPC health ──────────────────────────────────────────────────────────
	var healthSrv *node.HealthServer
	if grpcLis != nil {
		healthSrv = node.NewHealthServer(logger.Named("grpc"))
		healthSrv.SetLedgerValid(l.IsValid())
		g.Go(func() error {
			logger.Info("hotelledger gRPC health listening", zap.Int("port", cfg.GRPC.Port))
			if err := healthSrv.Serve(grpcLis); err != nil {
				return fmt.Errorf("gRPC serve: %w", err)
			}
			return nil
		})
	}

	// ── Integrity audit ──────────────────────────────────────────────────────
	if cfg.Audit.Interval > 0 {
		auditor := audit.New(l, audit.Config{Interval: cfg.Audit.Interval}, logger.Named("audit"))
		auditor.SetWebhookDispatch(notifier.Dispatch)
		auditor.SetMetricsRecord(handler.RecordAudit)
		if healthSrv != nil {
			auditor.SetStatusReport(healthSrv.SetLedgerValid)
		}
		g.Go(func() error {
			auditor.Run(gctx)
			return nil
		})
		logger.Info("integrity audit enabled", zap.Duration("interval", cfg.Audit.Interval))
	}

	// ── Graceful shutdown ────────────────────────────────────────────────────
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down hotelledger...")
		if healthSrv != nil {
			healthSrv.Stop()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		notifier.Wait()

		s := l.Snapshot()
		logger.Info("hotelledger stopped",
			zap.Int("blocks", len(s.Chain)),
			zap.Int("pending_discarded", len(s.Pending)),
			zap.Bool("valid", s.Valid),
		)
		return nil
	})

	return g.Wait()
}
