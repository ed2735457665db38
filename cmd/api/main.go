package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/nwestfall/scribe/backend/internal/config"
	"github.com/nwestfall/scribe/backend/internal/handler"
	"github.com/nwestfall/scribe/backend/internal/logger"
	"github.com/nwestfall/scribe/backend/internal/metrics"
	"github.com/nwestfall/scribe/backend/internal/service/agent"
	"github.com/nwestfall/scribe/backend/internal/service/chat"
	"github.com/nwestfall/scribe/backend/internal/service/knowledge"
	"github.com/nwestfall/scribe/backend/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.Logging)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zl.Sync()

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		zl.Fatal("failed to open snapshot store", zap.String("path", cfg.Store.Path), zap.Error(err))
	}
	defer st.Close()

	chatSvc := chat.NewService(ctx, st, zl)
	knowledgeSvc := knowledge.NewService(ctx, st, zl)
	agentClient := agent.NewClient(cfg.Agent, zl)

	m := metrics.New(prometheus.DefaultRegisterer)
	m.SetDocuments(knowledgeSvc.Count(ctx))

	zl.Info("services initialized",
		zap.String("agentEndpoint", cfg.Agent.Endpoint),
		zap.Int("documents", knowledgeSvc.Count(ctx)))

	router := handler.NewRouter(chatSvc, knowledgeSvc, agentClient, m, zl)

	startServer(ctx, cfg.Server, router, zl)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, zl *zap.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	zl.Info("scribe backend listening", zap.String("addr", addr))
	if err := runServer(ctx, srv); err != nil {
		zl.Fatal("server error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
