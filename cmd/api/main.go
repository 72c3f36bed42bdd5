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

	"github.com/zhouzirui/z-interview/backend/internal/config"
	"github.com/zhouzirui/z-interview/backend/internal/handler"
	"github.com/zhouzirui/z-interview/backend/internal/model/persona"
	"github.com/zhouzirui/z-interview/backend/internal/service/ai"
	"github.com/zhouzirui/z-interview/backend/internal/service/interview"
	"github.com/zhouzirui/z-interview/backend/internal/service/resume"
	"github.com/zhouzirui/z-interview/backend/internal/service/session"
	"github.com/zhouzirui/z-interview/backend/internal/store"
	"github.com/zhouzirui/z-interview/backend/internal/store/file"
	"github.com/zhouzirui/z-interview/backend/internal/store/primary"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	generator, err := ai.NewGenerator(ctx, cfg.AI)
	switch {
	case err != nil:
		log.Printf("warning: failed to initialize %s generator: %v", cfg.AI.Provider, err)
		log.Println("continuing without generator - chat and reports will fail until credentials are set")
		generator = nil
	case generator == nil:
		log.Printf("%s credentials not configured, chat and reports are disabled", cfg.AI.Provider)
	default:
		log.Printf("%s generator initialized", cfg.AI.Provider)
	}

	primaryStore, err := primary.Open(ctx, primary.Config{
		URL:        cfg.Store.PrimaryURL,
		Database:   cfg.Store.Database,
		Collection: cfg.Store.Collection,
		Timeout:    cfg.Store.Timeout,
	})
	if err != nil {
		log.Printf("warning: primary store %s unusable: %v", primary.Describe(cfg.Store.PrimaryURL), err)
		log.Println("continuing with the local fallback store only")
		primaryStore = nil
	} else if primaryStore != nil {
		log.Printf("primary store configured at %s", primary.Describe(cfg.Store.PrimaryURL))
	}

	fallbackStore := file.Open(cfg.Store.FallbackPath)
	if fallbackStore.Persistent() {
		if n, err := fallbackStore.Compact(ctx); err != nil {
			log.Printf("warning: compacting %s failed: %v", fallbackStore.Path(), err)
		} else {
			log.Printf("fallback store at %s holds %d messages", fallbackStore.Path(), n)
		}
	}

	transcripts := store.NewRouter(primaryStore, fallbackStore, cfg.Store.TranscriptLimit)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := transcripts.Close(closeCtx); err != nil {
			log.Printf("warning: closing stores: %v", err)
		}
	}()

	personaStore := persona.NewMemoryStore(persona.Seed())
	svc := interview.NewService(session.NewState(), transcripts, generator, resume.PDFExtractor{}, personaStore)

	router := handler.NewRouter(personaStore, svc, cfg.Server)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Interview simulator backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Printf("server error: %v", err)
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
