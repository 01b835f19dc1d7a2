package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"voiceforge/internal/api"
	"voiceforge/internal/cleanup"
	"voiceforge/internal/config"
	"voiceforge/internal/engine"
	fileutil "voiceforge/internal/file"
	"voiceforge/internal/job"
	"voiceforge/internal/video"
	"voiceforge/internal/voice"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load("config.yml")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.APIKey == "" {
		log.Warn().Msg("API_KEY environment variable not set; all authenticated calls will be rejected")
	}

	for _, dir := range []string{cfg.VoiceDir, cfg.OutputDir, cfg.FinalDir, cfg.ProjectsDir} {
		if err := fileutil.EnsureDir(dir); err != nil {
			log.Fatal().Err(err).Str("dir", dir).Msg("ensure data dir")
		}
	}

	janitor := cleanup.NewJanitor()
	store := job.NewStore()
	voices := voice.NewLibrary(cfg.VoiceDir)
	synth := engine.NewHTTPEngine(cfg.EngineURL)
	runner := job.NewRunner(store, voices, synth, cfg.OutputDir)
	pipeline := video.NewPipeline(video.Options{
		ProjectsDir: cfg.ProjectsDir,
		OutputDir:   cfg.OutputDir,
		FinalDir:    cfg.FinalDir,
		FFmpegPath:  cfg.FFmpegPath,
		FFprobePath: cfg.FFprobePath,
		Retention:   time.Duration(cfg.RetentionHours) * time.Hour,
	}, janitor)

	router := setupRouter()
	apiHandler := api.NewAPI(runner, store, voices, pipeline, cfg.OutputDir, cfg.FinalDir, cfg.APIKey)
	apiHandler.RegisterRoutes(router)

	baseCtx, baseCancel := context.WithCancel(context.Background())
	runner.SetBaseContext(baseCtx)

	const (
		readHeaderTimeout = 5 * time.Second
		shutdownTimeout   = 10 * time.Second
	)

	srv := newHTTPServer(cfg.Port, router, readHeaderTimeout)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdownSignal()

	gracefulShutdown(srv, baseCancel, runner, janitor, shutdownTimeout)
}

func setupRouter() *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(api.ZerologLogger())
	return r
}

func newHTTPServer(port int, handler http.Handler, readHeaderTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

func waitForShutdownSignal() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutdown signal received")
}

func gracefulShutdown(srv *http.Server, cancelBase context.CancelFunc, runner *job.Runner, janitor *cleanup.Janitor, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("http server shutdown warning")
	}

	cancelBase()
	if !runner.WaitAll(ctx) {
		log.Warn().Msg("background workers did not finish before timeout")
	}
	janitor.Stop()
	log.Info().Msg("server exited cleanly")
}
