package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sms-gateway/internal/api"
	"sms-gateway/internal/config"
	"sms-gateway/internal/database"
	"sms-gateway/internal/dispatch"
	"sms-gateway/internal/folder"
	"sms-gateway/internal/gateway"
	"sms-gateway/internal/logging"
	"sms-gateway/internal/storage"
	"sms-gateway/internal/store"
	"sms-gateway/internal/templates"
	"sms-gateway/internal/watcher"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load configuration")
	}
	log := logging.New(cfg.LogLevel, cfg.LogJSON)
	gin.SetMode(cfg.GinMode)

	db, err := database.InitGorm(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer database.Close(db)

	messageStore := store.NewMessageStore(db)
	templateStore := store.NewTemplateStore(db)
	drops := storage.New(afero.NewOsFs(), cfg.DropRoot, cfg.SentDir)

	gatewayClient := gateway.NewClient(cfg, log)
	engine := dispatch.NewEngine(dispatch.NewRecorder(messageStore), gatewayClient, cfg.BatchSize, cfg.BatchDelay, log)
	processor := folder.NewProcessor(templateStore, drops, engine, cfg.DefaultSenderID, log)
	folderWatcher := watcher.New(drops, processor, cfg.WatchFSEvents, log)

	router := api.NewRouter(api.Handlers{
		SMS:       api.NewSMSHandler(engine, messageStore, cfg.DefaultSenderID, cfg.PricePerMessage),
		Templates: api.NewTemplateHandler(templates.NewService(templateStore, drops, log)),
		Folders:   api.NewFolderHandler(folderWatcher),
	}, log)

	if err := folderWatcher.Start(cfg.ScanInterval); err != nil {
		log.Fatal().Err(err).Msg("failed to start watcher")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server failed")
			stop()
		}
	}()

	<-ctx.Done()
	shutdown(log, cfg.ShutdownTimeout, srv, folderWatcher, engine)
}

// shutdown stops intake first, then waits for dispatches already under way.
func shutdown(log zerolog.Logger, timeout time.Duration, srv *http.Server, w *watcher.Watcher, engine *dispatch.Engine) {
	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := w.Stop(); err != nil {
		log.Error().Err(err).Msg("watcher shutdown")
	}
	if err := engine.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("in-flight messages abandoned")
	}
	log.Info().Msg("bye")
}
