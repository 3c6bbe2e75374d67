package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"aichat-backend/internal/bootstrap"
	"aichat-backend/internal/cache"
	"aichat-backend/internal/repository"
	httptransport "aichat-backend/internal/transport/http"
	"aichat-backend/internal/worker"
)

func main() {
	ctx := context.Background()

	app, err := bootstrap.New(ctx)
	if err != nil {
		logrus.WithError(err).Fatal("bootstrap failed")
	}
	log := app.Logger
	defer func() {
		if err := app.Close(); err != nil {
			log.WithError(err).Error("close resources failed")
		}
	}()

	if app.MQConn != nil && app.Redis != nil && app.Config.RabbitMQ.ConsumeEvents {
		eventWorker := worker.NewChatEventWorker(
			app.MQConn,
			repository.NewChatHistoryRepository(app.DB),
			cache.NewHistoryCache(app.Redis, app.Config.HistoryTTL(), app.Config.HistoryDirtyTTL()),
			app.Config.RabbitMQ.ChatEventQueue,
			log,
		)
		if err := eventWorker.Start(ctx); err != nil {
			log.WithError(err).Fatal("start chat event worker failed")
		}
		defer eventWorker.Close()
	}

	router := httptransport.NewRouter(app)
	server := &http.Server{
		Addr:              app.Config.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.WithField("addr", server.Addr).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	if err := waitForShutdown(server, serveErr); err != nil {
		log.WithError(err).Error("server stopped")
		return
	}
	log.Info("server stopped")
}

// waitForShutdown blocks until a signal arrives or the listener fails.
func waitForShutdown(server *http.Server, serveErr <-chan error) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return err
	case <-quit:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
