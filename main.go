package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"

	"github.com/saxenaaman628/ranker/config"
	"github.com/saxenaaman628/ranker/internal/api"
	"github.com/saxenaaman628/ranker/internal/controller"
	"github.com/saxenaaman628/ranker/internal/logger"
	"github.com/saxenaaman628/ranker/internal/models"
	"github.com/saxenaaman628/ranker/internal/redis"
	redishandler "github.com/saxenaaman628/ranker/internal/redisHandler"
	"github.com/saxenaaman628/ranker/internal/room"
	"github.com/saxenaaman628/ranker/internal/utils"
	"github.com/saxenaaman628/ranker/internal/ws"
)

func main() {
	envErr := config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "text").WithError(err).Fatal("invalid configuration")
	}

	root := logger.New(cfg.LogLevel, cfg.LogFormat)
	log := logger.Module(root, "main")
	if envErr != nil {
		log.WithError(envErr).Warn("No .env file found, using environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := redis.NewClient(ctx, cfg, root)
	if err != nil {
		log.WithError(err).Fatal("redis unavailable")
	}
	defer rdb.Close()

	store := redishandler.NewPollRepository(rdb)
	rooms := room.NewRegistry(cfg.BroadcastCapacity, root)
	notify := room.NewBroadcaster(cfg.BroadcastCapacity)
	auth := utils.NewAuthenticator(cfg.JWTSecret, cfg.PollTTL())

	sockets := ws.NewHandler(store, rooms, auth, notify, root)
	if cfg.ClientOrigin != "" {
		sockets.SetCheckOrigin(func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || origin == cfg.ClientOrigin
		})
	}

	// deleted or expired documents tear their rooms down
	notifier := redis.NewNotifier(rdb, redishandler.PollIDFromKey, root)
	go func() {
		err := notifier.Run(ctx, func(pollID string) {
			rooms.Teardown(pollID, models.PollCancelled().Encode())
		})
		if err != nil {
			log.WithError(err).Error("expiry notifier stopped")
			stop()
		}
	}()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), api.RequestLogger(logger.Module(root, "http")))
	api.RegisterRoutes(r, api.Deps{
		Polls:        controller.NewPollController(store, auth, cfg.PollTTL(), root),
		Sockets:      sockets,
		Auth:         auth,
		Notify:       notify,
		ClientOrigin: cfg.ClientOrigin,
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.WithField("poll_ttl", humanize.Comma(int64(cfg.PollDuration))+"s").Infof("Listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("shutdown incomplete")
	}
}
