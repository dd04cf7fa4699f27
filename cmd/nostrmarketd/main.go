package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/SatoshiDNC/nostrmarket/internal/config"
	"github.com/SatoshiDNC/nostrmarket/internal/interface/web"
	log "github.com/sirupsen/logrus"
)

// nolint:all
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("invalid config")
	}

	log.SetLevel(log.Level(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid config")
	}

	svc, err := cfg.AppService()
	if err != nil {
		log.Fatal(err)
	}

	scheduler := cfg.SchedulerService()
	if err := scheduler.ScheduleTaskEvery(cfg.PendingCheckInterval, func() {
		svc.CheckPendingOrders(context.Background())
	}); err != nil {
		log.Fatal(err)
	}
	scheduler.Start()

	log.RegisterExitHandler(func() {
		scheduler.Stop()
		cfg.RepoManager().Close()
	})

	webSvc := web.NewService(svc, web.Config{
		Port:     cfg.Port,
		AuthUser: cfg.AuthUser,
		AuthPass: cfg.AuthPass,
	})

	log.Infof("starting service on port %d...", cfg.Port)
	go func() {
		if err := webSvc.Start(); err != nil {
			log.Fatal(err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT, os.Interrupt)
	<-sigChan

	log.Info("shutting down service...")
	log.Exit(0)
}
