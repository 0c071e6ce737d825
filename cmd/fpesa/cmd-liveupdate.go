package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fpesa/fpesa/go/bus"
	"github.com/fpesa/fpesa/go/config"
	"github.com/fpesa/fpesa/go/liveupdate"
)

type cmdLiveupdate struct {
	Bind string `long:"bind" default:"127.0.0.1" description:"bind address"`
	Port int    `long:"port" default:"8082" description:"port to listen on"`
}

func (cmd *cmdLiveupdate) Execute([]string) error {
	initLog()

	cfg, err := config.Load()
	must(err, "loading configuration")
	conn, err := bus.Dial(cfg.RabbitMQ)
	must(err, "connecting to rabbitmq")

	var hub = liveupdate.NewHub()
	var srv = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cmd.Bind, cmd.Port),
		Handler: liveupdate.NewServer(hub),
	}

	var ctx, stop = signal.NotifyContext(
		context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	go func() {
		log.WithField("addr", srv.Addr).Info("serving liveupdate")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithField("err", err).Fatal("liveupdate server failed")
		}
	}()
	go func() {
		// On signal, stop accepting new WebSockets first. Run cancels its
		// consumer and closes the registry on its own way out.
		<-ctx.Done()
		var shutdownCtx, cancel = context.WithTimeout(
			context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	err = liveupdate.Run(ctx, conn, hub)
	_ = conn.Close()
	return err
}
