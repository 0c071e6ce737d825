package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/fpesa/fpesa/go/bus"
	"github.com/fpesa/fpesa/go/config"
	"github.com/fpesa/fpesa/go/restmapper"
)

type cmdRestmapper struct {
	Bind string `long:"bind" default:"127.0.0.1" description:"bind address"`
	Port int    `long:"port" default:"8081" description:"port to listen on"`
}

func (cmd *cmdRestmapper) Execute([]string) error {
	initLog()

	cfg, err := config.Load()
	must(err, "loading configuration")
	conn, err := bus.Dial(cfg.RabbitMQ)
	must(err, "connecting to rabbitmq")

	app, err := restmapper.NewApp(conn, restmapper.StandardEndpoints())
	must(err, "initializing endpoints")

	var httpMux = http.NewServeMux()
	httpMux.Handle("/metrics", promhttp.Handler())
	httpMux.Handle("/", app)

	var srv = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cmd.Bind, cmd.Port),
		Handler: httpMux,
	}

	var signalCh = make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		var sig = <-signalCh
		log.WithField("signal", sig).Info("caught signal, draining")

		// Let in-flight RPCs finish before tearing anything down.
		var ctx, cancel = context.WithTimeout(
			context.Background(), restmapper.DefaultRPCTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	log.WithField("addr", srv.Addr).Info("serving restmapper")
	if err = srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	// The broker connection closes last.
	err = app.Close()
	_ = conn.Close()
	return err
}
