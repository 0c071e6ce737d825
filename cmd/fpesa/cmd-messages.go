package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/fpesa/fpesa/go/bus"
	"github.com/fpesa/fpesa/go/config"
	"github.com/fpesa/fpesa/go/messages"
	"github.com/fpesa/fpesa/go/store"
)

type cmdMessagesPost struct{}

func (cmd *cmdMessagesPost) Execute([]string) error {
	initLog()

	cfg, err := config.Load()
	must(err, "loading configuration")
	st, err := store.Open(cfg.Postgres)
	must(err, "opening postgres store")
	conn, err := bus.Dial(cfg.RabbitMQ)
	must(err, "connecting to rabbitmq")

	var ctx, stop = signal.NotifyContext(
		context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	err = messages.RunPostWorker(ctx, conn, st)
	_ = conn.Close()
	_ = st.Close()
	return err
}

type cmdMessagesGet struct {
	Debug bool `long:"debug" description:"send stack traces in rpc error replies"`
}

func (cmd *cmdMessagesGet) Execute([]string) error {
	initLog()

	cfg, err := config.Load()
	must(err, "loading configuration")
	st, err := store.Open(cfg.Postgres)
	must(err, "opening postgres store")
	conn, err := bus.Dial(cfg.RabbitMQ)
	must(err, "connecting to rabbitmq")

	var ctx, stop = signal.NotifyContext(
		context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	var worker = &messages.GetWorker{Store: st, Debug: cmd.Debug}
	err = worker.Run(ctx, conn)
	_ = conn.Close()
	_ = st.Close()
	return err
}
