package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"product-catalog/internal/app"

	"github.com/caarlos0/env/v11"
)

const shutdownTimeout = 10 * time.Second

type config struct {
	RabbitmqHost     string `env:"RABBITMQ_HOST,required"`
	RabbitmqPort     int    `env:"RABBITMQ_PORT,required"`
	RabbitmqUser     string `env:"RABBITMQ_USER,required"`
	RabbitmqPassword string `env:"RABBITMQ_PASSWORD,required"`
	MongodbURL       string `env:"MONGODB_URL,required"`

	// A port of 0 disables the corresponding side, so a deployment can
	// run command-only and query-only instances.
	CommandAPIHttpServerPort int `env:"COMMAND_API_HTTP_SERVER_PORT" envDefault:"0"`
	QueryAPIHttpServerPort   int `env:"QUERY_API_HTTP_SERVER_PORT" envDefault:"0"`

	ConsumerGroup string `env:"CONSUMER_GROUP" envDefault:"product-catalog-view"`
}

func main() {
	ctx, ctxCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer ctxCancel()

	cfg, err := env.ParseAs[config]()
	if err != nil {
		panic(err)
	}

	opts := []app.Option{
		app.WithRabbitmqHost(cfg.RabbitmqHost),
		app.WithRabbitmqPort(cfg.RabbitmqPort),
		app.WithRabbitmqUser(cfg.RabbitmqUser),
		app.WithRabbitmqPassword(cfg.RabbitmqPassword),
		app.WithMongoDBURL(cfg.MongodbURL),
		app.WithConsumerGroup(cfg.ConsumerGroup),
	}
	if cfg.CommandAPIHttpServerPort != 0 {
		opts = append(opts, app.WithCommandAPIConfig(app.CommandAPIConfig{
			HttpServerPort: cfg.CommandAPIHttpServerPort,
		}))
	}
	if cfg.QueryAPIHttpServerPort != 0 {
		opts = append(opts, app.WithQueryAPIConfig(app.QueryAPIConfig{
			HttpServerPort: cfg.QueryAPIHttpServerPort,
		}))
	}

	catalogApp, err := app.NewApp(opts...)
	if err != nil {
		panic(err)
	}

	err = catalogApp.Run(ctx)
	if err != nil {
		panic(err)
	}

	<-ctx.Done()

	shutdownCtx, shutdownCtxCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCtxCancel()

	catalogApp.Stop(shutdownCtx)
}
