package app

import (
	"log/slog"

	"product-catalog/internal/domain/product"
)

type Option func(app *App)

func WithCommandAPIConfig(config CommandAPIConfig) func(a *App) {
	return func(a *App) {
		a.commandAPIConfig = NewOptional[CommandAPIConfig](config)
	}
}

func WithQueryAPIConfig(config QueryAPIConfig) func(a *App) {
	return func(a *App) {
		a.queryAPIConfig = NewOptional[QueryAPIConfig](config)
	}
}

func WithRabbitmqHost(host string) func(a *App) { return func(a *App) { a.rabbitmqHost = host } }

func WithRabbitmqPort(port int) func(a *App) { return func(a *App) { a.rabbitmqPort = port } }

func WithRabbitmqUser(user string) func(a *App) { return func(a *App) { a.rabbitmqUser = user } }

func WithRabbitmqPassword(password string) func(a *App) {
	return func(a *App) { a.rabbitmqPassword = password }
}

func WithMongoDBURL(url string) func(a *App) { return func(a *App) { a.mongodbURL = url } }

func WithConsumerGroup(consumerGroup string) func(a *App) {
	return func(a *App) { a.consumerGroup = consumerGroup }
}

func WithValidationMode(mode product.ValidationMode) func(a *App) {
	return func(a *App) { a.validationMode = mode }
}

func WithLogHandler(handler slog.Handler) func(app *App) {
	return func(app *App) { app.logHandler = handler }
}
