package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	commandapi "product-catalog/internal/adapters/input/http/command"
	queryapi "product-catalog/internal/adapters/input/http/query"
	"product-catalog/internal/adapters/mongodb"
	catalogevents "product-catalog/internal/domain/events"
	"product-catalog/internal/domain/product"
	"product-catalog/internal/domain/view"
	"product-catalog/pkg/logattr"

	"github.com/walletera/eventskit/messages"
	"github.com/walletera/eventskit/rabbitmq"
	"github.com/walletera/werrors"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

const (
	RabbitMQProductsExchangeName = "product.events"
	RabbitMQExchangeType         = "topic"
	RabbitMQQueueName            = "product-catalog-view"

	MongoDBName                   = "catalog"
	MongoDBEventsCollectionName   = "events"
	MongoDBProductsCollectionName = "products"
)

type CommandAPIConfig struct {
	HttpServerPort int
}

type QueryAPIConfig struct {
	HttpServerPort int
}

type App struct {
	rabbitmqHost     string
	rabbitmqPort     int
	rabbitmqUser     string
	rabbitmqPassword string
	mongodbURL       string
	consumerGroup    string
	validationMode   product.ValidationMode
	commandAPIConfig Optional[CommandAPIConfig]
	queryAPIConfig   Optional[QueryAPIConfig]

	mongoClient       *mongo.Client
	logHandler        slog.Handler
	logger            *slog.Logger
	httpServersToStop []*http.Server
}

func NewApp(opts ...Option) (*App, error) {
	app := &App{
		consumerGroup: RabbitMQQueueName,
	}
	err := setDefaultOpts(app)
	if err != nil {
		return nil, fmt.Errorf("failed setting default options: %w", err)
	}
	for _, opt := range opts {
		opt(app)
	}
	return app, nil
}

func (app *App) Run(ctx context.Context) error {
	app.logger = slog.
		New(app.logHandler).
		With(logattr.ServiceName("product-catalog"))

	app.logger.Info("product-catalog started")

	mongoClient, err := connectMongoDB(app.mongodbURL)
	if err != nil {
		return fmt.Errorf("error connecting to mongodb: %w", err)
	}
	app.mongoClient = mongoClient

	deserializer := catalogevents.NewDeserializer(app.logger.With(logattr.Component("events.Deserializer")))
	eventStore := mongodb.NewEventStore(mongoClient, MongoDBName, MongoDBEventsCollectionName, deserializer)
	err = eventStore.EnsureIndexes(ctx)
	if err != nil {
		return fmt.Errorf("error creating event store indexes: %w", err)
	}

	var httpServersToStop []*http.Server

	if app.commandAPIConfig.Set {
		commandApiHttpServer, err := app.startCommandAPIHTTPServer(eventStore)
		if err != nil {
			return fmt.Errorf("failed starting command api http server: %w", err)
		}
		httpServersToStop = append(httpServersToStop, commandApiHttpServer)
	}

	if app.queryAPIConfig.Set {
		productsRepository := mongodb.NewProductsRepository(mongoClient, MongoDBName, MongoDBProductsCollectionName)

		processor, err := app.createProductsMessageProcessor(deserializer, productsRepository)
		if err != nil {
			return fmt.Errorf("error creating products message processor: %w", err)
		}
		err = processor.Start(ctx)
		if err != nil {
			return fmt.Errorf("error starting products message processor: %w", err)
		}

		replayer := view.NewReplayer(
			eventStore,
			productsRepository,
			app.logger.With(logattr.Component("view.Replayer")),
		)

		queryApiHttpServer, err := app.startQueryAPIHTTPServer(productsRepository, replayer)
		if err != nil {
			return fmt.Errorf("failed starting query api http server: %w", err)
		}
		httpServersToStop = append(httpServersToStop, queryApiHttpServer)
	}

	app.httpServersToStop = httpServersToStop

	return nil
}

func (app *App) Stop(ctx context.Context) {
	err := app.mongoClient.Disconnect(context.TODO())
	if err != nil {
		app.logger.Error("error disconnecting from mongo", logattr.Error(err.Error()))
	}
	for _, httpServer := range app.httpServersToStop {
		err := httpServer.Shutdown(ctx)
		if err != nil {
			app.logger.Error("error stopping http server", logattr.Error(err.Error()))
		}
	}
	app.logger.Info("product-catalog stopped")
}

func setDefaultOpts(app *App) error {
	zapLogger, err := newZapLogger()
	if err != nil {
		return err
	}
	app.logHandler = zapslog.NewHandler(zapLogger.Core())
	return nil
}

func newZapLogger() (*zap.Logger, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(zap.DebugLevel),
		Development:       false,
		DisableStacktrace: true,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding:         "json",
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return zapConfig.Build()
}

func connectMongoDB(mongodbURL string) (*mongo.Client, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(mongodbURL).SetServerAPIOptions(serverAPI)
	return mongo.Connect(opts)
}

func (app *App) startCommandAPIHTTPServer(eventStore *mongodb.EventStore) (*http.Server, error) {
	publisher, err := rabbitmq.NewClient(
		rabbitmq.WithHost(app.rabbitmqHost),
		rabbitmq.WithPort(uint(app.rabbitmqPort)),
		rabbitmq.WithUser(app.rabbitmqUser),
		rabbitmq.WithPassword(app.rabbitmqPassword),
		rabbitmq.WithExchangeName(RabbitMQProductsExchangeName),
		rabbitmq.WithExchangeType(RabbitMQExchangeType),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rabbitmq publisher client: %w", err)
	}

	repository := product.NewRepository(
		eventStore,
		publisher,
		RabbitMQProductsExchangeName,
		app.logger.With(logattr.Component("product.Repository")),
	)
	dispatcher := product.NewDispatcher(
		repository,
		app.logger.With(logattr.Component("product.Dispatcher")),
		product.WithValidationMode(app.validationMode),
	)

	mux := http.NewServeMux()
	commandapi.NewHandler(
		dispatcher,
		app.logger.With(logattr.Component("http.CommandAPIHandler")),
	).Register(mux)

	return app.startHTTPServer(app.commandAPIConfig.Value.HttpServerPort, mux)
}

func (app *App) startQueryAPIHTTPServer(repository view.Repository, replayer *view.Replayer) (*http.Server, error) {
	mux := http.NewServeMux()
	queryapi.NewHandler(
		repository,
		replayer,
		app.logger.With(logattr.Component("http.QueryAPIHandler")),
	).Register(mux)

	return app.startHTTPServer(app.queryAPIConfig.Value.HttpServerPort, mux)
}

func (app *App) startHTTPServer(port int, handler http.Handler) (*http.Server, error) {
	httpServer := &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", port),
		Handler: handler,
	}

	go func() {
		defer app.logger.Info("http server stopped")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error("http server error", logattr.Error(err.Error()))
		}
	}()

	app.logger.Info("http server started")

	return httpServer, nil
}

func (app *App) createProductsMessageProcessor(
	deserializer *catalogevents.Deserializer,
	repository view.Repository,
) (*messages.Processor[catalogevents.Handler], error) {

	rabbitMQClient, err := rabbitmq.NewClient(
		rabbitmq.WithHost(app.rabbitmqHost),
		rabbitmq.WithPort(uint(app.rabbitmqPort)),
		rabbitmq.WithUser(app.rabbitmqUser),
		rabbitmq.WithPassword(app.rabbitmqPassword),
		rabbitmq.WithExchangeName(RabbitMQProductsExchangeName),
		rabbitmq.WithExchangeType(RabbitMQExchangeType),
		rabbitmq.WithConsumerRoutingKeys(
			catalogevents.RoutingKeyProductAdded,
			catalogevents.RoutingKeyProductSaleable,
			catalogevents.RoutingKeyProductUnsaleable,
		),
		rabbitmq.WithQueueName(app.consumerGroup),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rabbitmq client: %w", err)
	}

	productEventsHandler := view.NewEventsHandler(
		repository,
		app.logger.With(logattr.Component("view.EventsHandler")),
	)

	productsMessageProcessor := messages.NewProcessor[catalogevents.Handler](
		rabbitMQClient,
		deserializer,
		productEventsHandler,
		withErrorCallback(
			app.logger.With(
				logattr.Component("view.rabbitmq.MessageProcessor")),
		),
	)

	return productsMessageProcessor, nil
}

func withErrorCallback(logger *slog.Logger) messages.ProcessorOpt {
	return messages.WithErrorCallback(func(wError werrors.WError) {
		logger.Error(
			"failed processing message",
			logattr.Error(wError.Message()))
	})
}
