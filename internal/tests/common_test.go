package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"product-catalog/internal/app"
	catalogevents "product-catalog/internal/domain/events"

	"github.com/cucumber/godog"
	"github.com/walletera/eventskit/events"
	"github.com/walletera/eventskit/rabbitmq"
	slogwatcher "github.com/walletera/logs-watcher/slog"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

const (
	appKey                    = "app"
	appCtxCancelFuncKey       = "appCtxCancelFuncKey"
	logsWatcherKey            = "logsWatcher"
	rawEventKey               = "rawEvent"
	deserializedEventKey      = "deserializedEvent"
	responseStatusCodeKey     = "responseStatusCode"
	logsWatcherWaitForTimeout = 5 * time.Second
	commandApiHttpServerPort  = 8485
	queryApiHttpServerPort    = 8484
	mongodbURL                = "mongodb://localhost:27017/?retryWrites=true&w=majority"
)

var mongodbClient *mongo.Client

func beforeScenarioHook(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
	handler, err := newZapHandler()
	if err != nil {
		return ctx, err
	}
	logsWatcher := slogwatcher.NewWatcher(handler)
	ctx = context.WithValue(ctx, logsWatcherKey, logsWatcher)

	client, err := getMongodbClient()
	if err != nil {
		return ctx, err
	}

	// cleanup database before each scenario
	err = client.Database(app.MongoDBName).Drop(ctx)
	if err != nil {
		return nil, err
	}

	return ctx, nil
}

func afterScenarioHook(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
	logsWatcher := logsWatcherFromCtx(ctx)

	appFromCtx(ctx).Stop(ctx)
	foundLogEntry := logsWatcher.WaitFor("product-catalog stopped", logsWatcherWaitForTimeout)
	if !foundLogEntry {
		return ctx, fmt.Errorf("app termination failed (didn't find expected log entry)")
	}

	err = logsWatcher.Stop()
	if err != nil {
		return ctx, fmt.Errorf("failed stopping the logsWatcher: %w", err)
	}

	return ctx, nil
}

func aRunningProductCatalog(ctx context.Context) (context.Context, error) {
	logHandler := logsWatcherFromCtx(ctx).DecoratedHandler()

	appCtx, appCtxCancelFunc := context.WithCancel(ctx)

	catalogApp, err := app.NewApp(
		app.WithCommandAPIConfig(app.CommandAPIConfig{
			HttpServerPort: commandApiHttpServerPort,
		}),
		app.WithQueryAPIConfig(app.QueryAPIConfig{
			HttpServerPort: queryApiHttpServerPort,
		}),
		app.WithRabbitmqHost(rabbitmq.DefaultHost),
		app.WithRabbitmqPort(rabbitmq.DefaultPort),
		app.WithRabbitmqUser(rabbitmq.DefaultUser),
		app.WithRabbitmqPassword(rabbitmq.DefaultPassword),
		app.WithMongoDBURL(mongodbURL),
		app.WithLogHandler(logHandler),
	)
	if err != nil {
		appCtxCancelFunc()
		return ctx, fmt.Errorf("failed initializing catalogApp: %w", err)
	}

	err = catalogApp.Run(appCtx)
	if err != nil {
		appCtxCancelFunc()
		return ctx, fmt.Errorf("failed running catalogApp: %w", err)
	}

	ctx = context.WithValue(ctx, appKey, catalogApp)
	ctx = context.WithValue(ctx, appCtxCancelFuncKey, appCtxCancelFunc)

	foundLogEntry := logsWatcherFromCtx(ctx).WaitFor("product-catalog started", logsWatcherWaitForTimeout)
	if !foundLogEntry {
		return ctx, fmt.Errorf("catalogApp startup failed (didn't find expected log entry)")
	}

	return ctx, nil
}

func anEvent(ctx context.Context, event *godog.DocString) (context.Context, error) {
	if event == nil || len(event.Content) == 0 {
		return ctx, fmt.Errorf("the event is empty or was not defined")
	}
	rawEvent := []byte(event.Content)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	deserializer := catalogevents.NewDeserializer(logger)
	deserializedEvent, err := deserializer.Deserialize(rawEvent)
	if err != nil {
		return ctx, err
	}
	ctx = context.WithValue(ctx, deserializedEventKey, deserializedEvent)
	return context.WithValue(ctx, rawEventKey, rawEvent), nil
}

func theEventIsPublished(ctx context.Context) (context.Context, error) {
	publisher, err := rabbitmq.NewClient(
		rabbitmq.WithExchangeName(app.RabbitMQProductsExchangeName),
		rabbitmq.WithExchangeType(app.RabbitMQExchangeType),
	)
	if err != nil {
		return nil, fmt.Errorf("error creating rabbitmq client: %s", err.Error())
	}

	deserializedEvent := deserializedEventFromCtx(ctx)
	routingKey, err := catalogevents.RoutingKeyFor(deserializedEvent.Type())
	if err != nil {
		return ctx, err
	}

	rawEvent := ctx.Value(rawEventKey).([]byte)
	err = publisher.Publish(ctx, publishable{rawEvent: rawEvent}, events.RoutingInfo{
		Topic:      app.RabbitMQProductsExchangeName,
		RoutingKey: routingKey,
	})
	if err != nil {
		return ctx, fmt.Errorf("error publishing event to rabbitmq: %s", err.Error())
	}

	return ctx, nil
}

func theProductCatalogProducesTheFollowingLog(ctx context.Context, logMsg string) (context.Context, error) {
	logsWatcher := logsWatcherFromCtx(ctx)
	foundLogEntry := logsWatcher.WaitFor(logMsg, logsWatcherWaitForTimeout)
	if !foundLogEntry {
		return ctx, fmt.Errorf("didn't find expected log entry")
	}
	return ctx, nil
}

func theProductCatalogProducesTheFollowingLogNTimes(ctx context.Context, times int, logMsg string) (context.Context, error) {
	logsWatcher := logsWatcherFromCtx(ctx)
	foundLogEntries := logsWatcher.WaitForNTimes(logMsg, logsWatcherWaitForTimeout, times)
	if !foundLogEntries {
		return ctx, fmt.Errorf("didn't find the expected log entry %d times", times)
	}
	return ctx, nil
}

func theProductCatalogReceivesAnAddProductRequest(ctx context.Context, id string, name string) (context.Context, error) {
	requestURL := fmt.Sprintf(
		"http://127.0.0.1:%d/products/add/%s?name=%s",
		commandApiHttpServerPort,
		url.PathEscape(id),
		url.QueryEscape(name),
	)
	return executeCommandRequest(ctx, requestURL)
}

func theProductCatalogReceivesAMarkSaleableRequest(ctx context.Context, id string) (context.Context, error) {
	requestURL := fmt.Sprintf(
		"http://127.0.0.1:%d/products/saleable/%s",
		commandApiHttpServerPort,
		url.PathEscape(id),
	)
	return executeCommandRequest(ctx, requestURL)
}

func theProductCatalogReceivesAMarkUnsaleableRequest(ctx context.Context, id string) (context.Context, error) {
	requestURL := fmt.Sprintf(
		"http://127.0.0.1:%d/products/unsaleable/%s",
		commandApiHttpServerPort,
		url.PathEscape(id),
	)
	return executeCommandRequest(ctx, requestURL)
}

func executeCommandRequest(ctx context.Context, requestURL string) (context.Context, error) {
	request, err := http.NewRequest(http.MethodPost, requestURL, nil)
	if err != nil {
		return ctx, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(request)
	if err != nil {
		return ctx, fmt.Errorf("failed to send request: %w", err)
	}
	defer func(body io.ReadCloser) {
		err := body.Close()
		if err != nil {
			panic(err)
		}
	}(resp.Body)

	return context.WithValue(ctx, responseStatusCodeKey, resp.StatusCode), nil
}

func theProductCatalogRespondsWithStatusCode(ctx context.Context, statusCode int) (context.Context, error) {
	responseStatusCode := responseStatusCodeFromCtx(ctx)
	if responseStatusCode != statusCode {
		return ctx, fmt.Errorf("expected response status code to be %d, but got %d", statusCode, responseStatusCode)
	}
	return ctx, nil
}

// theFollowingProductsWereAdded seeds the catalog through the command
// API and waits until the view has processed every resulting event.
func theFollowingProductsWereAdded(ctx context.Context, table *godog.Table) (context.Context, error) {
	if table == nil || len(table.Rows) < 2 {
		return ctx, fmt.Errorf("the products table is empty or was not defined")
	}

	added := 0
	markedSaleable := 0
	for _, row := range table.Rows[1:] {
		id := row.Cells[0].Value
		name := row.Cells[1].Value
		saleable := row.Cells[2].Value == "true"

		ctx, err := theProductCatalogReceivesAnAddProductRequest(ctx, id, name)
		if err != nil {
			return ctx, err
		}
		if responseStatusCodeFromCtx(ctx) != http.StatusCreated {
			return ctx, fmt.Errorf("failed adding product %s: status code %d", id, responseStatusCodeFromCtx(ctx))
		}
		added++

		if saleable {
			ctx, err = theProductCatalogReceivesAMarkSaleableRequest(ctx, id)
			if err != nil {
				return ctx, err
			}
			if responseStatusCodeFromCtx(ctx) != http.StatusOK {
				return ctx, fmt.Errorf("failed marking product %s saleable: status code %d", id, responseStatusCodeFromCtx(ctx))
			}
			markedSaleable++
		}
	}

	logsWatcher := logsWatcherFromCtx(ctx)
	if !logsWatcher.WaitForNTimes("product saved", logsWatcherWaitForTimeout, added) {
		return ctx, fmt.Errorf("the view didn't process all ProductAdded events")
	}
	if markedSaleable > 0 && !logsWatcher.WaitForNTimes("product saleability updated", logsWatcherWaitForTimeout, markedSaleable) {
		return ctx, fmt.Errorf("the view didn't process all ProductSaleable events")
	}

	return ctx, nil
}

func logsWatcherFromCtx(ctx context.Context) *slogwatcher.Watcher {
	value := ctx.Value(logsWatcherKey)
	if value == nil {
		panic("logs watcher not found in context")
	}
	watcher, ok := value.(*slogwatcher.Watcher)
	if !ok {
		panic("logs watcher has invalid type")
	}
	return watcher
}

func appFromCtx(ctx context.Context) *app.App {
	value := ctx.Value(appKey)
	if value == nil {
		panic("catalogApp not found in context")
	}
	catalogApp, ok := value.(*app.App)
	if !ok {
		panic("catalogApp has invalid type")
	}
	return catalogApp
}

func deserializedEventFromCtx(ctx context.Context) events.Event[catalogevents.Handler] {
	value := ctx.Value(deserializedEventKey)
	if value == nil {
		panic("deserializedEvent not found in context")
	}
	deserializedEvent, ok := value.(events.Event[catalogevents.Handler])
	if !ok {
		panic("deserializedEvent has invalid type")
	}
	return deserializedEvent
}

func responseStatusCodeFromCtx(ctx context.Context) int {
	value := ctx.Value(responseStatusCodeKey)
	if value == nil {
		panic("responseStatusCode not found in context")
	}
	statusCode, ok := value.(int)
	if !ok {
		panic("responseStatusCode has invalid type")
	}
	return statusCode
}

func newZapHandler() (slog.Handler, error) {
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
	zapLogger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}
	if zapLogger.Core() == nil {
		return nil, fmt.Errorf("zapLogger.Core() is nil")
	}
	return zapslog.NewHandler(zapLogger.Core()), nil
}

func getMongodbClient() (*mongo.Client, error) {
	if mongodbClient != nil {
		return mongodbClient, nil
	}

	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(mongodbURL).SetServerAPIOptions(serverAPI)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, err
	}
	mongodbClient = client

	return mongodbClient, nil
}

func queryAPIGet(ctx context.Context, path string, target any) (int, error) {
	requestURL := fmt.Sprintf("http://127.0.0.1:%d%s", queryApiHttpServerPort, path)
	request, err := http.NewRequest(http.MethodGet, requestURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(request.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer func(body io.ReadCloser) {
		err := body.Close()
		if err != nil {
			panic(err)
		}
	}(resp.Body)

	if resp.StatusCode == http.StatusOK && target != nil {
		err = json.NewDecoder(resp.Body).Decode(target)
		if err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return resp.StatusCode, nil
}
