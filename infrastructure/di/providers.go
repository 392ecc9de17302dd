package di

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-xray-sdk-go/instrumentation/awsv2"
	"go.uber.org/zap"

	"github.com/gumnutdev/quick-notes/application/ports"
	"github.com/gumnutdev/quick-notes/application/services"
	domainconfig "github.com/gumnutdev/quick-notes/domain/config"
	"github.com/gumnutdev/quick-notes/infrastructure/cache"
	"github.com/gumnutdev/quick-notes/infrastructure/config"
	"github.com/gumnutdev/quick-notes/infrastructure/messaging"
	"github.com/gumnutdev/quick-notes/infrastructure/persistence/badger"
	"github.com/gumnutdev/quick-notes/infrastructure/persistence/dynamodb"
	"github.com/gumnutdev/quick-notes/infrastructure/persistence/memory"
	"github.com/gumnutdev/quick-notes/infrastructure/persistence/resilient"
	"github.com/gumnutdev/quick-notes/interfaces/http/rest"
	"github.com/gumnutdev/quick-notes/pkg/observability"
)

const serviceName = "quick-notes"

// ProvideLogLevel parses the configured level into an atomic level the
// config watcher can change later.
func ProvideLogLevel(cfg *config.Config) (zap.AtomicLevel, error) {
	lvl, err := cfg.Level()
	if err != nil {
		return zap.AtomicLevel{}, err
	}
	return zap.NewAtomicLevelAt(lvl), nil
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config, level zap.AtomicLevel) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = level

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", serviceName)), nil
}

// ProvideDomainConfig returns the domain rules for the environment.
func ProvideDomainConfig(cfg *config.Config) *domainconfig.DomainConfig {
	return domainconfig.LoadDomainConfig(cfg.Environment)
}

// ProvideMetrics returns nil when metrics are disabled.
func ProvideMetrics(cfg *config.Config) *observability.Collector {
	if !cfg.EnableMetrics {
		return nil
	}
	return observability.NewCollector("quick_notes")
}

// ProvideTracer creates the X-Ray tracer.
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	return observability.NewTracer(serviceName, cfg.EnableTracing)
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.EnableTracing {
		awsv2.AWSV2Instrumentor(&awsCfg.APIOptions)
	}
	return awsCfg, nil
}

// ProvideDynamoDBClient creates a DynamoDB client, pointed at a local
// endpoint when one is configured.
func ProvideDynamoDBClient(awsCfg aws.Config, cfg *config.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	})
}

// ProvideNoteStore opens the configured store behind the circuit breaker.
// The cleanup closes embedded databases.
func ProvideNoteStore(
	cfg *config.Config,
	awsCfg aws.Config,
	tracer *observability.Tracer,
	metrics *observability.Collector,
	logger *zap.Logger,
) (ports.NoteStore, func(), error) {
	var (
		store   ports.NoteStore
		cleanup = func() {}
	)

	switch cfg.StoreDriver {
	case config.StoreDynamoDB:
		ddbCfg := dynamodb.DefaultConfig(cfg.TableName)
		ddbCfg.GSI1Name = cfg.GSI1Name
		ddbCfg.GSI2Name = cfg.GSI2Name
		store = dynamodb.NewNoteStore(ProvideDynamoDBClient(awsCfg, cfg), ddbCfg, logger.Named("dynamodb"))
	case config.StoreBadger:
		db, err := badger.Open(badger.Options{Dir: cfg.BadgerPath, SyncWrites: cfg.IsProduction()}, logger.Named("badger"))
		if err != nil {
			return nil, nil, err
		}
		store = db
		cleanup = func() {
			if err := db.Close(); err != nil {
				logger.Error("Failed to close badger store", zap.Error(err))
			}
		}
	case config.StoreMemory:
		store = memory.NewNoteStore()
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	breaker := resilient.DefaultBreakerConfig("note-store")
	breaker.MinRequests = uint32(cfg.BreakerMaxFailures)
	logger.Info("Note store ready", zap.String("driver", cfg.StoreDriver))
	return resilient.NewNoteStore(store, breaker, tracer, metrics, logger), cleanup, nil
}

// ProvideCache creates the collection cache.
func ProvideCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.Cache, func(), error) {
	switch cfg.CacheDriver {
	case config.CacheRedis:
		c, err := cache.NewRedisCache(ctx, cfg.RedisURL, serviceName+":", cfg.CacheTTL, logger.Named("redis"))
		if err != nil {
			return nil, nil, err
		}
		return c, func() { _ = c.Close() }, nil
	case config.CacheNone:
		return cache.NoopCache{}, func() {}, nil
	default:
		c := cache.NewMemoryCache(cfg.CacheTTL)
		return c, func() { _ = c.Close() }, nil
	}
}

// ProvideEventPublisher sends events to EventBridge when enabled and logs
// them in development. Otherwise events are dropped.
func ProvideEventPublisher(cfg *config.Config, awsCfg aws.Config, logger *zap.Logger) ports.EventPublisher {
	switch {
	case cfg.EnableEvents:
		return messaging.NewEventBridgePublisher(awseventbridge.NewFromConfig(awsCfg), cfg.EventBusName, logger.Named("events"))
	case cfg.IsDevelopment():
		return messaging.NewLogPublisher(logger.Named("events"))
	default:
		return nil
	}
}

// ProvideNoteService creates the note service
func ProvideNoteService(
	store ports.NoteStore,
	c ports.Cache,
	publisher ports.EventPublisher,
	domainCfg *domainconfig.DomainConfig,
	metrics *observability.Collector,
	logger *zap.Logger,
) *services.NoteService {
	return services.NewNoteService(store, c, publisher, domainCfg, logger, services.WithMetrics(metrics))
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	cfg *config.Config,
	service *services.NoteService,
	metrics *observability.Collector,
	tracer *observability.Tracer,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(service, metrics, tracer, rest.Options{
		EnableCORS:     cfg.EnableCORS,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Debug:          cfg.IsDevelopment(),
	}, logger)
}
