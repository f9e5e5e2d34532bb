package main

import (
	"staybook/internal/availability"
	blockshandler "staybook/internal/blocks/handler"
	blocksrepository "staybook/internal/blocks/repository"
	blocksservice "staybook/internal/blocks/service"
	blocksvalidator "staybook/internal/blocks/validator"
	bookingshandler "staybook/internal/bookings/handler"
	bookingsrepository "staybook/internal/bookings/repository"
	bookingsservice "staybook/internal/bookings/service"
	bookingsvalidator "staybook/internal/bookings/validator"
	"staybook/internal/events"
	"staybook/internal/idempotency"
	propertieshandler "staybook/internal/properties/handler"
	propertiesrepository "staybook/internal/properties/repository"
	propertiesservice "staybook/internal/properties/service"
	"staybook/pkg/app"
	"staybook/pkg/config"
	"staybook/pkg/lock"
)

const ServiceName = "staybook"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting Staybook service")

	lockRegistry := lock.NewRegistry(cfg.AdmissionLockTTL, cfg.AdmissionLockSweep)
	publisher := newPublisher(cfg)

	bookingHandler, blockHandler, propertyHandler := initHandlers(cfg, lockRegistry, publisher)

	serverApp := app.NewApplication(cfg, lockRegistry, publisher)
	serverApp.SetApp(bookingHandler, blockHandler, propertyHandler)
	serverApp.Run()
}

func newPublisher(cfg *config.Config) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		cfg.Log.Info("No Kafka brokers configured, events disabled")
		return events.NoopPublisher{}
	}

	cfg.Log.Info("Kafka event publisher enabled",
		"brokers", cfg.KafkaBrokers,
		"topic", cfg.KafkaEventTopic,
	)
	return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaEventTopic, cfg.Log)
}

func initHandlers(cfg *config.Config, lockRegistry *lock.Registry, publisher events.Publisher) (*bookingshandler.BookingHandler, *blockshandler.BlockHandler, *propertieshandler.PropertyHandler) {
	idemStore := idempotency.NewMongoStore(cfg)

	bookingRepo := bookingsrepository.NewMongoBookingRepository(cfg)
	blockRepo := blocksrepository.NewMongoBlockRepository(cfg)
	propertyRepo := propertiesrepository.NewMongoPropertyRepository(cfg)

	oracle := availability.NewService(bookingRepo, blockRepo)

	propertyService := propertiesservice.NewPropertyService(propertyRepo, cfg)

	bookingService := bookingsservice.NewBookingService(
		bookingRepo,
		lockRegistry,
		oracle,
		propertyService,
		idemStore,
		bookingsvalidator.NewBookingValidator(cfg.Log),
		publisher,
		cfg,
	)

	blockService := blocksservice.NewBlockService(
		blockRepo,
		oracle,
		propertyService,
		idemStore,
		blocksvalidator.NewBlockValidator(cfg.Log),
		publisher,
		cfg,
	)

	cfg.Log.Info("Services initialized", "database", cfg.MongoDatabaseName)

	return bookingshandler.NewBookingHandler(bookingService, cfg.Log),
		blockshandler.NewBlockHandler(blockService, cfg.Log),
		propertieshandler.NewPropertyHandler(propertyService, cfg.Log)
}
