package main

import (
	customerrepo "fleetbook/internal/customers/repository"
	"fleetbook/internal/reservations/events"
	"fleetbook/internal/reservations/handler"
	"fleetbook/internal/reservations/repository"
	"fleetbook/internal/reservations/service"
	"fleetbook/internal/reservations/validator"
	vehiclerepo "fleetbook/internal/vehicles/repository"
	"fleetbook/pkg/app"
	"fleetbook/pkg/clock"
	"fleetbook/pkg/config"
	"fleetbook/pkg/kafka"
)

func main() {
	cfg := config.Load("reservations-service")
	cfg.SetMongo()

	reservationRepo := repository.NewMongoReservationRepository(cfg)
	lockRepo := repository.NewMongoLockRepository(cfg)
	customerRepo := customerrepo.NewMongoCustomerRepository(cfg)
	vehicleRepo := vehiclerepo.NewMongoVehicleRepository(cfg)
	reservationValidator := validator.NewReservationValidator(cfg.Log)

	publisher := newPublisher(cfg)
	defer func() {
		if err := publisher.Close(); err != nil {
			cfg.Log.Error("Failed to close event publisher", "error", err)
		}
	}()

	reservationService := service.NewReservationService(
		reservationRepo,
		lockRepo,
		customerRepo,
		vehicleRepo,
		reservationValidator,
		publisher,
		clock.System(),
		cfg,
	)
	reservationHandler := handler.NewReservationHandler(reservationService, cfg.Log)

	application := app.NewApplication(cfg)
	application.SetApp(reservationHandler)
	application.Run()
}

// newPublisher wires Kafka when brokers are configured, otherwise events
// are dropped and the service runs standalone.
func newPublisher(cfg *config.Config) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		cfg.Log.Info("Kafka brokers not configured, reservation events disabled")
		return events.NoopPublisher{}
	}

	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.KafkaEventsTopic,
		WriteTimeout: cfg.KafkaProducerTimeout,
	})
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	return events.NewKafkaPublisher(producer, cfg.Log)
}
