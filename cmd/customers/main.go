package main

import (
	"fleetbook/internal/customers/handler"
	"fleetbook/internal/customers/repository"
	"fleetbook/internal/customers/service"
	"fleetbook/internal/customers/validator"
	"fleetbook/pkg/app"
	"fleetbook/pkg/clock"
	"fleetbook/pkg/config"
)

func main() {
	cfg := config.Load("customers-service")
	cfg.SetMongo()

	customerRepo := repository.NewMongoCustomerRepository(cfg)
	customerValidator := validator.NewCustomerValidator(cfg.Log)
	customerService := service.NewCustomerService(customerRepo, customerValidator, clock.System(), cfg)
	customerHandler := handler.NewCustomerHandler(customerService, cfg.Log)

	application := app.NewApplication(cfg)
	application.SetApp(customerHandler)
	application.Run()
}
