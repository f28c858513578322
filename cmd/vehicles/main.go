package main

import (
	"fleetbook/internal/vehicles/handler"
	"fleetbook/internal/vehicles/repository"
	"fleetbook/internal/vehicles/service"
	"fleetbook/internal/vehicles/validator"
	"fleetbook/pkg/app"
	"fleetbook/pkg/config"
)

func main() {
	cfg := config.Load("vehicles-service")
	cfg.SetMongo()

	vehicleRepo := repository.NewMongoVehicleRepository(cfg)
	vehicleValidator := validator.NewVehicleValidator(cfg.Log)
	vehicleService := service.NewVehicleService(vehicleRepo, vehicleValidator, cfg)
	vehicleHandler := handler.NewVehicleHandler(vehicleService, cfg.Log)

	application := app.NewApplication(cfg)
	application.SetApp(vehicleHandler)
	application.Run()
}
