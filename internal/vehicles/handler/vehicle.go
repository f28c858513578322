package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"fleetbook/internal/vehicles/service"
	apperrors "fleetbook/pkg/errors"
	httputil "fleetbook/pkg/http"
	"fleetbook/pkg/logger"
	"fleetbook/pkg/model"
)

type VehicleHandler struct {
	service service.VehicleService
	log     *logger.Logger
}

func NewVehicleHandler(service service.VehicleService, log *logger.Logger) *VehicleHandler {
	return &VehicleHandler{service: service, log: log}
}

func (h *VehicleHandler) logWriteFailure(op string, err error) {
	if err != nil {
		h.log.Error("failed to write response", "handler", op, "error", err)
	}
}

func (h *VehicleHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var vehicle model.Vehicle
	if err := json.NewDecoder(r.Body).Decode(&vehicle); err != nil {
		h.logWriteFailure("Create", httputil.WriteError(w, apperrors.InvalidInput("Invalid request body")))
		return
	}

	if err := h.service.Create(r.Context(), &vehicle); err != nil {
		h.logWriteFailure("Create", httputil.WriteError(w, err))
		return
	}

	h.logWriteFailure("Create", httputil.WriteCreated(w, vehicle))
}

func (h *VehicleHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	vehicle, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.logWriteFailure("GetByID", httputil.WriteError(w, err))
		return
	}
	h.logWriteFailure("GetByID", httputil.WriteSuccess(w, vehicle))
}

func (h *VehicleHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.logWriteFailure("GetAll", httputil.WriteError(w, err))
		return
	}

	vehicles, total, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		h.logWriteFailure("GetAll", httputil.WriteError(w, err))
		return
	}

	h.logWriteFailure("GetAll", httputil.WritePaginated(w, vehicles, total, limit, offset))
}

func (h *VehicleHandler) GetAvailable(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	vehicles, err := h.service.GetAvailable(r.Context())
	if err != nil {
		h.logWriteFailure("GetAvailable", httputil.WriteError(w, err))
		return
	}
	h.logWriteFailure("GetAvailable", httputil.WriteSuccess(w, vehicles))
}

func (h *VehicleHandler) Search(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()

	if plate := query.Get("plate"); plate != "" {
		vehicle, err := h.service.GetByPlate(r.Context(), plate)
		if err != nil {
			h.logWriteFailure("Search", httputil.WriteError(w, err))
			return
		}
		h.logWriteFailure("Search", httputil.WriteSuccess(w, vehicle))
		return
	}

	if category := query.Get("category"); category != "" {
		vehicles, err := h.service.GetByCategory(r.Context(), category)
		if err != nil {
			h.logWriteFailure("Search", httputil.WriteError(w, err))
			return
		}
		h.logWriteFailure("Search", httputil.WriteSuccess(w, vehicles))
		return
	}

	minStr, maxStr := query.Get("min_rate"), query.Get("max_rate")
	if minStr != "" || maxStr != "" {
		if minStr == "" || maxStr == "" {
			h.logWriteFailure("Search", httputil.WriteError(w,
				apperrors.InvalidInput("Both 'min_rate' and 'max_rate' are required for a price range search")))
			return
		}
		minRate, err := parseRate(minStr)
		if err != nil {
			h.logWriteFailure("Search", httputil.WriteError(w, err))
			return
		}
		maxRate, err := parseRate(maxStr)
		if err != nil {
			h.logWriteFailure("Search", httputil.WriteError(w, err))
			return
		}

		vehicles, err := h.service.GetByPriceRange(r.Context(), minRate, maxRate)
		if err != nil {
			h.logWriteFailure("Search", httputil.WriteError(w, err))
			return
		}
		h.logWriteFailure("Search", httputil.WriteSuccess(w, vehicles))
		return
	}

	h.logWriteFailure("Search", httputil.WriteError(w,
		apperrors.InvalidInput("One of 'plate', 'category' or 'min_rate'/'max_rate' query parameters is required")))
}

func (h *VehicleHandler) SetAvailability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body struct {
		Available *bool `json:"available"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Available == nil {
		h.logWriteFailure("SetAvailability", httputil.WriteError(w, apperrors.InvalidInput("Body must contain an 'available' boolean")))
		return
	}

	if err := h.service.SetAvailability(r.Context(), ps.ByName("id"), *body.Available); err != nil {
		h.logWriteFailure("SetAvailability", httputil.WriteError(w, err))
		return
	}

	httputil.WriteNoContent(w)
}

func (h *VehicleHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var updates model.VehicleUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		h.logWriteFailure("Update", httputil.WriteError(w, apperrors.InvalidInput("Invalid request body")))
		return
	}

	if err := h.service.Update(r.Context(), ps.ByName("id"), &updates); err != nil {
		h.logWriteFailure("Update", httputil.WriteError(w, err))
		return
	}

	httputil.WriteNoContent(w)
}

func (h *VehicleHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Delete(r.Context(), ps.ByName("id")); err != nil {
		h.logWriteFailure("Delete", httputil.WriteError(w, err))
		return
	}
	httputil.WriteNoContent(w)
}

func parseRate(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, apperrors.InvalidInput("invalid rate parameter: " + s)
	}
	return v, nil
}

func (h *VehicleHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/vehicles", h.Create)
	router.GET("/api/v1/vehicles", h.GetAll)
	router.GET("/api/v1/vehicles/available", h.GetAvailable)
	router.GET("/api/v1/vehicles/search", h.Search)
	router.GET("/api/v1/vehicles/id/:id", h.GetByID)
	router.PATCH("/api/v1/vehicles/id/:id", h.Update)
	router.PUT("/api/v1/vehicles/id/:id/availability", h.SetAvailability)
	router.DELETE("/api/v1/vehicles/id/:id", h.Delete)
}
