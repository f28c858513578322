package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"fleetbook/internal/reservations/service"
	apperrors "fleetbook/pkg/errors"
	httputil "fleetbook/pkg/http"
	"fleetbook/pkg/logger"
	"fleetbook/pkg/model"
)

type ReservationHandler struct {
	service service.ReservationService
	log     *logger.Logger
}

func NewReservationHandler(service service.ReservationService, log *logger.Logger) *ReservationHandler {
	return &ReservationHandler{service: service, log: log}
}

func (h *ReservationHandler) logWriteFailure(op string, err error) {
	if err != nil {
		h.log.Error("failed to write response", "handler", op, "error", err)
	}
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var reservation model.Reservation
	if err := json.NewDecoder(r.Body).Decode(&reservation); err != nil {
		h.logWriteFailure("Create", httputil.WriteError(w, apperrors.InvalidInput("Invalid request body")))
		return
	}

	if err := h.service.Create(r.Context(), &reservation); err != nil {
		h.logWriteFailure("Create", httputil.WriteError(w, err))
		return
	}

	h.logWriteFailure("Create", httputil.WriteCreated(w, reservation))
}

func (h *ReservationHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	reservation, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.logWriteFailure("GetByID", httputil.WriteError(w, err))
		return
	}
	h.logWriteFailure("GetByID", httputil.WriteSuccess(w, reservation))
}

func (h *ReservationHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.logWriteFailure("GetAll", httputil.WriteError(w, err))
		return
	}

	reservations, total, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		h.logWriteFailure("GetAll", httputil.WriteError(w, err))
		return
	}

	h.logWriteFailure("GetAll", httputil.WritePaginated(w, reservations, total, limit, offset))
}

func (h *ReservationHandler) GetActive(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	reservations, err := h.service.GetActive(r.Context())
	if err != nil {
		h.logWriteFailure("GetActive", httputil.WriteError(w, err))
		return
	}
	h.logWriteFailure("GetActive", httputil.WriteSuccess(w, reservations))
}

// Search filters reservations by exactly one criterion: customer, vehicle,
// status, or a date range.
func (h *ReservationHandler) Search(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()

	if customerID := query.Get("customer_id"); customerID != "" {
		reservations, err := h.service.GetByCustomer(r.Context(), customerID)
		if err != nil {
			h.logWriteFailure("Search", httputil.WriteError(w, err))
			return
		}
		h.logWriteFailure("Search", httputil.WriteSuccess(w, reservations))
		return
	}

	if vehicleID := query.Get("vehicle_id"); vehicleID != "" {
		reservations, err := h.service.GetByVehicle(r.Context(), vehicleID)
		if err != nil {
			h.logWriteFailure("Search", httputil.WriteError(w, err))
			return
		}
		h.logWriteFailure("Search", httputil.WriteSuccess(w, reservations))
		return
	}

	if status := query.Get("status"); status != "" {
		reservations, err := h.service.GetByStatus(r.Context(), model.Status(status))
		if err != nil {
			h.logWriteFailure("Search", httputil.WriteError(w, err))
			return
		}
		h.logWriteFailure("Search", httputil.WriteSuccess(w, reservations))
		return
	}

	start, err := httputil.ExtractDate(r, "start_date")
	if err != nil {
		h.logWriteFailure("Search", httputil.WriteError(w, err))
		return
	}
	end, err := httputil.ExtractDate(r, "end_date")
	if err != nil {
		h.logWriteFailure("Search", httputil.WriteError(w, err))
		return
	}
	if start != nil && end != nil {
		reservations, err := h.service.GetByDateRange(r.Context(), *start, *end)
		if err != nil {
			h.logWriteFailure("Search", httputil.WriteError(w, err))
			return
		}
		h.logWriteFailure("Search", httputil.WriteSuccess(w, reservations))
		return
	}

	h.logWriteFailure("Search", httputil.WriteError(w,
		apperrors.InvalidInput("One of 'customer_id', 'vehicle_id', 'status' or 'start_date'/'end_date' query parameters is required")))
}

func (h *ReservationHandler) GetDetail(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	detail, err := h.service.GetDetail(r.Context(), ps.ByName("id"))
	if err != nil {
		h.logWriteFailure("GetDetail", httputil.WriteError(w, err))
		return
	}
	h.logWriteFailure("GetDetail", httputil.WriteSuccess(w, detail))
}

func (h *ReservationHandler) GetAllDetails(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.logWriteFailure("GetAllDetails", httputil.WriteError(w, err))
		return
	}

	details, err := h.service.GetAllDetails(r.Context(), limit, offset)
	if err != nil {
		h.logWriteFailure("GetAllDetails", httputil.WriteError(w, err))
		return
	}
	h.logWriteFailure("GetAllDetails", httputil.WriteSuccess(w, details))
}

func (h *ReservationHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var updates model.ReservationUpdate
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

func (h *ReservationHandler) ChangeStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Status == "" {
		h.logWriteFailure("ChangeStatus", httputil.WriteError(w, apperrors.InvalidInput("Body must contain a 'status' string")))
		return
	}

	if err := h.service.ChangeStatus(r.Context(), ps.ByName("id"), model.Status(body.Status)); err != nil {
		h.logWriteFailure("ChangeStatus", httputil.WriteError(w, err))
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body struct {
		Reason string `json:"reason"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			h.logWriteFailure("Cancel", httputil.WriteError(w, apperrors.InvalidInput("Invalid request body")))
			return
		}
	}

	if err := h.service.Cancel(r.Context(), ps.ByName("id"), body.Reason); err != nil {
		h.logWriteFailure("Cancel", httputil.WriteError(w, err))
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ReservationHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Delete(r.Context(), ps.ByName("id")); err != nil {
		h.logWriteFailure("Delete", httputil.WriteError(w, err))
		return
	}
	httputil.WriteNoContent(w)
}

// Quote prices a window without creating anything.
func (h *ReservationHandler) Quote(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	vehicleID := r.URL.Query().Get("vehicle_id")
	start, end, err := h.extractWindow(r)
	if err != nil {
		h.logWriteFailure("Quote", httputil.WriteError(w, err))
		return
	}

	total, err := h.service.Quote(r.Context(), vehicleID, start, end)
	if err != nil {
		h.logWriteFailure("Quote", httputil.WriteError(w, err))
		return
	}

	h.logWriteFailure("Quote", httputil.WriteSuccess(w, map[string]any{
		"vehicle_id":   vehicleID,
		"start_date":   start,
		"end_date":     end,
		"total_amount": total,
	}))
}

func (h *ReservationHandler) Availability(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	vehicleID := r.URL.Query().Get("vehicle_id")
	start, end, err := h.extractWindow(r)
	if err != nil {
		h.logWriteFailure("Availability", httputil.WriteError(w, err))
		return
	}

	available, err := h.service.IsVehicleAvailable(r.Context(), vehicleID, start, end)
	if err != nil {
		h.logWriteFailure("Availability", httputil.WriteError(w, err))
		return
	}

	h.logWriteFailure("Availability", httputil.WriteSuccess(w, map[string]any{
		"vehicle_id": vehicleID,
		"start_date": start,
		"end_date":   end,
		"available":  available,
	}))
}

func (h *ReservationHandler) extractWindow(r *http.Request) (start, end time.Time, err error) {
	s, err := httputil.ExtractDate(r, "start_date")
	if err != nil {
		return start, end, err
	}
	e, err := httputil.ExtractDate(r, "end_date")
	if err != nil {
		return start, end, err
	}
	if s == nil || e == nil {
		return start, end, apperrors.InvalidInput("Both 'start_date' and 'end_date' query parameters are required")
	}
	return *s, *e, nil
}

func (h *ReservationHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/reservations", h.Create)
	router.GET("/api/v1/reservations", h.GetAll)
	router.GET("/api/v1/reservations/active", h.GetActive)
	router.GET("/api/v1/reservations/search", h.Search)
	router.GET("/api/v1/reservations/details", h.GetAllDetails)
	router.GET("/api/v1/reservations/quote", h.Quote)
	router.GET("/api/v1/reservations/availability", h.Availability)
	router.GET("/api/v1/reservations/id/:id", h.GetByID)
	router.GET("/api/v1/reservations/id/:id/detail", h.GetDetail)
	router.PATCH("/api/v1/reservations/id/:id", h.Update)
	router.PUT("/api/v1/reservations/id/:id/status", h.ChangeStatus)
	router.POST("/api/v1/reservations/id/:id/cancel", h.Cancel)
	router.DELETE("/api/v1/reservations/id/:id", h.Delete)
}
