package handler

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"fleetbook/internal/customers/service"
	apperrors "fleetbook/pkg/errors"
	httputil "fleetbook/pkg/http"
	"fleetbook/pkg/logger"
	"fleetbook/pkg/model"
)

type CustomerHandler struct {
	service service.CustomerService
	log     *logger.Logger
}

func NewCustomerHandler(service service.CustomerService, log *logger.Logger) *CustomerHandler {
	return &CustomerHandler{service: service, log: log}
}

func (h *CustomerHandler) logWriteFailure(op string, err error) {
	if err != nil {
		h.log.Error("failed to write response", "handler", op, "error", err)
	}
}

func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var customer model.Customer
	if err := json.NewDecoder(r.Body).Decode(&customer); err != nil {
		h.logWriteFailure("Create", httputil.WriteError(w, apperrors.InvalidInput("Invalid request body")))
		return
	}

	if err := h.service.Create(r.Context(), &customer); err != nil {
		h.logWriteFailure("Create", httputil.WriteError(w, err))
		return
	}

	h.logWriteFailure("Create", httputil.WriteCreated(w, customer))
}

func (h *CustomerHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	customer, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.logWriteFailure("GetByID", httputil.WriteError(w, err))
		return
	}
	h.logWriteFailure("GetByID", httputil.WriteSuccess(w, customer))
}

func (h *CustomerHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.logWriteFailure("GetAll", httputil.WriteError(w, err))
		return
	}

	customers, total, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		h.logWriteFailure("GetAll", httputil.WriteError(w, err))
		return
	}

	h.logWriteFailure("GetAll", httputil.WritePaginated(w, customers, total, limit, offset))
}

func (h *CustomerHandler) GetActive(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	customers, err := h.service.GetActive(r.Context())
	if err != nil {
		h.logWriteFailure("GetActive", httputil.WriteError(w, err))
		return
	}
	h.logWriteFailure("GetActive", httputil.WriteSuccess(w, customers))
}

func (h *CustomerHandler) Search(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()

	if email := query.Get("email"); email != "" {
		customer, err := h.service.GetByEmail(r.Context(), email)
		if err != nil {
			h.logWriteFailure("Search", httputil.WriteError(w, err))
			return
		}
		h.logWriteFailure("Search", httputil.WriteSuccess(w, customer))
		return
	}

	if documentID := query.Get("document_id"); documentID != "" {
		customer, err := h.service.GetByDocumentID(r.Context(), documentID)
		if err != nil {
			h.logWriteFailure("Search", httputil.WriteError(w, err))
			return
		}
		h.logWriteFailure("Search", httputil.WriteSuccess(w, customer))
		return
	}

	h.logWriteFailure("Search", httputil.WriteError(w,
		apperrors.InvalidInput("Either 'email' or 'document_id' query parameter is required")))
}

func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var updates model.CustomerUpdate
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

func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Delete(r.Context(), ps.ByName("id")); err != nil {
		h.logWriteFailure("Delete", httputil.WriteError(w, err))
		return
	}
	httputil.WriteNoContent(w)
}

func (h *CustomerHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/customers", h.Create)
	router.GET("/api/v1/customers", h.GetAll)
	router.GET("/api/v1/customers/active", h.GetActive)
	router.GET("/api/v1/customers/search", h.Search)
	router.GET("/api/v1/customers/id/:id", h.GetByID)
	router.PATCH("/api/v1/customers/id/:id", h.Update)
	router.DELETE("/api/v1/customers/id/:id", h.Delete)
}
