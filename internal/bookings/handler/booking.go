package handler

import (
	"encoding/json"
	"net/http"

	"staybook/internal/bookings/service"
	apperrors "staybook/pkg/errors"
	httputil "staybook/pkg/http"
	"staybook/pkg/logger"
	"staybook/pkg/model"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
)

// IdempotencyKeyHeader carries the client-chosen UUID that makes booking
// mutations safely retryable.
const IdempotencyKeyHeader = "Idempotency-Key"

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	key, ok := h.idempotencyKey(w, r, "Create")
	if !ok {
		return
	}

	var req model.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Create", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	booking, err := h.service.Create(r.Context(), &req, key)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	booking, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	key, ok := h.idempotencyKey(w, r, "Cancel")
	if !ok {
		return
	}

	booking, err := h.service.Cancel(r.Context(), ps.ByName("id"), key)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Cancel", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Cancel", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Rebook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	key, ok := h.idempotencyKey(w, r, "Rebook")
	if !ok {
		return
	}

	var req model.RebookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Rebook", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	booking, err := h.service.Rebook(r.Context(), ps.ByName("id"), &req, key)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Rebook", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Rebook", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	var updates model.BookingUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Update", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	booking, err := h.service.Update(r.Context(), id, &updates)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Update", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	deleted, err := h.service.Delete(r.Context(), id)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Delete", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if !deleted {
		if writeErr := httputil.WriteError(w, apperrors.NotFoundWithID("Booking", id)); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Delete", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

// idempotencyKey extracts and validates the Idempotency-Key header. A
// missing or malformed key rejects the request before any work happens.
func (h *BookingHandler) idempotencyKey(w http.ResponseWriter, r *http.Request, handlerName string) (uuid.UUID, bool) {
	raw := r.Header.Get(IdempotencyKeyHeader)
	if raw == "" {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("The Idempotency-Key header is required")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", handlerName, "operation", "WriteError", "error", writeErr)
		}
		return uuid.Nil, false
	}

	key, err := uuid.Parse(raw)
	if err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("The Idempotency-Key header must be a valid UUID")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", handlerName, "operation", "WriteError", "error", writeErr)
		}
		return uuid.Nil, false
	}

	return key, true
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/v1/bookings", h.Create)
	router.GET("/v1/bookings/:id", h.GetByID)
	router.PATCH("/v1/bookings/:id", h.Update)
	router.DELETE("/v1/bookings/:id", h.Delete)
	router.POST("/v1/bookings/:id/cancel", h.Cancel)
	router.POST("/v1/bookings/:id/rebook", h.Rebook)
}
