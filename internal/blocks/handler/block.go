package handler

import (
	"encoding/json"
	"net/http"

	"staybook/internal/blocks/service"
	apperrors "staybook/pkg/errors"
	httputil "staybook/pkg/http"
	"staybook/pkg/logger"
	"staybook/pkg/model"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type BlockHandler struct {
	service service.BlockService
	log     *logger.Logger
}

func NewBlockHandler(service service.BlockService, log *logger.Logger) *BlockHandler {
	return &BlockHandler{
		service: service,
		log:     log,
	}
}

func (h *BlockHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	raw := r.Header.Get(IdempotencyKeyHeader)
	if raw == "" {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("The Idempotency-Key header is required")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "operation", "WriteError", "error", writeErr)
		}
		return
	}
	key, err := uuid.Parse(raw)
	if err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("The Idempotency-Key header must be a valid UUID")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	var req model.BlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Create", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	block, err := h.service.Create(r.Context(), &req, key)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, block); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BlockHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	block, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, block); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BlockHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	var req model.BlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Update", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	block, err := h.service.Update(r.Context(), id, &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Update", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, block); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BlockHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	deleted, err := h.service.Delete(r.Context(), id)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Delete", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if !deleted {
		if writeErr := httputil.WriteError(w, apperrors.NotFoundWithID("Block", id)); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Delete", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *BlockHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/v1/blocks", h.Create)
	router.GET("/v1/blocks/:id", h.GetByID)
	router.PUT("/v1/blocks/:id", h.Update)
	router.DELETE("/v1/blocks/:id", h.Delete)
}
