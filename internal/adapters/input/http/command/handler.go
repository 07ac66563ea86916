package command

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"product-catalog/internal/domain/product"
	"product-catalog/pkg/logattr"

	"github.com/google/uuid"
)

// Handler exposes the command API. Status mapping: 201 on creation,
// 400 on validation or state-transition failures, 404 on unknown
// products, 409 when another writer already created the id.
type Handler struct {
	dispatcher *product.Dispatcher
	logger     *slog.Logger
}

func NewHandler(dispatcher *product.Dispatcher, logger *slog.Logger) *Handler {
	return &Handler{dispatcher: dispatcher, logger: logger}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /products/add/{id}", h.AddProduct)
	mux.HandleFunc("POST /products/saleable/{id}", h.MarkProductAsSaleable)
	mux.HandleFunc("POST /products/unsaleable/{id}", h.MarkProductAsUnsaleable)
	// an empty id segment must reach validation instead of being a routing miss
	mux.HandleFunc("POST /products/add/{$}", h.AddProduct)
	mux.HandleFunc("POST /products/saleable/{$}", h.MarkProductAsSaleable)
	mux.HandleFunc("POST /products/unsaleable/{$}", h.MarkProductAsUnsaleable)
}

func (h *Handler) AddProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	name := r.URL.Query().Get("name")

	err := h.dispatcher.Dispatch(r.Context(), product.AddProduct{
		Id:            id,
		Name:          name,
		CorrelationId: uuid.NewString(),
	})
	if err != nil {
		var validationErr product.ValidationError
		switch {
		case errors.As(err, &validationErr):
			h.logger.Warn("add product request failed, empty params", logattr.ProductId(id), logattr.ProductName(name))
			writeError(w, http.StatusBadRequest, err)
		case errors.Is(err, product.ErrDuplicateIdentity):
			h.logger.Warn("a product with the same id already exists", logattr.ProductId(id))
			writeError(w, http.StatusConflict, err)
		default:
			h.logger.Warn("add product command failed", logattr.ProductId(id), logattr.Error(err.Error()))
			writeError(w, http.StatusBadRequest, err)
		}
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) MarkProductAsSaleable(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := h.dispatcher.Dispatch(r.Context(), product.MarkProductAsSaleable{
		Id:            id,
		CorrelationId: uuid.NewString(),
	})
	h.writeTransitionResult(w, id, err)
}

func (h *Handler) MarkProductAsUnsaleable(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := h.dispatcher.Dispatch(r.Context(), product.MarkProductAsUnsaleable{
		Id:            id,
		CorrelationId: uuid.NewString(),
	})
	h.writeTransitionResult(w, id, err)
}

func (h *Handler) writeTransitionResult(w http.ResponseWriter, id string, err error) {
	if err == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	var validationErr product.ValidationError
	var transitionErr product.InvalidStateTransitionError
	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, product.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.As(err, &transitionErr):
		h.logger.Warn("invalid state transition", logattr.ProductId(id), logattr.Error(err.Error()))
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, product.ErrConcurrencyConflict):
		writeError(w, http.StatusConflict, err)
	default:
		h.logger.Error("command execution failed", logattr.ProductId(id), logattr.Error(err.Error()))
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeError(w http.ResponseWriter, statusCode int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
