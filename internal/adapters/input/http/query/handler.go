package query

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"product-catalog/internal/domain/view"
	"product-catalog/pkg/logattr"

	"github.com/walletera/werrors"
)

type ProductJSON struct {
	Id       string `json:"id"`
	Name     string `json:"name"`
	Saleable bool   `json:"saleable"`
}

type ListProductsJSON struct {
	Items []ProductJSON `json:"items"`
	Total uint64        `json:"total"`
}

type Handler struct {
	repository view.Repository
	replayer   *view.Replayer
	logger     *slog.Logger
}

func NewHandler(repository view.Repository, replayer *view.Replayer, logger *slog.Logger) *Handler {
	return &Handler{repository: repository, replayer: replayer, logger: logger}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /products", h.ListProducts)
	mux.HandleFunc("GET /products/{id}", h.GetProduct)
	mux.HandleFunc("POST /products/replay", h.ReplayProducts)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	product, werr := h.repository.GetProduct(r.Context(), id)
	if werr != nil {
		switch werr.Code() {
		case werrors.ResourceNotFoundErrorCode:
			w.WriteHeader(http.StatusNotFound)
		default:
			h.logger.Error(
				"failed getting product",
				logattr.Error(werr.Message()),
				logattr.ProductId(id),
			)
			w.WriteHeader(http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, ProductJSON{
		Id:       product.Id,
		Name:     product.Name,
		Saleable: product.Saleable,
	})
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	result, werr := h.repository.SearchProducts(r.Context(), filter)
	if werr != nil {
		h.logger.Error("failed listing products", logattr.Error(werr.Message()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	items := make([]ProductJSON, 0)
	for {
		ok, product, err := result.Iterator.Next()
		if err != nil {
			h.logger.Error("failed listing products", logattr.Error(err.Error()))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if !ok {
			break
		}
		items = append(items, ProductJSON{
			Id:       product.Id,
			Name:     product.Name,
			Saleable: product.Saleable,
		})
	}

	writeJSON(w, http.StatusOK, ListProductsJSON{
		Items: items,
		Total: result.Total,
	})
}

// ReplayProducts triggers a full read-store rebuild. The replay runs
// detached from the request; its outcome lands in the replayer state
// and the logs.
func (h *Handler) ReplayProducts(w http.ResponseWriter, r *http.Request) {
	if h.replayer.State() == view.ReplayInProgress {
		w.WriteHeader(http.StatusConflict)
		return
	}

	replayCtx := context.WithoutCancel(r.Context())
	go func() {
		err := h.replayer.Replay(replayCtx)
		if err != nil && !errors.Is(err, view.ErrReplayInProgress) {
			h.logger.Error("replay failed", logattr.Error(err.Error()))
		}
	}()

	w.WriteHeader(http.StatusAccepted)
}

func parseListFilter(r *http.Request) (view.ListFilter, error) {
	var filter view.ListFilter

	if saleableParam := r.URL.Query().Get("saleable"); saleableParam != "" {
		saleable, err := strconv.ParseBool(saleableParam)
		if err != nil {
			return view.ListFilter{}, err
		}
		filter.Saleable = &saleable
	}
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		limit, err := strconv.ParseInt(limitParam, 10, 64)
		if err != nil {
			return view.ListFilter{}, err
		}
		filter.Limit = limit
	}
	if offsetParam := r.URL.Query().Get("offset"); offsetParam != "" {
		offset, err := strconv.ParseInt(offsetParam, 10, 64)
		if err != nil {
			return view.ListFilter{}, err
		}
		filter.Offset = offset
	}

	return filter, nil
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}
