package balancesheet

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/apache/fineract-cn-teller-sub000/internal/platform/httpx"
)

// Handler exposes the balance sheet report over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the balance sheet handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// Routes mounts the balance sheet endpoint.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/tellers/{code}/balancesheet", h.Get)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	report, err := h.service.Build(r.Context(), code)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}
