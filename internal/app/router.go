package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/apache/fineract-cn-teller-sub000/internal/balancesheet"
	"github.com/apache/fineract-cn-teller-sub000/internal/platform/httpx"
	"github.com/apache/fineract-cn-teller-sub000/internal/teller"
	"github.com/apache/fineract-cn-teller-sub000/internal/transaction"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger              *slog.Logger
	Config              *Config
	TellerHandler       *teller.Handler
	TransactionHandler  *transaction.Handler
	BalanceSheetHandler *balancesheet.Handler
	Pool                *pgxpool.Pool
}

// NewRouter constructs the chi.Router with teller service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if params.Pool != nil {
			if err := params.Pool.Ping(req.Context()); err != nil {
				httpx.Problem(w, http.StatusServiceUnavailable, "Unhealthy", "database unreachable")
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		params.TellerHandler.Routes(r)
		params.TransactionHandler.Routes(r)
		params.BalanceSheetHandler.Routes(r)
	})

	return r
}
