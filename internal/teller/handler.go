package teller

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/apache/fineract-cn-teller-sub000/internal/platform/httpx"
)

// Handler exposes the teller lifecycle commands over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the teller handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// Routes mounts the teller endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/tellers", h.Create)
	r.Get("/tellers", h.List)
	r.Route("/tellers/{code}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Change)
		r.Delete("/", h.Delete)
		r.Post("/commands", h.Command)
		r.Post("/drawer", h.UnlockDrawer)
		r.Post("/denominations", h.SaveDenomination)
		r.Get("/denominations", h.ListDenominations)
	})
}

type tellerPayload struct {
	Code                     string          `json:"code" validate:"required"`
	OfficeIdentifier         string          `json:"officeIdentifier" validate:"required"`
	Password                 string          `json:"password"`
	CashdrawLimit            decimal.Decimal `json:"cashdrawLimit"`
	TellerAccount            string          `json:"tellerAccountIdentifier" validate:"required"`
	VaultAccount             string          `json:"vaultAccountIdentifier" validate:"required"`
	ChequesReceivableAccount string          `json:"chequesReceivableAccount" validate:"required"`
	CashOverShortAccount     string          `json:"cashOverShortAccount" validate:"required"`
	DenominationRequired     bool            `json:"denominationRequired"`
}

type tellerResponse struct {
	Code                     string     `json:"code"`
	OfficeIdentifier         string     `json:"officeIdentifier"`
	CashdrawLimit            string     `json:"cashdrawLimit"`
	TellerAccount            string     `json:"tellerAccountIdentifier"`
	VaultAccount             string     `json:"vaultAccountIdentifier"`
	ChequesReceivableAccount string     `json:"chequesReceivableAccount"`
	CashOverShortAccount     string     `json:"cashOverShortAccount"`
	DenominationRequired     bool       `json:"denominationRequired"`
	AssignedEmployee         *string    `json:"assignedEmployeeIdentifier,omitempty"`
	State                    string     `json:"state"`
	CreatedBy                string     `json:"createdBy"`
	CreatedOn                time.Time  `json:"createdOn"`
	LastOpenedBy             *string    `json:"lastOpenedBy,omitempty"`
	LastOpenedOn             *time.Time `json:"lastOpenedOn,omitempty"`
}

func toTellerResponse(t Teller) tellerResponse {
	return tellerResponse{
		Code:                     t.Code,
		OfficeIdentifier:         t.OfficeID,
		CashdrawLimit:            t.CashdrawLimit.String(),
		TellerAccount:            t.TellerAccount,
		VaultAccount:             t.VaultAccount,
		ChequesReceivableAccount: t.ChequesReceivableAccount,
		CashOverShortAccount:     t.CashOverShortAccount,
		DenominationRequired:     t.DenominationRequired,
		AssignedEmployee:         t.AssignedEmployee,
		State:                    string(t.State),
		CreatedBy:                t.CreatedBy,
		CreatedOn:                t.CreatedOn,
		LastOpenedBy:             t.LastOpenedBy,
		LastOpenedOn:             t.LastOpenedOn,
	}
}

// Create handles POST /tellers.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var payload tellerPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	created, err := h.service.Create(r.Context(), CreateInput{
		Code:                     payload.Code,
		OfficeID:                 payload.OfficeIdentifier,
		Password:                 payload.Password,
		CashdrawLimit:            payload.CashdrawLimit,
		TellerAccount:            payload.TellerAccount,
		VaultAccount:             payload.VaultAccount,
		ChequesReceivableAccount: payload.ChequesReceivableAccount,
		CashOverShortAccount:     payload.CashOverShortAccount,
		DenominationRequired:     payload.DenominationRequired,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toTellerResponse(created))
}

// List handles GET /tellers?officeId=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	officeID := r.URL.Query().Get("officeId")
	if officeID == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "officeId query parameter required")
		return
	}
	tellers, err := h.service.FindByOffice(r.Context(), officeID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	responses := make([]tellerResponse, 0, len(tellers))
	for _, t := range tellers {
		responses = append(responses, toTellerResponse(t))
	}
	httpx.JSON(w, http.StatusOK, responses)
}

// Get handles GET /tellers/{code}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.Find(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toTellerResponse(t))
}

// Change handles PUT /tellers/{code}.
func (h *Handler) Change(w http.ResponseWriter, r *http.Request) {
	var payload tellerPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	changed, err := h.service.Change(r.Context(), chi.URLParam(r, "code"), ChangeInput{
		CashdrawLimit:            payload.CashdrawLimit,
		TellerAccount:            payload.TellerAccount,
		VaultAccount:             payload.VaultAccount,
		ChequesReceivableAccount: payload.ChequesReceivableAccount,
		CashOverShortAccount:     payload.CashOverShortAccount,
		DenominationRequired:     payload.DenominationRequired,
		Password:                 payload.Password,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toTellerResponse(changed))
}

// Delete handles DELETE /tellers/{code}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "code")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type commandPayload struct {
	Action             string          `json:"action" validate:"required,oneof=OPEN CLOSE PAUSE"`
	EmployeeIdentifier string          `json:"employeeIdentifier"`
	Adjustment         string          `json:"cashdrawerAdjustment"`
	Amount             decimal.Decimal `json:"amount"`
}

// Command handles POST /tellers/{code}/commands with OPEN, CLOSE and PAUSE actions.
func (h *Handler) Command(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	var payload commandPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	adjustment, err := ParseAdjustment(payload.Adjustment)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	var result Teller
	switch payload.Action {
	case "OPEN":
		result, err = h.service.Open(r.Context(), code, payload.EmployeeIdentifier, adjustment, payload.Amount)
	case "CLOSE":
		result, err = h.service.Close(r.Context(), code, adjustment, payload.Amount)
	case "PAUSE":
		result, err = h.service.Pause(r.Context(), code, payload.EmployeeIdentifier)
	}
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, toTellerResponse(result))
}

type unlockPayload struct {
	EmployeeIdentifier string `json:"employeeIdentifier" validate:"required"`
	Password           string `json:"password" validate:"required"`
}

// UnlockDrawer handles POST /tellers/{code}/drawer.
func (h *Handler) UnlockDrawer(w http.ResponseWriter, r *http.Request) {
	var payload unlockPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	t, err := h.service.UnlockDrawer(r.Context(), chi.URLParam(r, "code"), payload.EmployeeIdentifier, payload.Password)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toTellerResponse(t))
}

type denominationPayload struct {
	CountedTotal decimal.Decimal `json:"countedTotal"`
	Note         string          `json:"note"`
}

type denominationResponse struct {
	Identifier              string    `json:"identifier"`
	CountedTotal            string    `json:"countedTotal"`
	Note                    string    `json:"note,omitempty"`
	AdjustingJournalEntryID *string   `json:"adjustingJournalEntry,omitempty"`
	CreatedBy               string    `json:"createdBy"`
	CreatedOn               time.Time `json:"createdOn"`
}

func toDenominationResponse(d Denomination) denominationResponse {
	return denominationResponse{
		Identifier:              d.ID,
		CountedTotal:            d.CountedTotal.String(),
		Note:                    d.Note,
		AdjustingJournalEntryID: d.AdjustingJournalEntryID,
		CreatedBy:               d.CreatedBy,
		CreatedOn:               d.CreatedOn,
	}
}

// SaveDenomination handles POST /tellers/{code}/denominations.
func (h *Handler) SaveDenomination(w http.ResponseWriter, r *http.Request) {
	var payload denominationPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if payload.CountedTotal.IsNegative() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "countedTotal must not be negative")
		return
	}
	d, err := h.service.SaveDenomination(r.Context(), chi.URLParam(r, "code"), payload.CountedTotal, payload.Note)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toDenominationResponse(d))
}

// ListDenominations handles GET /tellers/{code}/denominations.
func (h *Handler) ListDenominations(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("size"))
	denominations, total, err := h.service.Denominations(r.Context(), chi.URLParam(r, "code"), page, perPage)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	responses := make([]denominationResponse, 0, len(denominations))
	for _, d := range denominations {
		responses = append(responses, toDenominationResponse(d))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"denominations": responses,
		"total":         total,
	})
}
