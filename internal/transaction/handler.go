package transaction

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/apache/fineract-cn-teller-sub000/internal/platform/httpx"
)

// Handler exposes teller transactions over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the transaction handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// Routes mounts the transaction endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/tellers/{code}/transactions", func(r chi.Router) {
		r.Post("/", h.Initialize)
		r.Get("/", h.List)
		r.Post("/{transactionId}", h.Command)
	})
}

type chequePayload struct {
	ChequeNumber   string          `json:"chequeNumber" validate:"required"`
	BranchSortCode string          `json:"branchSortCode" validate:"required"`
	AccountNumber  string          `json:"accountNumber" validate:"required"`
	Drawee         string          `json:"drawee"`
	Drawer         string          `json:"drawer"`
	Payee          string          `json:"payee"`
	Amount         decimal.Decimal `json:"amount"`
	DateIssued     string          `json:"dateIssued" validate:"required"`
}

type initializePayload struct {
	Kind              string          `json:"transactionType" validate:"required"`
	TransactionDate   *time.Time      `json:"transactionDate"`
	CustomerID        string          `json:"customerIdentifier"`
	ProductIdentifier string          `json:"productIdentifier"`
	ProductCaseID     string          `json:"productCaseIdentifier"`
	CustomerAccount   string          `json:"customerAccountIdentifier" validate:"required"`
	TargetAccount     *string         `json:"targetAccountIdentifier"`
	Clerk             string          `json:"clerk"`
	Amount            decimal.Decimal `json:"amount"`
	Cheque            *chequePayload  `json:"cheque"`
}

type chargeResponse struct {
	Code          string `json:"code"`
	Name          string `json:"name"`
	IncomeAccount string `json:"incomeAccountIdentifier"`
	Amount        string `json:"amount"`
}

type costsResponse struct {
	TransactionIdentifier string           `json:"tellerTransactionIdentifier"`
	TotalAmount           string           `json:"totalAmount"`
	Charges               []chargeResponse `json:"charges"`
}

func toCostsResponse(costs Costs) costsResponse {
	response := costsResponse{
		TransactionIdentifier: costs.TransactionID,
		TotalAmount:           costs.TotalAmount.String(),
		Charges:               make([]chargeResponse, 0, len(costs.Charges)),
	}
	for _, charge := range costs.Charges {
		response.Charges = append(response.Charges, chargeResponse{
			Code:          charge.Code,
			Name:          charge.Name,
			IncomeAccount: charge.IncomeAccount,
			Amount:        charge.Amount.String(),
		})
	}
	return response
}

// Initialize handles POST /tellers/{code}/transactions.
func (h *Handler) Initialize(w http.ResponseWriter, r *http.Request) {
	var payload initializePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	kind, err := ParseKind(payload.Kind)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	in := InitializeInput{
		Kind:              kind,
		CustomerID:        payload.CustomerID,
		ProductIdentifier: payload.ProductIdentifier,
		ProductCaseID:     payload.ProductCaseID,
		CustomerAccount:   payload.CustomerAccount,
		TargetAccount:     payload.TargetAccount,
		Clerk:             payload.Clerk,
		Amount:            payload.Amount,
	}
	if payload.TransactionDate != nil {
		in.TransactionDate = *payload.TransactionDate
	}
	if payload.Cheque != nil {
		issued, err := time.Parse("2006-01-02", payload.Cheque.DateIssued)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "cheque dateIssued must be YYYY-MM-DD")
			return
		}
		in.Cheque = &ChequeInput{
			ChequeNumber:   payload.Cheque.ChequeNumber,
			BranchSortCode: payload.Cheque.BranchSortCode,
			AccountNumber:  payload.Cheque.AccountNumber,
			Drawee:         payload.Cheque.Drawee,
			Drawer:         payload.Cheque.Drawer,
			Payee:          payload.Cheque.Payee,
			Amount:         payload.Cheque.Amount,
			DateIssued:     issued,
		}
	}

	costs, err := h.service.Initialize(r.Context(), chi.URLParam(r, "code"), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toCostsResponse(costs))
}

type commandPayload struct {
	Command         string `json:"command" validate:"required,oneof=CONFIRM CANCEL"`
	ChargesIncluded *bool  `json:"chargesIncluded"`
}

// Command handles POST /tellers/{code}/transactions/{transactionId}.
func (h *Handler) Command(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	transactionID := chi.URLParam(r, "transactionId")
	var payload commandPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	var err error
	switch payload.Command {
	case "CONFIRM":
		// Fees come out of the teller drawer by default.
		chargesIncluded := true
		if payload.ChargesIncluded != nil {
			chargesIncluded = *payload.ChargesIncluded
		}
		err = h.service.Confirm(r.Context(), code, transactionID, chargesIncluded)
	case "CANCEL":
		err = h.service.Cancel(r.Context(), code, transactionID)
	}
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type transactionResponse struct {
	Identifier        string    `json:"identifier"`
	Kind              string    `json:"transactionType"`
	TransactionDate   time.Time `json:"transactionDate"`
	CustomerID        string    `json:"customerIdentifier,omitempty"`
	ProductIdentifier string    `json:"productIdentifier,omitempty"`
	CustomerAccount   string    `json:"customerAccountIdentifier"`
	TargetAccount     *string   `json:"targetAccountIdentifier,omitempty"`
	Clerk             string    `json:"clerk,omitempty"`
	Amount            string    `json:"amount"`
	State             string    `json:"state"`
}

// List handles GET /tellers/{code}/transactions?state=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var state State
	if value := r.URL.Query().Get("state"); value != "" {
		switch State(value) {
		case StatePending, StateConfirmed, StateCanceled:
			state = State(value)
		default:
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown state filter")
			return
		}
	}
	transactions, err := h.service.List(r.Context(), chi.URLParam(r, "code"), state)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	responses := make([]transactionResponse, 0, len(transactions))
	for _, tx := range transactions {
		responses = append(responses, transactionResponse{
			Identifier:        tx.ID,
			Kind:              string(tx.Kind),
			TransactionDate:   tx.TransactionDate,
			CustomerID:        tx.CustomerID,
			ProductIdentifier: tx.ProductIdentifier,
			CustomerAccount:   tx.CustomerAccount,
			TargetAccount:     tx.TargetAccount,
			Clerk:             tx.Clerk,
			Amount:            tx.Amount.String(),
			State:             string(tx.State),
		})
	}
	httpx.JSON(w, http.StatusOK, responses)
}
