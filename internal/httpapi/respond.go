package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// ErrorResponse — единый формат ошибок API.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

func respondErrorDetails(w http.ResponseWriter, status int, code, message string, details interface{}) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code, Details: details})
}

// respondDomainError транслирует доменные ошибки в HTTP-статусы.
func respondDomainError(w http.ResponseWriter, err error) {
	var rejection *domain.SettlementRejection
	if errors.As(err, &rejection) {
		respondErrorDetails(w, http.StatusConflict, "checkout_rejected", rejection.Error(), rejection.Diagnostics)
		return
	}

	switch {
	case errors.Is(err, domain.ErrStockExceeded):
		respondError(w, http.StatusConflict, "stock_exceeded", err.Error())
	case errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrCartNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrLineQtyInvalid),
		errors.Is(err, domain.ErrCustomerIncomplete),
		errors.Is(err, domain.ErrOrderLinesRequired):
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, domain.ErrPaymentDeclined):
		respondError(w, http.StatusPaymentRequired, "payment_declined", err.Error())
	case errors.Is(err, domain.ErrMergeAlreadyDone):
		respondError(w, http.StatusConflict, "merge_already_done", err.Error())
	case errors.Is(err, domain.ErrSettlementPartial):
		respondError(w, http.StatusInternalServerError, "settlement_partial", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
