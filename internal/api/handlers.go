/**
 * @description
 * This file contains the HTTP handlers for the transfer-service's API endpoints.
 * Handlers are responsible for parsing incoming requests, calling the appropriate
 * methods on the application service, and writing the HTTP response. They act as the
 * bridge between the web layer and the business logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/zimpay/transfer-service/internal/app"
	"github.com/zimpay/transfer-service/internal/domain"
)

// TransferHandlers holds the application service that handlers will use.
type TransferHandlers struct {
	service *app.Service
}

// NewTransferHandlers creates the handler set for the transfer API.
func NewTransferHandlers(service *app.Service) *TransferHandlers {
	return &TransferHandlers{service: service}
}

// recipientResponse is the shape returned for a resolved recipient. Balances
// belong to their owners and are never exposed here.
type recipientResponse struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	FullName     string `json:"full_name"`
	IsZimAccount bool   `json:"is_zim_account"`
}

// transferRequest is the DTO for incoming transfer API requests. Recipient
// carries the raw search input; the service resolves it the same way the
// interactive workflow does.
type transferRequest struct {
	Recipient   string `json:"recipient"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

// transferResponse is sent back after a completed transfer.
type transferResponse struct {
	TransactionID string            `json:"transaction_id"`
	Status        string            `json:"status"`
	Amount        string            `json:"amount"`
	AmountDisplay string            `json:"amount_display"`
	Recipient     recipientResponse `json:"recipient"`
	Description   *string           `json:"description,omitempty"`
}

func buildRecipientResponse(r *domain.Recipient) recipientResponse {
	return recipientResponse{
		ID:           r.ID.String(),
		Username:     r.Username,
		FullName:     r.FullName,
		IsZimAccount: r.IsZimAccount,
	}
}

// ResolveRecipientHandler handles GET /recipients/resolve?q=...
func (h *TransferHandlers) ResolveRecipientHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}

	if limited, retryAfter := h.service.ConsumeSearchRateLimit(r.Context(), userID); limited {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		h.writeError(w, http.StatusTooManyRequests, "Too many searches, slow down.")
		return
	}

	recipient, err := h.service.ResolveRecipient(r.Context(), r.URL.Query().Get("q"), userID)
	if err != nil {
		h.writeResolutionError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, buildRecipientResponse(recipient))
}

// TransferHandler handles POST /transfers.
func (h *TransferHandlers) TransferHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sender, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		log.Printf("level=error component=api msg=\"sender profile load failed\" user_id=%s err=%v", userID, err)
		h.writeError(w, http.StatusBadGateway, "Could not load your profile")
		return
	}

	recipient, err := h.service.ResolveRecipient(r.Context(), req.Recipient, userID)
	if err != nil {
		h.writeResolutionError(w, err)
		return
	}

	amount, err := h.service.ValidateAmount(req.Amount, sender.Balance)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.service.ValidateNote(req.Description); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := h.service.ExecuteTransfer(r.Context(), sender, recipient, amount, req.Description)
	if err != nil {
		h.writeTransferError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, transferResponse{
		TransactionID: tx.ID.String(),
		Status:        tx.Status,
		Amount:        tx.Amount.StringFixed(2),
		AmountDisplay: domain.FormatUSD(tx.Amount),
		Recipient:     buildRecipientResponse(recipient),
		Description:   tx.Description,
	})
}

// MeHandler handles GET /profiles/me.
func (h *TransferHandlers) MeHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}

	profile, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		log.Printf("level=error component=api msg=\"profile load failed\" user_id=%s err=%v", userID, err)
		h.writeError(w, http.StatusBadGateway, "Could not load your profile")
		return
	}

	h.writeJSON(w, http.StatusOK, profile)
}

// ListTransactionsHandler handles GET /transactions.
func (h *TransferHandlers) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	transactions, err := h.service.ListTransactions(r.Context(), userID, limit)
	if err != nil {
		log.Printf("level=error component=api msg=\"transaction list failed\" user_id=%s err=%v", userID, err)
		h.writeError(w, http.StatusBadGateway, "Could not load transactions")
		return
	}

	h.writeJSON(w, http.StatusOK, transactions)
}

// writeResolutionError maps resolution failures onto HTTP statuses. Typed
// errors carry extra payload (suggestions) into the body.
func (h *TransferHandlers) writeResolutionError(w http.ResponseWriter, err error) {
	var notFound *domain.NotFoundError
	var invalid *domain.InvalidFormatError
	var ambiguous *domain.AmbiguousError

	switch {
	case errors.As(err, &ambiguous):
		h.writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"error":       ambiguous.Error(),
			"suggestions": ambiguous.Suggestions,
		})
	case errors.As(err, &notFound):
		h.writeError(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &invalid),
		errors.Is(err, domain.ErrSearchTooShort),
		errors.Is(err, domain.ErrSelfTransfer):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrSearchTimeout):
		h.writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		log.Printf("level=error component=api msg=\"recipient resolution failed\" err=%v", err)
		h.writeError(w, http.StatusBadGateway, domain.ErrBackend.Error())
	}
}

// writeTransferError maps execution failures onto HTTP statuses.
func (h *TransferHandlers) writeTransferError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInsufficientBalance):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrTransferFailedUnrestored):
		log.Printf("level=error component=api msg=\"transfer left unrestored balance\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
	case errors.Is(err, domain.ErrTransferFailedRestored),
		errors.Is(err, domain.ErrTransferFailed):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		log.Printf("level=error component=api msg=\"transfer failed\" err=%v", err)
		h.writeError(w, http.StatusBadGateway, domain.ErrBackend.Error())
	}
}

func (h *TransferHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func (h *TransferHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
