package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lockerhub/server/internal/lifecycle"
	"github.com/lockerhub/server/internal/middleware"
	"github.com/lockerhub/server/internal/model"
)

// ItemHandler serves the sender-facing deposit flow and history
type ItemHandler struct {
	svc *lifecycle.Service
	log *zap.Logger
}

func NewItemHandler(svc *lifecycle.Service, log *zap.Logger) *ItemHandler {
	return &ItemHandler{svc: svc, log: log.Named("http.items")}
}

// depositRequest is the request body for POST /items
type depositRequest struct {
	LockerID      uuid.UUID    `json:"locker_id"`
	Name          string       `json:"name"`
	Description   *string      `json:"description"`
	SenderEmail   string       `json:"sender_email"`
	SenderPhone   *string      `json:"sender_phone"`
	ReceiverPhone *string      `json:"receiver_phone"`
	ReceiverEmail *string      `json:"receiver_email"`
	RatePerHour   *model.Money `json:"rate_per_hour"`
}

type depositResponse struct {
	Locker      model.Locker      `json:"locker"`
	Item        model.Item        `json:"item"`
	Transaction model.Transaction `json:"transaction"`
}

// HandleDeposit handles POST /items
func (h *ItemHandler) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.svc.Deposit(r.Context(), lifecycle.DepositInput{
		LockerID:      req.LockerID,
		Name:          req.Name,
		Description:   req.Description,
		SenderEmail:   req.SenderEmail,
		SenderPhone:   req.SenderPhone,
		ReceiverPhone: req.ReceiverPhone,
		ReceiverEmail: req.ReceiverEmail,
		RatePerHour:   req.RatePerHour,
		Privileged:    middleware.IsPrivileged(r.Context()),
	})
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, depositResponse{Locker: res.Locker, Item: res.Item, Transaction: res.Transaction})
}

// HandleHistory handles GET /items?sender_email=
func (h *ItemHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	in := lifecycle.ItemHistoryInput{
		SenderEmail: r.URL.Query().Get("sender_email"),
		Privileged:  middleware.IsPrivileged(r.Context()),
	}
	if claims, ok := middleware.GetClaims(r.Context()); ok {
		in.Requester = claims.Subject
	}
	records, err := h.svc.ItemHistory(r.Context(), in)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string][]model.ItemRecord{"items": records})
}
