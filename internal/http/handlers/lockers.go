package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lockerhub/server/internal/lifecycle"
	"github.com/lockerhub/server/internal/model"
)

// LockerHandler serves locker reads and the receiver-facing collection flow
type LockerHandler struct {
	svc *lifecycle.Service
	log *zap.Logger
}

func NewLockerHandler(svc *lifecycle.Service, log *zap.Logger) *LockerHandler {
	return &LockerHandler{svc: svc, log: log.Named("http.lockers")}
}

// HandleList handles GET /lockers?available=true
func (h *LockerHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	availableOnly := false
	if v := r.URL.Query().Get("available"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid_input", "available must be a boolean")
			return
		}
		availableOnly = b
	}

	lockers, err := h.svc.ListLockers(r.Context(), availableOnly)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string][]model.Locker{"lockers": lockers})
}

// HandleGet handles GET /lockers/{lockerID}
func (h *LockerHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := lockerIDParam(w, r)
	if !ok {
		return
	}
	locker, err := h.svc.GetLocker(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, locker)
}

type requestOtpRequest struct {
	Contact string `json:"contact"`
}

type requestOtpResponse struct {
	Message   string    `json:"message"`
	ItemID    uuid.UUID `json:"item_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HandleRequestOtp handles POST /lockers/{lockerID}/request-otp
func (h *LockerHandler) HandleRequestOtp(w http.ResponseWriter, r *http.Request) {
	id, ok := lockerIDParam(w, r)
	if !ok {
		return
	}
	var req requestOtpRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.svc.RequestOtp(r.Context(), lifecycle.RequestOtpInput{LockerID: id, Contact: req.Contact})
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusAccepted, requestOtpResponse{
		Message:   "OTP sent",
		ItemID:    res.ItemID,
		ExpiresAt: res.ExpiresAt,
	})
}

type collectRequest struct {
	Otp string `json:"otp"`
}

type collectResponse struct {
	Locker      model.Locker      `json:"locker"`
	Item        model.Item        `json:"item"`
	Transaction model.Transaction `json:"transaction"`
}

// HandleCollect handles POST /lockers/{lockerID}/collect
func (h *LockerHandler) HandleCollect(w http.ResponseWriter, r *http.Request) {
	id, ok := lockerIDParam(w, r)
	if !ok {
		return
	}
	var req collectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.svc.Collect(r.Context(), lifecycle.CollectInput{LockerID: id, Otp: req.Otp})
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, collectResponse{Locker: res.Locker, Item: res.Item, Transaction: res.Transaction})
}
