package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lockerhub/server/internal/lifecycle"
	"github.com/lockerhub/server/internal/middleware"
	"github.com/lockerhub/server/internal/model"
)

// AdminHandler serves operator intents. Privilege is derived from the token role
// and enforced by the lifecycle service.
type AdminHandler struct {
	svc *lifecycle.Service
	log *zap.Logger
}

func NewAdminHandler(svc *lifecycle.Service, log *zap.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, log: log.Named("http.admin")}
}

type provisionRequest struct {
	Name          string     `json:"name"`
	LockerPointID *uuid.UUID `json:"locker_point_id"`
}

// HandleProvision handles POST /admin/lockers
func (h *AdminHandler) HandleProvision(w http.ResponseWriter, r *http.Request) {
	var req provisionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	locker, err := h.svc.ProvisionLocker(r.Context(), lifecycle.ProvisionLockerInput{
		Name:          req.Name,
		LockerPointID: req.LockerPointID,
		Privileged:    middleware.IsPrivileged(r.Context()),
	})
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, locker)
}

type maintenanceRequest struct {
	Enabled *bool `json:"enabled"`
}

// HandleMaintenance handles PUT /admin/lockers/{lockerID}/maintenance
func (h *AdminHandler) HandleMaintenance(w http.ResponseWriter, r *http.Request) {
	id, ok := lockerIDParam(w, r)
	if !ok {
		return
	}
	var req maintenanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Enabled == nil {
		respondWithError(w, http.StatusBadRequest, "invalid_input", "enabled is required")
		return
	}

	locker, err := h.svc.SetMaintenance(r.Context(), id, *req.Enabled, middleware.IsPrivileged(r.Context()))
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, locker)
}

type forceClearResponse struct {
	Locker      model.Locker      `json:"locker"`
	Item        model.Item        `json:"item"`
	Transaction model.Transaction `json:"transaction"`
}

// HandleForceClear handles DELETE /admin/lockers/{lockerID}/force-clear
func (h *AdminHandler) HandleForceClear(w http.ResponseWriter, r *http.Request) {
	id, ok := lockerIDParam(w, r)
	if !ok {
		return
	}
	in := lifecycle.ForceClearInput{LockerID: id, Privileged: middleware.IsPrivileged(r.Context())}
	if claims, ok := middleware.GetClaims(r.Context()); ok {
		in.Actor = claims.Subject
	}

	res, err := h.svc.ForceClear(r.Context(), in)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, forceClearResponse{Locker: res.Locker, Item: res.Item, Transaction: res.Transaction})
}
