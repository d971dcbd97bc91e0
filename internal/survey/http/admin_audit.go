package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/aussiebroadwan/alimatrix/internal/survey/audit"
	"github.com/aussiebroadwan/alimatrix/pkg/httpx"
	"github.com/aussiebroadwan/alimatrix/pkg/slogx"
	"github.com/aussiebroadwan/alimatrix/pkg/surveysdk"
)

// maxQueryDays bounds the days parameter of admin queries.
const maxQueryDays = 3650

type AdminAuditHandler struct {
	Audit *audit.Logger
}

// parseDays reads the optional days parameter. Zero selects the default.
func parseDays(r *http.Request) (int, bool) {
	v := r.URL.Query().Get("days")
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > maxQueryDays {
		return 0, false
	}
	return n, true
}

// HandleTrail godoc
//
//	@Summary		Audit Trail
//	@Description	Lists every audit record whose resource or submission id matches, newest first.
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			resourceID	path		string							true	"Resource or submission id"
//	@Success		200			{object}	surveysdk.AuditTrailResponse	"resourceId, logs"
//	@Failure		401			{object}	surveysdk.ErrorResponse			"error"
//	@Failure		403			{object}	surveysdk.ErrorResponse			"error"
//	@Failure		500			{object}	surveysdk.ErrorResponse			"error"
//	@Router			/api/admin/audit/{resourceID} [get].
func (h *AdminAuditHandler) HandleTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("resourceID")

	logs, err := h.Audit.AuditTrail(ctx, id)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to load audit trail", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, httpx.MsgUnexpected)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, surveysdk.AuditTrailResponse{
		ResourceID: id,
		Logs:       toAuditLogs(logs),
	})
}

// HandleIncidents godoc
//
//	@Summary		Incidents by IP
//	@Description	Lists security incidents raised for one client address.
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			ip		query		string						true	"Client IP address"
//	@Param			days	query		int							false	"Window in days (default 30)"
//	@Success		200		{object}	surveysdk.IncidentsResponse	"ipAddress, days, incidents"
//	@Failure		400		{object}	surveysdk.ErrorResponse		"error"
//	@Failure		401		{object}	surveysdk.ErrorResponse		"error"
//	@Failure		403		{object}	surveysdk.ErrorResponse		"error"
//	@Router			/api/admin/incidents [get].
func (h *AdminAuditHandler) HandleIncidents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ip := strings.TrimSpace(r.URL.Query().Get("ip"))
	days, ok := parseDays(r)
	if ip == "" || !ok {
		httpx.WriteError(w, http.StatusBadRequest, httpx.MsgBadRequest)
		return
	}
	if days == 0 {
		days = audit.DefaultWindowDays
	}

	incs, err := h.Audit.IncidentsByIP(ctx, ip, days)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to load incidents", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, httpx.MsgUnexpected)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, surveysdk.IncidentsResponse{
		IPAddress: ip,
		Days:      days,
		Incidents: toIncidents(incs),
	})
}

// HandleStats godoc
//
//	@Summary		Audit Statistics
//	@Description	Totals by risk level, top actions and incident counts over a trailing window.
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			days	query		int							false	"Window in days (default 30)"
//	@Success		200		{object}	surveysdk.AuditStatistics	"statistics"
//	@Failure		400		{object}	surveysdk.ErrorResponse		"error"
//	@Failure		401		{object}	surveysdk.ErrorResponse		"error"
//	@Failure		403		{object}	surveysdk.ErrorResponse		"error"
//	@Router			/api/admin/stats [get].
func (h *AdminAuditHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	days, ok := parseDays(r)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, httpx.MsgBadRequest)
		return
	}

	stats, err := h.Audit.Statistics(ctx, days)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to compute statistics", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, httpx.MsgUnexpected)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toStatistics(stats))
}
