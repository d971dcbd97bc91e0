package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/alimatrix/internal/survey/audit"
	"github.com/aussiebroadwan/alimatrix/internal/survey/domain"
	"github.com/aussiebroadwan/alimatrix/internal/survey/service"
	"github.com/aussiebroadwan/alimatrix/internal/survey/store"
	"github.com/aussiebroadwan/alimatrix/pkg/httpx"
	"github.com/aussiebroadwan/alimatrix/pkg/slogx"
	"github.com/aussiebroadwan/alimatrix/pkg/surveysdk"
)

type AdminSubmissionsHandler struct {
	SubmissionService *service.SubmissionService
	Audit             *audit.Logger
}

// HandleGet godoc
//
//	@Summary		View Submission
//	@Description	Returns one stored questionnaire. The access is audited and counted.
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string					true	"Submission id"
//	@Success		200	{object}	surveysdk.Submission	"submission"
//	@Failure		401	{object}	surveysdk.ErrorResponse	"error"
//	@Failure		403	{object}	surveysdk.ErrorResponse	"error"
//	@Failure		404	{object}	surveysdk.ErrorResponse	"error"
//	@Router			/api/admin/submissions/{id} [get].
func (h *AdminSubmissionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	sub, err := h.SubmissionService.Get(ctx, id)
	if err != nil {
		h.writeLookupError(w, r, err)
		return
	}

	if h.Audit != nil {
		h.Audit.LogFormAccess(ctx, sub.ID, domain.ActionView, requestMeta(r))
	}
	httpx.WriteJSON(w, http.StatusOK, toSubmission(sub))
}

// HandleDelete godoc
//
//	@Summary		Delete Submission
//	@Description	Permanently removes one stored questionnaire. Recorded as a high risk access and a
//	@Description	data deletion.
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string						true	"Submission id"
//	@Success		200	{object}	surveysdk.SuccessResponse	"success"
//	@Failure		401	{object}	surveysdk.ErrorResponse		"error"
//	@Failure		403	{object}	surveysdk.ErrorResponse		"error"
//	@Failure		404	{object}	surveysdk.ErrorResponse		"error"
//	@Router			/api/admin/submissions/{id} [delete].
func (h *AdminSubmissionsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	if err := h.SubmissionService.Delete(ctx, id); err != nil {
		h.writeLookupError(w, r, err)
		return
	}

	if h.Audit != nil {
		m := requestMeta(r)
		h.Audit.LogFormAccess(ctx, id, domain.ActionDelete, m)
		h.Audit.LogDataRetention(ctx, domain.ActionDataDeleted, "FormSubmission", []string{id}, map[string]any{
			"reason":    "admin_request",
			"deletedBy": m.UserID,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, surveysdk.SuccessResponse{Success: true})
}

func (h *AdminSubmissionsHandler) writeLookupError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, httpx.MsgNotFound)
		return
	}
	slogx.FromContext(r.Context()).Error("submission lookup failed", "err", err)
	httpx.WriteError(w, http.StatusInternalServerError, httpx.MsgUnexpected)
}
