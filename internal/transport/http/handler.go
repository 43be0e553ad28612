package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"anonymizer-service/internal/entity"
	"anonymizer-service/internal/repository/postgresql"
	"anonymizer-service/internal/service"
)

// Client-visible statuses: PENDING covers both pending and processing, the
// coarser projection the polling client sees.
const (
	clientPending = "PENDING"
	clientSuccess = "SUCCESS"
	clientFailure = "FAILURE"
)

func clientStatus(s entity.JobStatus) string {
	switch s {
	case entity.StatusDone:
		return clientSuccess
	case entity.StatusError:
		return clientFailure
	default:
		return clientPending
	}
}

type Handler struct {
	jobSvc *service.JobService
}

func NewHandler(jobSvc *service.JobService) *Handler {
	return &Handler{jobSvc: jobSvc}
}

type anonymizeDTO struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

type anonymizeResp struct {
	AnonymizationID string `json:"anonymization_id"`
}

type statusResp struct {
	AnonymizationID string          `json:"anonymization_id"`
	Status          string          `json:"status"`
	Result          json.RawMessage `json:"result"`
	Error           *string         `json:"error,omitempty"`
}

// CreateAnonymization godoc
// @Summary Submit text for anonymization
// @Description Creates an anonymization job (pending) and enqueues it for background processing. Poll GET /anonymize/{id} for the result.
// @Tags anonymize
// @Accept json
// @Produce json
// @Param request body anonymizeDTO true "text and optional language tag"
// @Success 202 {object} anonymizeResp
// @Failure 400 {object} apiError
// @Failure 422 {object} apiError
// @Failure 500 {object} apiError
// @Router /anonymize [post]
func (h *Handler) CreateAnonymization(w http.ResponseWriter, r *http.Request) {
	var dto anonymizeDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	id, err := h.jobSvc.Submit(r.Context(), dto.Text, dto.Language)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyText), errors.Is(err, service.ErrTextTooLarge):
			writeErr(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrUnsupportedLanguage):
			writeErr(w, http.StatusUnprocessableEntity, err.Error())
		default:
			writeErr(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, anonymizeResp{AnonymizationID: id.String()})
}

// GetAnonymization godoc
// @Summary Get anonymization status and result
// @Description Returns PENDING until the job finishes, then SUCCESS with the result or FAILURE with the error detail.
// @Tags anonymize
// @Produce json
// @Param id path string true "anonymization id (uuid)"
// @Success 200 {object} statusResp
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Router /anonymize/{id} [get]
func (h *Handler) GetAnonymization(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}

	j, err := h.jobSvc.GetJob(r.Context(), id)
	if err != nil {
		if errors.Is(err, postgresql.ErrNotFound) {
			writeErr(w, http.StatusNotFound, "anonymization not found")
			return
		}
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := statusResp{
		AnonymizationID: j.ID.String(),
		Status:          clientStatus(j.Status),
	}
	if j.Status == entity.StatusDone && len(j.Result) > 0 {
		resp.Result = j.Result
	}
	if j.Status == entity.StatusError {
		resp.Error = j.Error
	}

	writeJSON(w, http.StatusOK, resp)
}
