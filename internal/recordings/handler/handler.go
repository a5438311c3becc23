package handler

import (
	"context"
	"net/http"

	"calldesk_backend/internal/recordings/repository"
	"calldesk_backend/internal/recordings/storage"
	"calldesk_backend/platform/httpkit"
	"calldesk_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// AnalysisSubmitter hands a stored recording to the analysis pipeline.
// Implemented by the analysis service.
type AnalysisSubmitter interface {
	Submit(ctx context.Context, input SubmitInput) (SubmitResult, error)
}

// SubmitInput mirrors the analysis pipeline's submission contract.
type SubmitInput struct {
	OwnerID       uuid.UUID
	CompanyID     uuid.UUID
	StoredFileURL string
	FileName      string
	Transcript    *string
	CallID        *uuid.UUID
}

// SubmitResult reports the recording and job resolved by a submission.
type SubmitResult struct {
	RecordingID uuid.UUID `json:"recordingId"`
	JobID       uuid.UUID `json:"analysisJobId"`
	JobStatus   string    `json:"analysisStatus"`
}

type Handler struct {
	repo     *repository.Repository
	storage  *storage.Service
	analysis AnalysisSubmitter
}

// New builds the recordings handler. storage may be nil when MinIO is not
// configured; the upload endpoints then report the feature unavailable.
func New(repo *repository.Repository, store *storage.Service, analysis AnalysisSubmitter) *Handler {
	return &Handler{repo: repo, storage: store, analysis: analysis}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("/upload-url", h.UploadURL)
	rg.POST("/submit", h.Submit)
	rg.GET("/:id", h.GetByID)
}

type uploadURLRequest struct {
	FileName    string `json:"fileName" validate:"required,min=1,max=255"`
	ContentType string `json:"contentType" validate:"required,max=100"`
	SizeBytes   int64  `json:"sizeBytes" validate:"required,min=1"`
}

func (h *Handler) UploadURL(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)
	if ident == nil {
		return
	}
	if h.storage == nil {
		httpkit.Error(c, http.StatusServiceUnavailable, "recording storage is not configured", nil)
		return
	}

	var req uploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := validator.Validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	presigned, err := h.storage.GenerateUploadURL(c.Request.Context(), ident.UserID(), req.FileName, req.ContentType, req.SizeBytes)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	httpkit.OK(c, presigned)
}

type submitRequest struct {
	StoredFileURL string     `json:"storedFileUrl" validate:"required,url,max=2000"`
	FileName      string     `json:"fileName" validate:"required,min=1,max=255"`
	Transcript    *string    `json:"transcript,omitempty" validate:"omitempty,max=100000"`
	CallID        *uuid.UUID `json:"callId,omitempty"`
}

func (h *Handler) Submit(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)
	if ident == nil {
		return
	}
	companyID := ident.TenantID()
	if companyID == nil {
		httpkit.Error(c, http.StatusForbidden, "company scope missing", nil)
		return
	}

	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := validator.Validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.analysis.Submit(c.Request.Context(), SubmitInput{
		OwnerID:       ident.UserID(),
		CompanyID:     *companyID,
		StoredFileURL: req.StoredFileURL,
		FileName:      req.FileName,
		Transcript:    req.Transcript,
		CallID:        req.CallID,
	})
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.JSON(c, http.StatusAccepted, result)
}

func (h *Handler) List(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)
	if ident == nil {
		return
	}

	recordings, err := h.repo.ListByOwner(c.Request.Context(), ident.UserID(), 100, 0)
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "failed to list recordings", nil)
		return
	}

	httpkit.OK(c, recordings)
}

func (h *Handler) GetByID(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)
	if ident == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	rec, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if err == repository.ErrNotFound {
			httpkit.Error(c, http.StatusNotFound, "recording not found", nil)
			return
		}
		httpkit.Error(c, http.StatusInternalServerError, "failed to load recording", nil)
		return
	}
	if rec.OwnerID != ident.UserID() && !ident.HasRole("manager") {
		httpkit.Error(c, http.StatusForbidden, "forbidden", nil)
		return
	}

	httpkit.OK(c, rec)
}
