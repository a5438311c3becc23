package handler

import (
	"net/http"

	"calldesk_backend/internal/analysis/repository"
	"calldesk_backend/internal/analysis/service"
	"calldesk_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidRequest = "invalid request"

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.GetByID)
}

func (h *Handler) GetByID(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)
	if ident == nil {
		return
	}
	companyID := ident.TenantID()
	if companyID == nil {
		httpkit.Error(c, http.StatusForbidden, "company scope missing", nil)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	job, err := h.svc.Get(c.Request.Context(), id, *companyID)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, ToJobResponse(job))
}

func (h *Handler) List(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)
	if ident == nil {
		return
	}
	companyID := ident.TenantID()
	if companyID == nil {
		httpkit.Error(c, http.StatusForbidden, "company scope missing", nil)
		return
	}

	var status *repository.Status
	if raw := c.Query("status"); raw != "" {
		s := repository.Status(raw)
		switch s {
		case repository.StatusPending, repository.StatusProcessing, repository.StatusCompleted, repository.StatusFailed:
			status = &s
		default:
			httpkit.Error(c, http.StatusBadRequest, "unknown status filter", nil)
			return
		}
	}

	jobs, err := h.svc.List(c.Request.Context(), *companyID, status, 100, 0)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	out := make([]JobResponse, len(jobs))
	for i, job := range jobs {
		out[i] = ToJobResponse(job)
	}
	httpkit.OK(c, out)
}
