package handler

import (
	"net/http"
	"time"

	"calldesk_backend/internal/calls/service"
	"calldesk_backend/internal/calls/transport"
	"calldesk_backend/internal/leads/domain"
	"calldesk_backend/platform/httpkit"
	"calldesk_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/leads/:leadId/calls", h.ListByLead)
	rg.POST("/leads/:leadId/calls", h.RecordOutcome)
	rg.DELETE("/leads/:leadId/follow-up", h.DeleteFollowUp)
}

func (h *Handler) RecordOutcome(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)
	if ident == nil {
		return
	}
	companyID := ident.TenantID()
	if companyID == nil {
		httpkit.Error(c, http.StatusForbidden, "company scope missing", nil)
		return
	}

	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.RecordOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := validator.Validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	followUpAt, err := req.ResolveFollowUp(time.Local)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid follow-up date or time", nil)
		return
	}

	rec, err := h.svc.RecordOutcome(c.Request.Context(), service.RecordOutcomeInput{
		LeadID:          leadID,
		EmployeeID:      ident.UserID(),
		CompanyID:       *companyID,
		Outcome:         domain.Outcome(req.Outcome),
		Notes:           req.Notes,
		FollowUpAt:      followUpAt,
		DurationSeconds: req.Duration,
		ProviderCallID:  req.ProviderCallID,
		Source:          "manual",
	})
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.ToCallRecordResponse(rec))
}

func (h *Handler) ListByLead(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)
	if ident == nil {
		return
	}
	companyID := ident.TenantID()
	if companyID == nil {
		httpkit.Error(c, http.StatusForbidden, "company scope missing", nil)
		return
	}

	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	records, err := h.svc.ListByLead(c.Request.Context(), leadID, *companyID)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.ToCallRecordListResponse(records))
}

func (h *Handler) DeleteFollowUp(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)
	if ident == nil {
		return
	}
	companyID := ident.TenantID()
	if companyID == nil {
		httpkit.Error(c, http.StatusForbidden, "company scope missing", nil)
		return
	}

	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if err := h.svc.DeleteFollowUp(c.Request.Context(), leadID, *companyID); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
