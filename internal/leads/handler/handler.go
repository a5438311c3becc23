package handler

import (
	"net/http"

	"calldesk_backend/internal/leads/repository"
	"calldesk_backend/internal/leads/service"
	"calldesk_backend/internal/leads/transport"
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
	rg.GET("", h.List)
	rg.GET("/:leadId", h.GetByID)
	rg.DELETE("/:leadId", h.Remove)
	rg.GET("/removals", h.ListRemovals)
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

	var query transport.ListLeadsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := validator.Validate.Struct(query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	params := repository.ListParams{
		CompanyID: *companyID,
		Status:    transport.StatusFromQuery(query.Status),
		Search:    query.Search,
	}
	if query.AssignedTo != "" {
		assignee, err := uuid.Parse(query.AssignedTo)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		params.AssignedTo = &assignee
	}
	pageSize := query.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	page := query.Page
	if page < 1 {
		page = 1
	}
	params.Limit = pageSize
	params.Offset = (page - 1) * pageSize

	views, total, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.ToLeadListResponse(views, total))
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

	id, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	view, err := h.svc.Get(c.Request.Context(), id, *companyID)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.ToLeadResponse(view))
}

func (h *Handler) Remove(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)
	if ident == nil {
		return
	}
	companyID := ident.TenantID()
	if companyID == nil {
		httpkit.Error(c, http.StatusForbidden, "company scope missing", nil)
		return
	}

	id, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.RemoveLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := validator.Validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if err := h.svc.Remove(c.Request.Context(), id, *companyID, ident.UserID(), req.Reason); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) ListRemovals(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)
	if ident == nil {
		return
	}
	companyID := ident.TenantID()
	if companyID == nil {
		httpkit.Error(c, http.StatusForbidden, "company scope missing", nil)
		return
	}

	entries, err := h.svc.ListRemovals(c.Request.Context(), *companyID, 100, 0)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	out := make([]transport.RemovalEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = transport.ToRemovalEntryResponse(e)
	}
	httpkit.OK(c, out)
}
