package telephony

import (
	"errors"
	"net/http"

	"calldesk_backend/platform/httpkit"
	"calldesk_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidRequest = "invalid request"

type Handler struct {
	controller *Controller
}

func NewHandler(controller *Controller) *Handler {
	return &Handler{controller: controller}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/calls", h.Initiate)
	rg.GET("/calls/:sessionId", h.Status)
	rg.DELETE("/calls/:sessionId", h.Cancel)
}

type initiateRequest struct {
	LeadID   uuid.UUID `json:"leadId" validate:"required"`
	From     string    `json:"from" validate:"required,min=5,max=20"`
	To       string    `json:"to" validate:"required,min=5,max=20"`
	CallerID string    `json:"callerId" validate:"omitempty,max=20"`
}

func (h *Handler) Initiate(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)
	if ident == nil {
		return
	}
	companyID := ident.TenantID()
	if companyID == nil {
		httpkit.Error(c, http.StatusForbidden, "company scope missing", nil)
		return
	}

	var req initiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := validator.Validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	view, err := h.controller.Initiate(c.Request.Context(), InitiateInput{
		LeadID:     req.LeadID,
		EmployeeID: ident.UserID(),
		CompanyID:  *companyID,
		From:       req.From,
		To:         req.To,
		CallerID:   req.CallerID,
	})
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.JSON(c, http.StatusCreated, view)
}

func (h *Handler) Status(c *gin.Context) {
	if httpkit.MustGetIdentity(c) == nil {
		return
	}

	sessionID, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	view, err := h.controller.Status(sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			httpkit.Error(c, http.StatusNotFound, err.Error(), nil)
			return
		}
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, view)
}

func (h *Handler) Cancel(c *gin.Context) {
	if httpkit.MustGetIdentity(c) == nil {
		return
	}

	sessionID, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if err := h.controller.Cancel(sessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			httpkit.Error(c, http.StatusNotFound, err.Error(), nil)
			return
		}
		httpkit.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
