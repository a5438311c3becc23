package transport

import (
	"encoding/json"
	"time"

	"calldesk_backend/internal/leads/domain"
	"calldesk_backend/internal/leads/repository"
	"calldesk_backend/internal/leads/service"

	"github.com/google/uuid"
)

// Request DTOs

type ListLeadsQuery struct {
	Status     string `form:"status" validate:"omitempty,oneof=active contacted follow_up converted completed not_interested"`
	AssignedTo string `form:"assignedTo" validate:"omitempty,uuid"`
	Search     string `form:"search" validate:"omitempty,max=200"`
	Page       int    `form:"page" validate:"omitempty,min=1"`
	PageSize   int    `form:"pageSize" validate:"omitempty,min=1,max=200"`
}

type RemoveLeadRequest struct {
	Reason string `json:"reason" validate:"required,min=1,max=500"`
}

// Response DTOs

type LeadResponse struct {
	ID              uuid.UUID  `json:"id"`
	FirstName       string     `json:"firstName"`
	LastName        string     `json:"lastName"`
	Phone           string     `json:"phone"`
	Email           *string    `json:"email,omitempty"`
	Status          string     `json:"status"`
	CallStatus      string     `json:"callStatus"`
	CallStatusLabel string     `json:"callStatusLabel"`
	FollowUpInSecs  *int64     `json:"followUpInSeconds,omitempty"`
	AssignedTo      *uuid.UUID `json:"assignedTo,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

type LeadListResponse struct {
	Leads []LeadResponse `json:"leads"`
	Total int            `json:"total"`
}

type RemovalEntryResponse struct {
	ID        uuid.UUID       `json:"id"`
	LeadID    uuid.UUID       `json:"leadId"`
	RemovedBy uuid.UUID       `json:"removedBy"`
	Reason    string          `json:"reason"`
	Lead      json.RawMessage `json:"lead,omitempty"`
	RemovedAt time.Time       `json:"removedAt"`
}

func ToLeadResponse(view service.LeadView) LeadResponse {
	resp := LeadResponse{
		ID:              view.Lead.ID,
		FirstName:       view.Lead.FirstName,
		LastName:        view.Lead.LastName,
		Phone:           view.Lead.Phone,
		Email:           view.Lead.Email,
		Status:          string(view.Lead.Status),
		CallStatus:      string(view.Projection.Code),
		CallStatusLabel: view.Projection.Label,
		AssignedTo:      view.Lead.AssignedTo,
		CreatedAt:       view.Lead.CreatedAt,
		UpdatedAt:       view.Lead.UpdatedAt,
	}
	if view.FollowUpIn != nil {
		secs := int64(view.FollowUpIn.Seconds())
		resp.FollowUpInSecs = &secs
	}
	return resp
}

func ToLeadListResponse(views []service.LeadView, total int) LeadListResponse {
	leads := make([]LeadResponse, len(views))
	for i, view := range views {
		leads[i] = ToLeadResponse(view)
	}
	return LeadListResponse{Leads: leads, Total: total}
}

func ToRemovalEntryResponse(e repository.RemovalEntry) RemovalEntryResponse {
	return RemovalEntryResponse{
		ID:        e.ID,
		LeadID:    e.LeadID,
		RemovedBy: e.RemovedBy,
		Reason:    e.Reason,
		Lead:      e.Snapshot,
		RemovedAt: e.CreatedAt,
	}
}

// StatusFromQuery parses an optional status filter value.
func StatusFromQuery(raw string) *domain.Status {
	if raw == "" {
		return nil
	}
	s := domain.Status(raw)
	return &s
}
