package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type RemovalEntry struct {
	ID        uuid.UUID
	LeadID    uuid.UUID
	CompanyID uuid.UUID
	RemovedBy uuid.UUID
	Reason    string
	Snapshot  json.RawMessage
	CreatedAt time.Time
}

// SnapshotLead freezes the lead's fields as they were at removal time. The
// log entry stays readable even if the lead row is later purged.
func SnapshotLead(lead Lead) (json.RawMessage, error) {
	return json.Marshal(struct {
		FirstName  string     `json:"firstName"`
		LastName   string     `json:"lastName"`
		Phone      string     `json:"phone"`
		Email      *string    `json:"email,omitempty"`
		Status     string     `json:"status"`
		AssignedTo *uuid.UUID `json:"assignedTo,omitempty"`
		CreatedAt  time.Time  `json:"createdAt"`
		UpdatedAt  time.Time  `json:"updatedAt"`
	}{
		FirstName:  lead.FirstName,
		LastName:   lead.LastName,
		Phone:      lead.Phone,
		Email:      lead.Email,
		Status:     string(lead.Status),
		AssignedTo: lead.AssignedTo,
		CreatedAt:  lead.CreatedAt,
		UpdatedAt:  lead.UpdatedAt,
	})
}

// Remove marks the lead removed and records the reason plus a snapshot of the
// lead in the removal log, in one transaction so a removed lead always has a
// log entry.
func (r *Repository) Remove(ctx context.Context, leadID, companyID, removedBy uuid.UUID, reason string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE id = $1 AND company_id = $2 AND status <> 'removed'
		FOR UPDATE
	`, leadID, companyID)
	lead, err := scanLead(row)
	if err != nil {
		return err
	}

	snapshot, err := SnapshotLead(lead)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE leads SET status = 'removed', updated_at = now()
		WHERE id = $1 AND company_id = $2
	`, leadID, companyID)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO lead_removal_log (id, lead_id, company_id, removed_by, reason, lead_snapshot, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
	`, uuid.New(), leadID, companyID, removedBy, reason, snapshot)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *Repository) ListRemovals(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]RemovalEntry, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, company_id, removed_by, reason, lead_snapshot, created_at
		FROM lead_removal_log
		WHERE company_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, companyID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]RemovalEntry, 0)
	for rows.Next() {
		var e RemovalEntry
		if err := rows.Scan(&e.ID, &e.LeadID, &e.CompanyID, &e.RemovedBy, &e.Reason, &e.Snapshot, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
