package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
)

// SystemControl records how one system implements one catalog control. The
// (system_id, control_id) pair is unique; concurrent updates of the same
// pair are last-writer-wins.
type SystemControl struct {
	ID                 string     `json:"id"`
	SystemID           string     `json:"system_id"`
	ControlID          string     `json:"control_id"`
	Status             string     `json:"status"`
	ImplementationText string     `json:"implementation_text"`
	ResponsibleParty   string     `json:"responsible_party"`
	ImplementationDate *time.Time `json:"implementation_date,omitempty"`
	UpdatedBy          string     `json:"updated_by"`
	LastUpdated        time.Time  `json:"last_updated"`
	CreatedAt          time.Time  `json:"created_at"`
}

// SystemControlView is the assignment joined with its catalog control.
type SystemControlView struct {
	SystemControl
	Family      string   `json:"family"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Baselines   []string `json:"baseline"`
	Priority    *string  `json:"priority,omitempty"`
}

// SystemControlPatch merges into an existing assignment; nil fields are left
// untouched. last_updated and updated_by are stamped server-side regardless.
type SystemControlPatch struct {
	Status             *string
	ImplementationText *string
	ResponsibleParty   *string
	ImplementationDate *time.Time
}

type SystemControlStats struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"byStatus"`
}

// BulkAssignResult reports which control ids were inserted, which already
// existed (skipped, not an error), and which are absent from the catalog.
type BulkAssignResult struct {
	Inserted []SystemControlView `json:"controls"`
	Skipped  []string            `json:"skipped"`
	Failed   []string            `json:"failed"`
}

type SystemControlsStore interface {
	ListForSystem(ctx context.Context, systemID string, filter ControlFilter, page PageRequest) ([]SystemControlView, int, error)
	GetOne(ctx context.Context, systemID, controlID string) (*SystemControlView, error)
	Update(ctx context.Context, systemID, controlID string, patch SystemControlPatch, updatedBy string) (*SystemControlView, error)
	BulkAssign(ctx context.Context, systemID string, controlIDs []string, updatedBy string) (*BulkAssignResult, error)
	Remove(ctx context.Context, systemID, controlID string) error
	StatsForSystem(ctx context.Context, systemID string) (*SystemControlStats, error)
}

type systemControlsStore struct {
	db *sql.DB
}

func NewSystemControlsStore(db *sql.DB) SystemControlsStore {
	return &systemControlsStore{db: db}
}

const systemControlColumns = `sc.id, sc.system_id, sc.control_id, sc.status, sc.implementation_text, sc.responsible_party, sc.implementation_date, sc.updated_by, sc.last_updated, sc.created_at,
	       c.family, c.title, c.description, c.baselines_json, c.priority`

// Assignments are keyed by control id alone, so when a catalog carries the
// same id under several frameworks the join pins the lowest framework,
// matching the pick GetControl makes.
const systemControlJoin = `FROM system_controls sc
		INNER JOIN controls c ON c.control_id=sc.control_id
			AND c.framework=(SELECT MIN(c2.framework) FROM controls c2 WHERE c2.control_id=sc.control_id)`

// ListForSystem applies the catalog filter to the control side of the join.
// Assignments are framework-agnostic, so the framework filter is dropped.
func (s *systemControlsStore) ListForSystem(ctx context.Context, systemID string, filter ControlFilter, page PageRequest) ([]SystemControlView, int, error) {
	filter.Framework = ""
	clauses, args := controlFilterClauses(filter)
	clauses = append([]string{"sc.system_id=?"}, clauses...)
	args = append([]any{systemID}, args...)
	where := " WHERE " + strings.Join(clauses, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) `+systemControlJoin+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + systemControlColumns + ` ` + systemControlJoin + where + ` ORDER BY sc.control_id ASC LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, append(args, page.Limit, page.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var res []SystemControlView
	for rows.Next() {
		item, err := scanSystemControlRow(rows)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, item)
	}
	return res, total, rows.Err()
}

func (s *systemControlsStore) GetOne(ctx context.Context, systemID, controlID string) (*SystemControlView, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+systemControlColumns+` `+systemControlJoin+`
		WHERE sc.system_id=? AND sc.control_id=?`, systemID, controlID)
	return scanSystemControl(row)
}

// Update merges the patch into the existing row. No row, no implicit
// creation: callers get (nil, nil) and surface not-found.
func (s *systemControlsStore) Update(ctx context.Context, systemID, controlID string, patch SystemControlPatch, updatedBy string) (*SystemControlView, error) {
	sets := []string{"updated_by=?", "last_updated=?"}
	args := []any{updatedBy, time.Now().UTC()}
	if patch.Status != nil {
		sets = append(sets, "status=?")
		args = append(args, *patch.Status)
	}
	if patch.ImplementationText != nil {
		sets = append(sets, "implementation_text=?")
		args = append(args, *patch.ImplementationText)
	}
	if patch.ResponsibleParty != nil {
		sets = append(sets, "responsible_party=?")
		args = append(args, *patch.ResponsibleParty)
	}
	if patch.ImplementationDate != nil {
		sets = append(sets, "implementation_date=?")
		args = append(args, nullableTime(patch.ImplementationDate))
	}
	args = append(args, systemID, controlID)
	res, err := s.db.ExecContext(ctx, `UPDATE system_controls SET `+strings.Join(sets, ", ")+` WHERE system_id=? AND control_id=?`, args...)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.GetOne(ctx, systemID, controlID)
}

// BulkAssign attaches controls with status not_implemented. Duplicate pairs,
// in the input or pre-existing, affect zero rows and are skipped without
// error; ids missing from the catalog are reported as failed.
func (s *systemControlsStore) BulkAssign(ctx context.Context, systemID string, controlIDs []string, updatedBy string) (*BulkAssignResult, error) {
	now := time.Now().UTC()
	result := &BulkAssignResult{}
	var insertedIDs []string
	for _, raw := range controlIDs {
		controlID := strings.TrimSpace(raw)
		if controlID == "" {
			continue
		}
		var known int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM controls WHERE control_id=?`, controlID).Scan(&known); err != nil {
			return nil, err
		}
		if known == 0 {
			result.Failed = append(result.Failed, controlID)
			continue
		}
		id, err := uuid.NewV4()
		if err != nil {
			return nil, err
		}
		res, err := s.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO system_controls(id, system_id, control_id, status, implementation_text, responsible_party, updated_by, last_updated, created_at)
			VALUES(?,?,?,?,?,?,?,?,?)`,
			id.String(), systemID, controlID, "not_implemented", "", "", updatedBy, now, now)
		if err != nil {
			result.Failed = append(result.Failed, controlID)
			continue
		}
		if n, _ := res.RowsAffected(); n == 0 {
			result.Skipped = append(result.Skipped, controlID)
			continue
		}
		insertedIDs = append(insertedIDs, controlID)
	}
	for _, controlID := range insertedIDs {
		view, err := s.GetOne(ctx, systemID, controlID)
		if err != nil {
			return nil, err
		}
		if view != nil {
			result.Inserted = append(result.Inserted, *view)
		}
	}
	return result, nil
}

// Remove is idempotent: deleting an absent pair is not an error.
func (s *systemControlsStore) Remove(ctx context.Context, systemID, controlID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM system_controls WHERE system_id=? AND control_id=?`, systemID, controlID)
	return err
}

func (s *systemControlsStore) StatsForSystem(ctx context.Context, systemID string) (*SystemControlStats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM system_controls WHERE system_id=? GROUP BY status`, systemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	stats := &SystemControlStats{ByStatus: map[string]int{}}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		stats.ByStatus[status] = n
		stats.Total += n
	}
	return stats, rows.Err()
}

func scanSystemControl(row interface {
	Scan(dest ...any) error
}) (*SystemControlView, error) {
	var v SystemControlView
	var baselinesRaw string
	var implDate sql.NullTime
	var priority sql.NullString
	if err := row.Scan(&v.ID, &v.SystemID, &v.ControlID, &v.Status, &v.ImplementationText, &v.ResponsibleParty, &implDate, &v.UpdatedBy, &v.LastUpdated, &v.CreatedAt,
		&v.Family, &v.Title, &v.Description, &baselinesRaw, &priority); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if implDate.Valid {
		v.ImplementationDate = &implDate.Time
	}
	v.Baselines = listFromJSON(baselinesRaw)
	if priority.Valid {
		v.Priority = &priority.String
	}
	return &v, nil
}

func scanSystemControlRow(rows *sql.Rows) (SystemControlView, error) {
	var v SystemControlView
	var baselinesRaw string
	var implDate sql.NullTime
	var priority sql.NullString
	if err := rows.Scan(&v.ID, &v.SystemID, &v.ControlID, &v.Status, &v.ImplementationText, &v.ResponsibleParty, &implDate, &v.UpdatedBy, &v.LastUpdated, &v.CreatedAt,
		&v.Family, &v.Title, &v.Description, &baselinesRaw, &priority); err != nil {
		return v, err
	}
	if implDate.Valid {
		v.ImplementationDate = &implDate.Time
	}
	v.Baselines = listFromJSON(baselinesRaw)
	if priority.Valid {
		v.Priority = &priority.String
	}
	return v, nil
}
