package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
)

// System is the aggregate root owning control assignments.
type System struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Owner        string    `json:"owner"`
	STIGProfiles []string  `json:"stig_profiles"`
	CreatedBy    string    `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type SystemsStore interface {
	Create(ctx context.Context, s *System) (string, error)
	Get(ctx context.Context, id string) (*System, error)
	List(ctx context.Context) ([]System, error)
	Update(ctx context.Context, s *System) error
	Delete(ctx context.Context, id string) error
}

type systemsStore struct {
	db *sql.DB
}

func NewSystemsStore(db *sql.DB) SystemsStore {
	return &systemsStore{db: db}
}

func (s *systemsStore) Create(ctx context.Context, sys *System) (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO systems(id, name, description, owner, stig_profiles_json, created_by, created_at, updated_at)
		VALUES(?,?,?,?,?,?,?,?)`,
		id.String(), sys.Name, sys.Description, sys.Owner, listToJSON(sys.STIGProfiles), sys.CreatedBy, now, now)
	if err != nil {
		return "", err
	}
	sys.ID = id.String()
	sys.CreatedAt = now
	sys.UpdatedAt = now
	return sys.ID, nil
}

func (s *systemsStore) Get(ctx context.Context, id string) (*System, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, owner, stig_profiles_json, created_by, created_at, updated_at
		FROM systems WHERE id=?`, id)
	var sys System
	var profilesRaw string
	if err := row.Scan(&sys.ID, &sys.Name, &sys.Description, &sys.Owner, &profilesRaw, &sys.CreatedBy, &sys.CreatedAt, &sys.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	sys.STIGProfiles = listFromJSON(profilesRaw)
	return &sys, nil
}

func (s *systemsStore) List(ctx context.Context) ([]System, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, owner, stig_profiles_json, created_by, created_at, updated_at
		FROM systems ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []System
	for rows.Next() {
		var sys System
		var profilesRaw string
		if err := rows.Scan(&sys.ID, &sys.Name, &sys.Description, &sys.Owner, &profilesRaw, &sys.CreatedBy, &sys.CreatedAt, &sys.UpdatedAt); err != nil {
			return nil, err
		}
		sys.STIGProfiles = listFromJSON(profilesRaw)
		res = append(res, sys)
	}
	return res, rows.Err()
}

func (s *systemsStore) Update(ctx context.Context, sys *System) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE systems SET name=?, description=?, owner=?, stig_profiles_json=?, updated_at=?
		WHERE id=?`,
		sys.Name, sys.Description, sys.Owner, listToJSON(sys.STIGProfiles), time.Now().UTC(), sys.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New("not found")
	}
	return nil
}

// Delete removes the system and its assignments. The sqlite test schema has
// no FK cascade, so the assignment rows go explicitly.
func (s *systemsStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM system_controls WHERE system_id=?`, id); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM systems WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New("not found")
	}
	return nil
}
