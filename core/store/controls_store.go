package store

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"
)

// Control is a catalog entry. Identity is the (framework, control id) pair;
// rows are written only by catalog imports and never mutated by end users.
type Control struct {
	ID              string    `json:"id"`
	Framework       string    `json:"framework"`
	Family          string    `json:"family"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Baselines       []string  `json:"baseline"`
	Priority        *string   `json:"priority,omitempty"`
	Enhancement     *string   `json:"enhancement,omitempty"`
	ParentControlID *string   `json:"parent_control_id,omitempty"`
	ImportedAt      time.Time `json:"imported_at"`
}

// ControlFilter composes with AND; zero-valued fields are no-ops.
type ControlFilter struct {
	Search    string
	Family    string
	Baseline  string
	Framework string
}

type CatalogStats struct {
	ByFamily   map[string]int `json:"byFamily"`
	ByBaseline map[string]int `json:"byBaseline"`
	ByPriority map[string]int `json:"byPriority"`
}

type ImportOptions struct {
	// Replace clears the catalog before inserting. The destructive step is
	// gated at the HTTP boundary, not here.
	Replace   bool
	BatchSize int
}

type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

type ControlsStore interface {
	ListControls(ctx context.Context, filter ControlFilter, page PageRequest) ([]Control, int, error)
	GetControl(ctx context.Context, framework, id string) (*Control, error)
	ListFamilies(ctx context.Context) ([]string, error)
	ListBaselines(ctx context.Context) ([]string, error)
	CatalogStats(ctx context.Context) (*CatalogStats, error)
	BulkImport(ctx context.Context, rows []Control, opts ImportOptions) (*ImportResult, error)
}

type controlsStore struct {
	db *sql.DB
}

func NewControlsStore(db *sql.DB) ControlsStore {
	return &controlsStore{db: db}
}

const controlColumns = `c.control_id, c.framework, c.family, c.title, c.description, c.baselines_json, c.priority, c.enhancement, c.parent_control_id, c.imported_at`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike quotes LIKE metacharacters so user input matches literally.
// Every clause built with it must carry ESCAPE '\'.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// controlFilterClauses renders the filter into WHERE fragments over alias c.
// Baseline matching relies on the JSON encoding quoting every element, so a
// quoted pattern is an exact set-membership test, not a substring one.
func controlFilterClauses(filter ControlFilter) ([]string, []any) {
	clauses := []string{}
	args := []any{}
	if s := strings.TrimSpace(filter.Search); s != "" {
		clauses = append(clauses, `(LOWER(c.control_id) LIKE ? ESCAPE '\' OR LOWER(c.title) LIKE ? ESCAPE '\' OR LOWER(c.description) LIKE ? ESCAPE '\')`)
		pattern := "%" + escapeLike(strings.ToLower(s)) + "%"
		args = append(args, pattern, pattern, pattern)
	}
	if f := strings.TrimSpace(filter.Family); f != "" {
		clauses = append(clauses, "c.family=?")
		args = append(args, f)
	}
	if b := strings.TrimSpace(filter.Baseline); b != "" {
		clauses = append(clauses, `c.baselines_json LIKE ? ESCAPE '\'`)
		args = append(args, `%"`+escapeLike(b)+`"%`)
	}
	if fw := strings.TrimSpace(filter.Framework); fw != "" {
		clauses = append(clauses, "c.framework=?")
		args = append(args, fw)
	}
	return clauses, args
}

func (s *controlsStore) ListControls(ctx context.Context, filter ControlFilter, page PageRequest) ([]Control, int, error) {
	clauses, args := controlFilterClauses(filter)
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM controls c`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + controlColumns + ` FROM controls c` + where + ` ORDER BY c.control_id ASC LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, append(args, page.Limit, page.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var res []Control
	for rows.Next() {
		item, err := scanControlRow(rows)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, item)
	}
	return res, total, rows.Err()
}

func (s *controlsStore) GetControl(ctx context.Context, framework, id string) (*Control, error) {
	query := `SELECT ` + controlColumns + ` FROM controls c WHERE c.control_id=?`
	args := []any{id}
	if fw := strings.TrimSpace(framework); fw != "" {
		query += ` AND c.framework=?`
		args = append(args, fw)
	}
	query += ` ORDER BY c.framework ASC LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, args...)
	return scanControl(row)
}

func (s *controlsStore) ListFamilies(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT family FROM controls ORDER BY family ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, err
		}
		res = append(res, f)
	}
	return res, rows.Err()
}

// ListBaselines flattens the baseline sets actually present in the catalog,
// tolerating catalogs with labels beyond Low/Moderate/High.
func (s *controlsStore) ListBaselines(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT baselines_json FROM controls`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seen := map[string]struct{}{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		for _, b := range listFromJSON(raw) {
			if b = strings.TrimSpace(b); b != "" {
				seen[b] = struct{}{}
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	res := make([]string, 0, len(seen))
	for b := range seen {
		res = append(res, b)
	}
	sort.Strings(res)
	return res, nil
}

// CatalogStats summarizes the full catalog, independent of any filter. A
// control is counted once per baseline it belongs to; rows without a
// priority are excluded from the priority grouping.
func (s *controlsStore) CatalogStats(ctx context.Context) (*CatalogStats, error) {
	stats := &CatalogStats{
		ByFamily:   map[string]int{},
		ByBaseline: map[string]int{},
		ByPriority: map[string]int{},
	}
	rows, err := s.db.QueryContext(ctx, `SELECT family, COUNT(1) FROM controls GROUP BY family`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var family string
		var n int
		if err := rows.Scan(&family, &n); err != nil {
			return nil, err
		}
		stats.ByFamily[family] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	prows, err := s.db.QueryContext(ctx, `SELECT priority, COUNT(1) FROM controls WHERE priority IS NOT NULL AND priority<>'' GROUP BY priority`)
	if err != nil {
		return nil, err
	}
	defer prows.Close()
	for prows.Next() {
		var priority string
		var n int
		if err := prows.Scan(&priority, &n); err != nil {
			return nil, err
		}
		stats.ByPriority[priority] = n
	}
	if err := prows.Err(); err != nil {
		return nil, err
	}

	brows, err := s.db.QueryContext(ctx, `SELECT baselines_json FROM controls`)
	if err != nil {
		return nil, err
	}
	defer brows.Close()
	for brows.Next() {
		var raw string
		if err := brows.Scan(&raw); err != nil {
			return nil, err
		}
		for _, b := range listFromJSON(raw) {
			if b = strings.TrimSpace(b); b != "" {
				stats.ByBaseline[b]++
			}
		}
	}
	return stats, brows.Err()
}

// BulkImport inserts rows in batches, skipping primary-key collisions. A
// failing batch is counted and the loop moves on; already-applied batches
// stay (partial success is the documented contract for imports).
func (s *controlsStore) BulkImport(ctx context.Context, rows []Control, opts ImportOptions) (*ImportResult, error) {
	if opts.Replace {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM controls`); err != nil {
			return nil, err
		}
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	now := time.Now().UTC()
	res := &ImportResult{}
	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]
		inserted, err := s.insertBatch(ctx, batch, now)
		if err != nil {
			res.Failed += len(batch)
			continue
		}
		res.Imported += inserted
		res.Skipped += len(batch) - inserted
	}
	return res, nil
}

func (s *controlsStore) insertBatch(ctx context.Context, batch []Control, now time.Time) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}
	var b strings.Builder
	b.WriteString(`INSERT OR IGNORE INTO controls(control_id, framework, family, title, description, baselines_json, priority, enhancement, parent_control_id, imported_at) VALUES`)
	args := make([]any, 0, len(batch)*10)
	for i, c := range batch {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?,?,?,?,?,?,?,?,?,?)")
		args = append(args,
			c.ID, c.Framework, c.Family, c.Title, c.Description,
			listToJSON(c.Baselines), nullableString(c.Priority),
			nullableString(c.Enhancement), nullableString(c.ParentControlID), now)
	}
	r, err := s.db.ExecContext(ctx, b.String(), args...)
	if err != nil {
		return 0, err
	}
	n, err := r.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func scanControl(row interface {
	Scan(dest ...any) error
}) (*Control, error) {
	var c Control
	var baselinesRaw string
	var priority, enhancement, parent sql.NullString
	if err := row.Scan(&c.ID, &c.Framework, &c.Family, &c.Title, &c.Description, &baselinesRaw, &priority, &enhancement, &parent, &c.ImportedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	c.Baselines = listFromJSON(baselinesRaw)
	if priority.Valid {
		c.Priority = &priority.String
	}
	if enhancement.Valid {
		c.Enhancement = &enhancement.String
	}
	if parent.Valid {
		c.ParentControlID = &parent.String
	}
	return &c, nil
}

func scanControlRow(rows *sql.Rows) (Control, error) {
	var c Control
	var baselinesRaw string
	var priority, enhancement, parent sql.NullString
	if err := rows.Scan(&c.ID, &c.Framework, &c.Family, &c.Title, &c.Description, &baselinesRaw, &priority, &enhancement, &parent, &c.ImportedAt); err != nil {
		return c, err
	}
	c.Baselines = listFromJSON(baselinesRaw)
	if priority.Valid {
		c.Priority = &priority.String
	}
	if enhancement.Valid {
		c.Enhancement = &enhancement.String
	}
	if parent.Valid {
		c.ParentControlID = &parent.String
	}
	return c, nil
}
