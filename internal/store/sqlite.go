package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	// SQLite driver using pure Go implementation
	_ "modernc.org/sqlite"

	"github.com/ppiankov/controlgap/internal/model"
)

// SQLiteConfig configures the SQLite store
type SQLiteConfig struct {
	// Path to the database file
	Path string

	// BusyTimeout is the lock wait in milliseconds
	BusyTimeout int

	// MaxConnections caps open connections
	MaxConnections int
}

// DefaultSQLiteConfig returns default configuration
func DefaultSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{
		Path:           "controlgap.db",
		BusyTimeout:    5000,
		MaxConnections: 4,
	}
}

// SQLite is a store backed by a SQLite database
type SQLite struct {
	db *sql.DB
}

const schema = `
	CREATE TABLE IF NOT EXISTS families (
		code TEXT PRIMARY KEY,
		number TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS controls (
		id TEXT PRIMARY KEY,
		family TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		requirement TEXT NOT NULL DEFAULT '',
		discussion TEXT NOT NULL DEFAULT '',
		weight INTEGER NOT NULL DEFAULT 0,
		exempt INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS evidence_requirements (
		id TEXT PRIMARY KEY,
		control_id TEXT NOT NULL REFERENCES controls(id),
		type TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		rationale TEXT NOT NULL DEFAULT '',
		frequency TEXT NOT NULL DEFAULT '',
		freshness_days REAL
	);

	CREATE TABLE IF NOT EXISTS evidence_instances (
		id TEXT PRIMARY KEY,
		requirement_id TEXT NOT NULL REFERENCES evidence_requirements(id),
		file_name TEXT NOT NULL DEFAULT '',
		uploaded_at TEXT NOT NULL,
		executed_at TEXT
	);

	CREATE TABLE IF NOT EXISTS assessments (
		id TEXT PRIMARY KEY,
		control_id TEXT NOT NULL REFERENCES controls(id),
		implemented INTEGER NOT NULL,
		has_evidence INTEGER NOT NULL,
		tested INTEGER NOT NULL,
		meets_requirement INTEGER NOT NULL,
		not_applicable INTEGER NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT '',
		assessed_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		automated TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS control_setting_mappings (
		control_id TEXT NOT NULL REFERENCES controls(id),
		setting_id TEXT NOT NULL REFERENCES settings(id),
		PRIMARY KEY (control_id, setting_id)
	);

	CREATE TABLE IF NOT EXISTS manual_reviews (
		setting_id TEXT PRIMARY KEY REFERENCES settings(id),
		status TEXT NOT NULL,
		reviewer TEXT NOT NULL DEFAULT '',
		reviewed_at TEXT,
		notes TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS operational_activities (
		control_id TEXT NOT NULL REFERENCES controls(id),
		position INTEGER NOT NULL,
		activity TEXT NOT NULL,
		PRIMARY KEY (control_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_requirements_control ON evidence_requirements(control_id);
	CREATE INDEX IF NOT EXISTS idx_instances_requirement ON evidence_instances(requirement_id);
	CREATE INDEX IF NOT EXISTS idx_assessments_control ON assessments(control_id, assessed_at);
`

// OpenSQLite opens (creating if needed) a SQLite store
func OpenSQLite(config SQLiteConfig) (*SQLite, error) {
	if config.Path == "" {
		config.Path = "controlgap.db"
	}
	if config.BusyTimeout <= 0 {
		config.BusyTimeout = 5000
	}
	if config.MaxConnections <= 0 {
		config.MaxConnections = 4
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", config.Path, config.BusyTimeout)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	db.SetMaxOpenConns(config.MaxConnections)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the database
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Import replaces the database contents with the dataset
func (s *SQLite) Import(ctx context.Context, ds *Dataset) (err error) {
	cat, err := CatalogFor(ds)
	if err != nil {
		return err
	}
	if err := ds.Validate(cat.Has); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{
		"operational_activities", "manual_reviews", "control_setting_mappings", "settings",
		"assessments", "evidence_instances", "evidence_requirements", "controls", "families",
	} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, f := range cat.Families {
		if _, err = tx.ExecContext(ctx, `INSERT INTO families (code, number, name) VALUES (?, ?, ?)`,
			f.Code, f.Number, f.Name); err != nil {
			return fmt.Errorf("insert family %s: %w", f.Code, err)
		}
	}
	for _, c := range cat.Controls {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO controls (id, family, title, requirement, discussion, weight, exempt) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.Family, c.Title, c.Requirement, c.Discussion, int(c.Weight), c.Exempt); err != nil {
			return fmt.Errorf("insert control %s: %w", c.ID, err)
		}
	}

	for _, r := range ds.Requirements {
		req := r.Model()
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO evidence_requirements (id, control_id, type, name, description, rationale, frequency, freshness_days)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			req.ID, req.ControlID, string(req.Type), req.Name, req.Description, req.Rationale, req.Frequency, thresholdValue(req.FreshnessDays)); err != nil {
			return fmt.Errorf("insert requirement %s: %w", req.ID, err)
		}
		for _, inst := range req.Instances {
			var executed interface{}
			if inst.ExecutedAt != nil && !inst.ExecutedAt.IsZero() {
				executed = formatTime(*inst.ExecutedAt)
			}
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO evidence_instances (id, requirement_id, file_name, uploaded_at, executed_at) VALUES (?, ?, ?, ?, ?)`,
				inst.ID, req.ID, inst.FileName, formatTime(inst.UploadedAt), executed); err != nil {
				return fmt.Errorf("insert evidence instance %s: %w", inst.ID, err)
			}
		}
	}

	for _, a := range ds.Assessments {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO assessments (id, control_id, implemented, has_evidence, tested, meets_requirement, not_applicable, notes, assessed_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.ControlID, a.Implemented, a.HasEvidence, a.Tested, a.MeetsRequirement, a.NotApplicable, a.Notes, formatTime(a.AssessedAt)); err != nil {
			return fmt.Errorf("insert assessment %s: %w", a.ID, err)
		}
	}

	for _, st := range ds.Settings {
		if _, err = tx.ExecContext(ctx, `INSERT INTO settings (id, name, automated) VALUES (?, ?, ?)`,
			st.ID, st.Name, string(st.Automated)); err != nil {
			return fmt.Errorf("insert setting %s: %w", st.ID, err)
		}
		for _, c := range st.Controls {
			if _, err = tx.ExecContext(ctx, `INSERT OR IGNORE INTO control_setting_mappings (control_id, setting_id) VALUES (?, ?)`,
				c, st.ID); err != nil {
				return fmt.Errorf("map setting %s to %s: %w", st.ID, c, err)
			}
		}
		if m := st.Manual; m != nil {
			var reviewed interface{}
			if !m.ReviewedAt.IsZero() {
				reviewed = formatTime(m.ReviewedAt)
			}
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO manual_reviews (setting_id, status, reviewer, reviewed_at, notes) VALUES (?, ?, ?, ?, ?)`,
				st.ID, string(m.Status), m.Reviewer, reviewed, m.Notes); err != nil {
				return fmt.Errorf("insert manual review for %s: %w", st.ID, err)
			}
		}
	}

	for c, activities := range ds.Activities {
		for i, a := range activities {
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO operational_activities (control_id, position, activity) VALUES (?, ?, ?)`,
				c, i, a); err != nil {
				return fmt.Errorf("insert activity for %s: %w", c, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

// Controls returns every control ordered by id
func (s *SQLite) Controls(ctx context.Context) ([]model.Control, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, family, title, requirement, discussion, weight, exempt FROM controls ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query controls: %w", err)
	}
	defer rows.Close()

	var controls []model.Control
	for rows.Next() {
		c, err := scanControl(rows)
		if err != nil {
			return nil, err
		}
		controls = append(controls, c)
	}
	return controls, rows.Err()
}

// Control returns one control
func (s *SQLite) Control(ctx context.Context, id string) (model.Control, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, family, title, requirement, discussion, weight, exempt FROM controls WHERE id = ?`, id)
	c, err := scanControl(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Control{}, model.NotFoundf("control %s", id)
	}
	return c, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanControl(row scanner) (model.Control, error) {
	var c model.Control
	var weight int
	if err := row.Scan(&c.ID, &c.Family, &c.Title, &c.Requirement, &c.Discussion, &weight, &c.Exempt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c, err
		}
		return c, fmt.Errorf("scan control: %w", err)
	}
	c.Weight = model.PointWeight(weight)
	return c, nil
}

// Families returns every family ordered by code
func (s *SQLite) Families(ctx context.Context) ([]model.Family, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT code, number, name FROM families ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("query families: %w", err)
	}
	defer rows.Close()

	var families []model.Family
	for rows.Next() {
		var f model.Family
		if err := rows.Scan(&f.Code, &f.Number, &f.Name); err != nil {
			return nil, fmt.Errorf("scan family: %w", err)
		}
		families = append(families, f)
	}
	return families, rows.Err()
}

// Inputs loads the control's records
func (s *SQLite) Inputs(ctx context.Context, controlID string) (model.ControlInputs, error) {
	if _, err := s.Control(ctx, controlID); err != nil {
		return model.ControlInputs{}, err
	}

	var in model.ControlInputs
	var err error
	if in.Requirements, err = s.requirements(ctx, controlID); err != nil {
		return in, err
	}
	if in.Assessments, err = s.assessments(ctx, controlID); err != nil {
		return in, err
	}
	if in.Settings, err = s.settings(ctx, controlID); err != nil {
		return in, err
	}
	if in.Activities, err = s.activities(ctx, controlID); err != nil {
		return in, err
	}
	return in, nil
}

func (s *SQLite) requirements(ctx context.Context, controlID string) ([]model.EvidenceRequirement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, control_id, type, name, description, rationale, frequency, freshness_days
		 FROM evidence_requirements WHERE control_id = ? ORDER BY id`, controlID)
	if err != nil {
		return nil, fmt.Errorf("query requirements: %w", err)
	}
	defer rows.Close()

	var reqs []model.EvidenceRequirement
	index := make(map[string]int)
	for rows.Next() {
		var r model.EvidenceRequirement
		var typ string
		var threshold sql.NullFloat64
		if err := rows.Scan(&r.ID, &r.ControlID, &typ, &r.Name, &r.Description, &r.Rationale, &r.Frequency, &threshold); err != nil {
			return nil, fmt.Errorf("scan requirement: %w", err)
		}
		r.Type = model.EvidenceType(typ)
		r.FreshnessDays = math.NaN()
		if threshold.Valid {
			r.FreshnessDays = threshold.Float64
		}
		index[r.ID] = len(reqs)
		reqs = append(reqs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	inst, err := s.db.QueryContext(ctx,
		`SELECT i.id, i.requirement_id, i.file_name, i.uploaded_at, i.executed_at
		 FROM evidence_instances i JOIN evidence_requirements r ON r.id = i.requirement_id
		 WHERE r.control_id = ? ORDER BY i.requirement_id, i.id`, controlID)
	if err != nil {
		return nil, fmt.Errorf("query evidence instances: %w", err)
	}
	defer inst.Close()

	for inst.Next() {
		var e model.EvidenceInstance
		var reqID, uploaded string
		var executed sql.NullString
		if err := inst.Scan(&e.ID, &reqID, &e.FileName, &uploaded, &executed); err != nil {
			return nil, fmt.Errorf("scan evidence instance: %w", err)
		}
		if e.UploadedAt, err = parseTime(uploaded); err != nil {
			return nil, fmt.Errorf("evidence instance %s: %w", e.ID, err)
		}
		if executed.Valid {
			t, err := parseTime(executed.String)
			if err != nil {
				return nil, fmt.Errorf("evidence instance %s: %w", e.ID, err)
			}
			e.ExecutedAt = &t
		}
		i := index[reqID]
		reqs[i].Instances = append(reqs[i].Instances, e)
	}
	return reqs, inst.Err()
}

func (s *SQLite) assessments(ctx context.Context, controlID string) ([]model.AssessmentAnswer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, control_id, implemented, has_evidence, tested, meets_requirement, not_applicable, notes, assessed_at
		 FROM assessments WHERE control_id = ? ORDER BY assessed_at, id`, controlID)
	if err != nil {
		return nil, fmt.Errorf("query assessments: %w", err)
	}
	defer rows.Close()

	var answers []model.AssessmentAnswer
	for rows.Next() {
		var a model.AssessmentAnswer
		var assessed string
		if err := rows.Scan(&a.ID, &a.ControlID, &a.Implemented, &a.HasEvidence, &a.Tested,
			&a.MeetsRequirement, &a.NotApplicable, &a.Notes, &assessed); err != nil {
			return nil, fmt.Errorf("scan assessment: %w", err)
		}
		if a.AssessedAt, err = parseTime(assessed); err != nil {
			return nil, fmt.Errorf("assessment %s: %w", a.ID, err)
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

func (s *SQLite) settings(ctx context.Context, controlID string) ([]model.SettingResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.name, s.automated, mr.status, mr.reviewer, mr.reviewed_at, mr.notes
		 FROM control_setting_mappings m
		 JOIN settings s ON s.id = m.setting_id
		 LEFT JOIN manual_reviews mr ON mr.setting_id = s.id
		 WHERE m.control_id = ? ORDER BY s.id`, controlID)
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	var results []model.SettingResult
	for rows.Next() {
		var r model.SettingResult
		var automated string
		var status, reviewer, reviewed, notes sql.NullString
		if err := rows.Scan(&r.SettingID, &r.Name, &automated, &status, &reviewer, &reviewed, &notes); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		r.Automated = model.SettingStatus(automated)
		if status.Valid {
			r.Manual = &model.ManualReview{
				Status:   model.SettingStatus(status.String),
				Reviewer: reviewer.String,
				Notes:    notes.String,
			}
			if reviewed.Valid {
				if r.Manual.ReviewedAt, err = parseTime(reviewed.String); err != nil {
					return nil, fmt.Errorf("manual review of %s: %w", r.SettingID, err)
				}
			}
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *SQLite) activities(ctx context.Context, controlID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT activity FROM operational_activities WHERE control_id = ? ORDER BY position`, controlID)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	var activities []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// thresholdValue maps a NaN threshold to NULL; requirements() reads NULL back as NaN
func thresholdValue(days float64) interface{} {
	if math.IsNaN(days) {
		return nil
	}
	return days
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: malformed timestamp %q", model.ErrInvalidInput, s)
	}
	return t, nil
}
