// Package sqlite provides a SQLite-backed document store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"pwcal/internal/models"
	"pwcal/internal/store"
	"pwcal/internal/store/sqlite/migrations"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store persists projects, events and invitations in SQLite.
type Store struct {
	sqlDB *sql.DB
	q     queryer
	inTx  bool
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Open opens a SQLite store at path and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection keeps transactions and plain statements from racing for the write lock.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, q: sqlDB}, nil
}

// Close closes the SQLite handle. Transaction-scoped stores do not own it.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil || s.inTx {
		return nil
	}
	return s.sqlDB.Close()
}

// Atomically runs fn inside one SQL transaction. Nested calls join the outer one.
func (s *Store) Atomically(ctx context.Context, fn func(ctx context.Context, s store.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(ctx, &Store{sqlDB: s.sqlDB, q: tx, inTx: true}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// withTx runs fn against a transaction, reusing the current one if any.
func (s *Store) withTx(ctx context.Context, fn func(q queryer) error) error {
	if s.inTx {
		return fn(s.q)
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// --- Projects ---

// CreateProject inserts a project and its initial editors.
func (s *Store) CreateProject(ctx context.Context, p models.Project) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.withTx(ctx, func(q queryer) error {
		var launch sql.NullInt64
		if p.LaunchDate != nil {
			launch = sql.NullInt64{Int64: toMillis(*p.LaunchDate), Valid: true}
		}
		_, err := q.ExecContext(ctx,
			`INSERT INTO projects (id, name, description, location, launch_date, creator, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Name, p.Description, p.Location, launch, p.Creator,
			toMillis(p.CreatedAt), toMillis(p.UpdatedAt),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return store.ErrConflict
			}
			return fmt.Errorf("create project: %w", err)
		}
		for _, email := range p.Editors {
			if _, err := q.ExecContext(ctx,
				`INSERT OR IGNORE INTO project_editors (project_id, email, added_at) VALUES (?, ?, ?)`,
				p.ID, email, toMillis(p.CreatedAt),
			); err != nil {
				return fmt.Errorf("create project editor: %w", err)
			}
		}
		return nil
	})
}

// GetProject returns one project with its editors.
func (s *Store) GetProject(ctx context.Context, id string) (models.Project, error) {
	if err := ctx.Err(); err != nil {
		return models.Project{}, err
	}
	row := s.q.QueryRowContext(ctx,
		`SELECT id, name, description, location, launch_date, creator, created_at, updated_at
		   FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Project{}, store.ErrNotFound
		}
		return models.Project{}, fmt.Errorf("get project: %w", err)
	}
	if p.Editors, err = s.loadEditors(ctx, s.q, id); err != nil {
		return models.Project{}, err
	}
	return p, nil
}

// UpdateProject applies the non-nil patch fields.
func (s *Store) UpdateProject(ctx context.Context, id string, patch models.ProjectPatch, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sets := []string{"updated_at = ?"}
	args := []any{toMillis(now)}
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Location != nil {
		sets = append(sets, "location = ?")
		args = append(args, *patch.Location)
	}
	if patch.LaunchDate != nil {
		sets = append(sets, "launch_date = ?")
		args = append(args, toMillis(*patch.LaunchDate))
	}
	args = append(args, id)

	res, err := s.q.ExecContext(ctx, `UPDATE projects SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return requireAffected(res, "update project")
}

// DeleteProject removes a project and its invitations. Editors cascade.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.withTx(ctx, func(q queryer) error {
		res, err := q.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		if err := requireAffected(res, "delete project"); err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx, `DELETE FROM invitations WHERE project_id = ?`, id); err != nil {
			return fmt.Errorf("delete project invitations: %w", err)
		}
		return nil
	})
}

// ListProjectsByMember returns projects email created or edits.
func (s *Store) ListProjectsByMember(ctx context.Context, email string) ([]models.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, name, description, location, launch_date, creator, created_at, updated_at
		   FROM projects
		  WHERE creator = ?
		     OR id IN (SELECT project_id FROM project_editors WHERE email = ?)
		  ORDER BY created_at ASC, id ASC`, email, email)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	var list []models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("list projects: %w", err)
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("list projects: %w", err)
	}
	rows.Close()

	for i := range list {
		if list[i].Editors, err = s.loadEditors(ctx, s.q, list[i].ID); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// AddProjectEditor inserts email into the editor set if absent.
func (s *Store) AddProjectEditor(ctx context.Context, projectID, email string, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.withTx(ctx, func(q queryer) error {
		if err := projectExists(ctx, q, projectID); err != nil {
			return err
		}
		res, err := q.ExecContext(ctx,
			`INSERT OR IGNORE INTO project_editors (project_id, email, added_at) VALUES (?, ?, ?)`,
			projectID, email, toMillis(now))
		if err != nil {
			return fmt.Errorf("add project editor: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			if _, err := q.ExecContext(ctx, `UPDATE projects SET updated_at = ? WHERE id = ?`, toMillis(now), projectID); err != nil {
				return fmt.Errorf("add project editor: %w", err)
			}
		}
		return nil
	})
}

// RemoveProjectEditor deletes email from the editor set if present.
func (s *Store) RemoveProjectEditor(ctx context.Context, projectID, email string, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.withTx(ctx, func(q queryer) error {
		if err := projectExists(ctx, q, projectID); err != nil {
			return err
		}
		res, err := q.ExecContext(ctx, `DELETE FROM project_editors WHERE project_id = ? AND email = ?`, projectID, email)
		if err != nil {
			return fmt.Errorf("remove project editor: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			if _, err := q.ExecContext(ctx, `UPDATE projects SET updated_at = ? WHERE id = ?`, toMillis(now), projectID); err != nil {
				return fmt.Errorf("remove project editor: %w", err)
			}
		}
		return nil
	})
}

func projectExists(ctx context.Context, q queryer, id string) error {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects WHERE id = ?`, id).Scan(&n); err != nil {
		return fmt.Errorf("check project: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) loadEditors(ctx context.Context, q queryer, projectID string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT email FROM project_editors WHERE project_id = ? ORDER BY added_at ASC, rowid ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("load editors: %w", err)
	}
	defer rows.Close()
	editors := []string{}
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("load editors: %w", err)
		}
		editors = append(editors, email)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load editors: %w", err)
	}
	return editors, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (models.Project, error) {
	var p models.Project
	var launch sql.NullInt64
	var createdAt, updatedAt int64
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Location, &launch, &p.Creator, &createdAt, &updatedAt); err != nil {
		return models.Project{}, err
	}
	if launch.Valid {
		d := fromMillis(launch.Int64)
		p.LaunchDate = &d
	}
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	p.Editors = []string{}
	return p, nil
}

// --- Events ---

// CreateEvent inserts an event with its initial log entries.
func (s *Store) CreateEvent(ctx context.Context, ev models.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	participants, err := json.Marshal(nonNil(ev.Participants))
	if err != nil {
		return fmt.Errorf("encode participants: %w", err)
	}
	return s.withTx(ctx, func(q queryer) error {
		_, err := q.ExecContext(ctx,
			`INSERT INTO events (id, project_id, title, description, participants, start_at, end_at, all_day, deleted, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ev.ID, ev.ProjectID, ev.Title, ev.Description, string(participants),
			toMillis(ev.Start), toMillis(ev.End), boolToInt(ev.AllDay), boolToInt(ev.Deleted),
			toMillis(ev.CreatedAt), toMillis(ev.UpdatedAt),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return store.ErrConflict
			}
			return fmt.Errorf("create event: %w", err)
		}
		for _, entry := range ev.Logs {
			if err := appendLog(ctx, q, ev.ID, entry); err != nil {
				return err
			}
		}
		return nil
	})
}

const eventColumns = `id, project_id, title, description, participants, start_at, end_at, all_day, deleted, created_at, updated_at`

// GetEvent returns one event, deleted or not, with its full log.
func (s *Store) GetEvent(ctx context.Context, id string) (models.Event, error) {
	if err := ctx.Err(); err != nil {
		return models.Event{}, err
	}
	ev, err := scanEvent(s.q.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Event{}, store.ErrNotFound
		}
		return models.Event{}, fmt.Errorf("get event: %w", err)
	}
	logs, err := s.loadLogs(ctx, `SELECT event_id, logged_at, timezone, user_email, action, details
		FROM event_logs WHERE event_id = ? ORDER BY seq ASC`, id)
	if err != nil {
		return models.Event{}, err
	}
	ev.Logs = logs[id]
	return ev, nil
}

// UpdateEvent applies patch to a live event and appends entry in one transaction.
func (s *Store) UpdateEvent(ctx context.Context, id string, patch models.EventPatch, entry models.EventLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sets := []string{"updated_at = ?"}
	args := []any{toMillis(entry.Timestamp)}
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Participants != nil {
		participants, err := json.Marshal(nonNil(*patch.Participants))
		if err != nil {
			return fmt.Errorf("encode participants: %w", err)
		}
		sets = append(sets, "participants = ?")
		args = append(args, string(participants))
	}
	if patch.Start != nil {
		sets = append(sets, "start_at = ?")
		args = append(args, toMillis(*patch.Start))
	}
	if patch.End != nil {
		sets = append(sets, "end_at = ?")
		args = append(args, toMillis(*patch.End))
	}
	if patch.AllDay != nil {
		sets = append(sets, "all_day = ?")
		args = append(args, boolToInt(*patch.AllDay))
	}
	args = append(args, id)
	query := `UPDATE events SET ` + strings.Join(sets, ", ") + ` WHERE id = ? AND deleted = 0`

	return s.withTx(ctx, func(q queryer) error {
		res, err := q.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("update event: %w", err)
		}
		if err := requireAffected(res, "update event"); err != nil {
			return err
		}
		return appendLog(ctx, q, id, entry)
	})
}

// SoftDeleteEvent flags a live event deleted and appends entry.
func (s *Store) SoftDeleteEvent(ctx context.Context, id string, entry models.EventLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.withTx(ctx, func(q queryer) error {
		res, err := q.ExecContext(ctx,
			`UPDATE events SET deleted = 1, updated_at = ? WHERE id = ? AND deleted = 0`,
			toMillis(entry.Timestamp), id)
		if err != nil {
			return fmt.Errorf("delete event: %w", err)
		}
		if err := requireAffected(res, "delete event"); err != nil {
			return err
		}
		return appendLog(ctx, q, id, entry)
	})
}

// ListProjectEvents returns live events of a project in start order.
func (s *Store) ListProjectEvents(ctx context.Context, projectID string) ([]models.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events
		  WHERE project_id = ? AND deleted = 0
		  ORDER BY start_at ASC, created_at ASC, id ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	list := make([]models.Event, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("list events: %w", err)
		}
		list = append(list, ev)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("list events: %w", err)
	}
	rows.Close()

	logs, err := s.loadLogs(ctx, `SELECT l.event_id, l.logged_at, l.timezone, l.user_email, l.action, l.details
		FROM event_logs l JOIN events e ON e.id = l.event_id
		WHERE e.project_id = ? AND e.deleted = 0
		ORDER BY l.event_id ASC, l.seq ASC`, projectID)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Logs = logs[list[i].ID]
	}
	return list, nil
}

func appendLog(ctx context.Context, q queryer, eventID string, entry models.EventLog) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO event_logs (event_id, seq, logged_at, timezone, user_email, action, details)
		 SELECT ?, COALESCE(MAX(seq), 0) + 1, ?, ?, ?, ?, ? FROM event_logs WHERE event_id = ?`,
		eventID, toMillis(entry.Timestamp), entry.Timezone, entry.User, string(entry.Action), entry.Details, eventID)
	if err != nil {
		return fmt.Errorf("append event log: %w", err)
	}
	return nil
}

func (s *Store) loadLogs(ctx context.Context, query string, arg string) (map[string][]models.EventLog, error) {
	rows, err := s.q.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("load event logs: %w", err)
	}
	defer rows.Close()
	logs := make(map[string][]models.EventLog)
	for rows.Next() {
		var eventID, action string
		var at int64
		var entry models.EventLog
		if err := rows.Scan(&eventID, &at, &entry.Timezone, &entry.User, &action, &entry.Details); err != nil {
			return nil, fmt.Errorf("load event logs: %w", err)
		}
		entry.Timestamp = fromMillis(at)
		entry.Action = models.LogAction(action)
		logs[eventID] = append(logs[eventID], entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load event logs: %w", err)
	}
	return logs, nil
}

func scanEvent(row scanner) (models.Event, error) {
	var ev models.Event
	var participants string
	var start, end, createdAt, updatedAt int64
	var allDay, deleted int
	if err := row.Scan(&ev.ID, &ev.ProjectID, &ev.Title, &ev.Description, &participants,
		&start, &end, &allDay, &deleted, &createdAt, &updatedAt); err != nil {
		return models.Event{}, err
	}
	if err := json.Unmarshal([]byte(participants), &ev.Participants); err != nil {
		return models.Event{}, fmt.Errorf("decode participants: %w", err)
	}
	ev.Participants = nonNil(ev.Participants)
	ev.Start = fromMillis(start)
	ev.End = fromMillis(end)
	ev.AllDay = allDay != 0
	ev.Deleted = deleted != 0
	ev.CreatedAt = fromMillis(createdAt)
	ev.UpdatedAt = fromMillis(updatedAt)
	return ev, nil
}

// --- Invitations ---

// CreateInvitation inserts one invitation.
func (s *Store) CreateInvitation(ctx context.Context, inv models.Invitation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO invitations (id, project_id, invitee_email, role, status, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.ProjectID, inv.InviteeEmail, inv.Role, string(inv.Status),
		toMillis(inv.CreatedAt), toMillis(inv.ExpiresAt))
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("create invitation: %w", err)
	}
	return nil
}

const invitationColumns = `id, project_id, invitee_email, role, status, created_at, expires_at`

// GetInvitation returns one invitation.
func (s *Store) GetInvitation(ctx context.Context, id string) (models.Invitation, error) {
	if err := ctx.Err(); err != nil {
		return models.Invitation{}, err
	}
	inv, err := scanInvitation(s.q.QueryRowContext(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Invitation{}, store.ErrNotFound
		}
		return models.Invitation{}, fmt.Errorf("get invitation: %w", err)
	}
	return inv, nil
}

// ListInvitations returns invitations matching filter in creation order.
func (s *Store) ListInvitations(ctx context.Context, filter store.InvitationFilter) ([]models.Invitation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	where := []string{"1 = 1"}
	var args []any
	if filter.ProjectID != "" {
		where = append(where, "project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if filter.InviteeEmail != "" {
		where = append(where, "invitee_email = ?")
		args = append(args, filter.InviteeEmail)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if !filter.ExpiresAfter.IsZero() {
		where = append(where, "expires_at > ?")
		args = append(args, toMillis(filter.ExpiresAfter))
	}
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE `+strings.Join(where, " AND ")+
			` ORDER BY created_at ASC, id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	defer rows.Close()
	list := make([]models.Invitation, 0)
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("list invitations: %w", err)
		}
		list = append(list, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return list, nil
}

// UpdateInvitationStatus performs a guarded status transition.
func (s *Store) UpdateInvitationStatus(ctx context.Context, id string, from, to models.InvitationStatus, liveAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var res sql.Result
	var err error
	if liveAt.IsZero() {
		res, err = s.q.ExecContext(ctx,
			`UPDATE invitations SET status = ? WHERE id = ? AND status = ?`,
			string(to), id, string(from))
	} else {
		res, err = s.q.ExecContext(ctx,
			`UPDATE invitations SET status = ? WHERE id = ? AND status = ? AND expires_at > ?`,
			string(to), id, string(from), toMillis(liveAt))
	}
	if err != nil {
		return fmt.Errorf("update invitation status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update invitation status: %w", err)
	}
	if n > 0 {
		return nil
	}
	var exists int
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM invitations WHERE id = ?`, id).Scan(&exists); err != nil {
		return fmt.Errorf("update invitation status: %w", err)
	}
	if exists == 0 {
		return store.ErrNotFound
	}
	return store.ErrConflict
}

func scanInvitation(row scanner) (models.Invitation, error) {
	var inv models.Invitation
	var status string
	var createdAt, expiresAt int64
	if err := row.Scan(&inv.ID, &inv.ProjectID, &inv.InviteeEmail, &inv.Role, &status, &createdAt, &expiresAt); err != nil {
		return models.Invitation{}, err
	}
	inv.Status = models.InvitationStatus(status)
	inv.CreatedAt = fromMillis(createdAt)
	inv.ExpiresAt = fromMillis(expiresAt)
	return inv, nil
}

// --- helpers ---

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ store.Store = (*Store)(nil)
