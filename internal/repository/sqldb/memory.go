package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/memory-journal/internal/apperror"
	"github.com/sakif/memory-journal/internal/model"
	"github.com/sakif/memory-journal/internal/repository"
)

// defaultListLimit applies when a filter carries no limit.
const defaultListLimit = 50

const memoryColumns = `m.id, m.user_id, m.type, m.title, m.content, m.transcript, m.audio_url,
	m.audio_duration, m.image_url, m.video_url, m.attachments, m.people, m.location, m.emotion,
	m.date, m.prompt, m.visibility, m.is_public, m.share_token, m.created_at, m.updated_at`

// returningColumns is memoryColumns without the table alias, for UPDATE ... RETURNING.
var returningColumns = strings.ReplaceAll(memoryColumns, "m.", "")

func newID() string { return xid.New().String() }

// CreateMemory inserts memory, assigning ID and timestamps.
func (db *DB) CreateMemory(ctx context.Context, memory *model.Memory) error {
	now := time.Now().UTC()
	memory.ID = newID()
	memory.CreatedAt = now
	memory.UpdatedAt = now
	if memory.Date.IsZero() {
		memory.Date = now
	}
	if memory.Visibility == "" {
		memory.Visibility = model.VisibilityPrivate
	}

	people, attachments, err := encodeLists(memory)
	if err != nil {
		return err
	}

	_, err = db.conn.ExecContext(ctx, db.q(
		`INSERT INTO memories (id, user_id, type, title, content, transcript, audio_url,
			audio_duration, image_url, video_url, attachments, people, location, emotion,
			date, prompt, visibility, is_public, share_token, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		memory.ID, memory.UserID, memory.Type, memory.Title, memory.Content, memory.Transcript, memory.AudioURL,
		memory.AudioDuration, memory.ImageURL, memory.VideoURL, attachments, people, memory.Location, memory.Emotion,
		memory.Date.UTC(), memory.Prompt, memory.Visibility, memory.IsPublic, nullString(memory.ShareToken),
		memory.CreatedAt, memory.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: inserting memory: %w", db.name(), err)
	}
	return nil
}

func (db *DB) GetMemory(ctx context.Context, id string) (*model.Memory, error) {
	row := db.conn.QueryRowContext(ctx, db.q(`SELECT `+memoryColumns+` FROM memories m WHERE m.id = ?`), id)
	return db.oneMemory(row, id)
}

func (db *DB) GetMemoryByShareToken(ctx context.Context, token string) (*model.Memory, error) {
	if token == "" {
		return nil, apperror.NotFound("shared memory", token)
	}
	row := db.conn.QueryRowContext(ctx, db.q(`SELECT `+memoryColumns+` FROM memories m WHERE m.share_token = ?`), token)
	m, err := scanMemory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("shared memory", token)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: getting memory by share token: %w", db.name(), err)
	}
	return m, nil
}

// ListMemories builds the WHERE clause from the non-zero filter fields.
func (db *DB) ListMemories(ctx context.Context, f repository.MemoryFilter) ([]model.Memory, error) {
	var (
		where = []string{"m.user_id = ?"}
		args  = []any{f.UserID}
		like  = db.dialect.like
	)

	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + s + "%"
		where = append(where, fmt.Sprintf(
			"(m.content %[1]s ? OR m.transcript %[1]s ? OR m.title %[1]s ? OR m.location %[1]s ? OR m.emotion %[1]s ?)", like))
		args = append(args, pattern, pattern, pattern, pattern, pattern)
	}
	if f.Emotion != "" {
		where = append(where, "m.emotion = ?")
		args = append(args, f.Emotion)
	}
	if s := strings.TrimSpace(f.Location); s != "" {
		where = append(where, "m.location "+like+" ?")
		args = append(args, "%"+s+"%")
	}
	if people := lowerAll(f.People); len(people) > 0 {
		where = append(where, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM (%s) p WHERE lower(p.value) IN (%s))",
			db.dialect.jsonElements("m.people"), placeholders(len(people))))
		for _, p := range people {
			args = append(args, p)
		}
	}
	if !f.From.IsZero() {
		where = append(where, "m.date >= ?")
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		where = append(where, "m.date <= ?")
		args = append(args, f.To.UTC())
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	offset := max(f.Offset, 0)
	args = append(args, limit, offset)

	query := `SELECT ` + memoryColumns + ` FROM memories m WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY m.date DESC, m.created_at DESC LIMIT ? OFFSET ?`

	rows, err := db.conn.QueryContext(ctx, db.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("%s: listing memories: %w", db.name(), err)
	}
	return collectMemories(rows)
}

// UpdateMemory overwrites the editable fields. Ownership, sharing state and
// CreatedAt are left alone; they change through their own methods.
func (db *DB) UpdateMemory(ctx context.Context, memory *model.Memory) error {
	people, attachments, err := encodeLists(memory)
	if err != nil {
		return err
	}
	memory.UpdatedAt = time.Now().UTC()

	res, err := db.conn.ExecContext(ctx, db.q(
		`UPDATE memories SET type = ?, title = ?, content = ?, transcript = ?, audio_url = ?,
			audio_duration = ?, image_url = ?, video_url = ?, attachments = ?, people = ?,
			location = ?, emotion = ?, date = ?, prompt = ?, updated_at = ?
		 WHERE id = ?`),
		memory.Type, memory.Title, memory.Content, memory.Transcript, memory.AudioURL,
		memory.AudioDuration, memory.ImageURL, memory.VideoURL, attachments, people,
		memory.Location, memory.Emotion, memory.Date.UTC(), memory.Prompt, memory.UpdatedAt,
		memory.ID,
	)
	if err != nil {
		return fmt.Errorf("%s: updating memory %s: %w", db.name(), memory.ID, err)
	}
	return expectOneRow(res, "memory", memory.ID)
}

// DeleteMemory removes the memory and, through the foreign key, its shares.
func (db *DB) DeleteMemory(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, db.q(`DELETE FROM memories WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("%s: deleting memory %s: %w", db.name(), id, err)
	}
	return expectOneRow(res, "memory", id)
}

// SetShareToken is a single UPDATE, so the old token and the new one are never
// both valid.
func (db *DB) SetShareToken(ctx context.Context, id, token string) (*model.Memory, error) {
	row := db.conn.QueryRowContext(ctx, db.q(
		`UPDATE memories
		 SET share_token = ?, is_public = ?,
		     visibility = CASE WHEN visibility = ? THEN ? ELSE visibility END,
		     updated_at = ?
		 WHERE id = ?
		 RETURNING `+returningColumns),
		token, true, model.VisibilityPrivate, model.VisibilityShared, time.Now().UTC(), id,
	)
	return db.oneMemory(row, id)
}

func (db *DB) SetVisibility(ctx context.Context, id string, visibility model.Visibility) (*model.Memory, error) {
	query := `UPDATE memories SET visibility = ?, updated_at = ? WHERE id = ? RETURNING ` + returningColumns
	args := []any{visibility, time.Now().UTC(), id}
	if visibility == model.VisibilityPrivate {
		query = `UPDATE memories SET visibility = ?, is_public = ?, updated_at = ? WHERE id = ? RETURNING ` + returningColumns
		args = []any{visibility, false, time.Now().UTC(), id}
	}
	row := db.conn.QueryRowContext(ctx, db.q(query), args...)
	return db.oneMemory(row, id)
}

func (db *DB) oneMemory(row *sql.Row, id string) (*model.Memory, error) {
	m, err := scanMemory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("memory", id)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: reading memory %s: %w", db.name(), id, err)
	}
	return m, nil
}

func collectMemories(rows *sql.Rows) ([]model.Memory, error) {
	defer rows.Close()

	memories := []model.Memory{}
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning memory row: %w", err)
		}
		memories = append(memories, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating memory rows: %w", err)
	}
	return memories, nil
}

func scanMemory(row scanner) (*model.Memory, error) {
	var (
		m                   model.Memory
		attachments, people []byte
		token               sql.NullString
	)
	err := row.Scan(
		&m.ID, &m.UserID, &m.Type, &m.Title, &m.Content, &m.Transcript, &m.AudioURL,
		&m.AudioDuration, &m.ImageURL, &m.VideoURL, &attachments, &people, &m.Location, &m.Emotion,
		&m.Date, &m.Prompt, &m.Visibility, &m.IsPublic, &token, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.ShareToken = token.String

	m.People = []string{}
	m.Attachments = []model.Attachment{}
	if len(people) > 0 {
		if err := json.Unmarshal(people, &m.People); err != nil {
			return nil, fmt.Errorf("decoding people of memory %s: %w", m.ID, err)
		}
	}
	if len(attachments) > 0 {
		if err := json.Unmarshal(attachments, &m.Attachments); err != nil {
			return nil, fmt.Errorf("decoding attachments of memory %s: %w", m.ID, err)
		}
	}
	return &m, nil
}

// encodeLists serialises the JSON columns. Nil slices are stored as "[]".
func encodeLists(m *model.Memory) (people, attachments string, err error) {
	if m.People == nil {
		m.People = []string{}
	}
	if m.Attachments == nil {
		m.Attachments = []model.Attachment{}
	}
	p, err := json.Marshal(m.People)
	if err != nil {
		return "", "", fmt.Errorf("encoding people: %w", err)
	}
	a, err := json.Marshal(m.Attachments)
	if err != nil {
		return "", "", fmt.Errorf("encoding attachments: %w", err)
	}
	return string(p), string(a), nil
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
