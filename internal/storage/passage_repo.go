package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_passage_store.go -package=mocks medassist-ai/internal/storage PassageStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// meshTermSeparator joins MeSH terms into one TEXT column. Terms themselves
// can contain commas ("Atrial Fibrillation, Paroxysmal"), so they are joined
// on a character that never appears in a subject heading.
const meshTermSeparator = ";"

// PassageStore defines the interface for evidence passage storage operations.
type PassageStore interface {
	// Insert inserts a single passage into the database.
	// The passage.ID must be set (UUID) before calling this method.
	Insert(ctx context.Context, passage *PassageRecord) error
	// GetByID gets a passage by its ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*PassageRecord, error)
	// SearchKeyword returns passages whose title or content contains any of
	// the given tokens, restricted to evidence levels at or better than
	// maxEvidenceLevel (0 disables the filter). Results are unscored
	// candidates; the caller ranks them lexically.
	SearchKeyword(ctx context.Context, tokens []string, maxEvidenceLevel, limit int) ([]*PassageRecord, error)
	// Count returns the total number of indexed passages.
	Count(ctx context.Context) (int, error)
}

// PassageRepo provides methods for passage operations.
// It implements the PassageStore interface.
type PassageRepo struct {
	db *sql.DB
}

// NewPassageRepo creates a new PassageRepo.
func NewPassageRepo(db *sql.DB) *PassageRepo {
	return &PassageRepo{db: db}
}

// Insert inserts a single passage into the database.
func (r *PassageRepo) Insert(ctx context.Context, passage *PassageRecord) error {
	if passage.ID == "" {
		return fmt.Errorf("passage ID must be set")
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO passages (id, source, title, content, evidence_level, mesh_terms, year, study_type)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		passage.ID, passage.Source, passage.Title, passage.Content,
		passage.EvidenceLevel, joinMeshTerms(passage.MeshTerms), passage.Year, passage.StudyType,
	)
	if err != nil {
		return fmt.Errorf("failed to insert passage: %w", err)
	}
	return nil
}

// GetByID gets a passage by its ID. Returns ErrNotFound if not found.
func (r *PassageRepo) GetByID(ctx context.Context, id string) (*PassageRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, source, title, content, evidence_level, mesh_terms, year, study_type, created_at
		 FROM passages WHERE id = ?`, id)

	passage, err := scanPassage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get passage: %w", err)
	}
	return passage, nil
}

// SearchKeyword returns candidate passages containing any of the given tokens.
func (r *PassageRepo) SearchKeyword(ctx context.Context, tokens []string, maxEvidenceLevel, limit int) ([]*PassageRecord, error) {
	if len(tokens) == 0 {
		return []*PassageRecord{}, nil
	}
	if limit <= 0 {
		limit = 50
	}

	var conditions []string
	var args []any
	for _, token := range tokens {
		conditions = append(conditions, "(title LIKE ? OR content LIKE ?)")
		pattern := "%" + escapeLike(token) + "%"
		args = append(args, pattern, pattern)
	}

	query := `SELECT id, source, title, content, evidence_level, mesh_terms, year, study_type, created_at
		FROM passages WHERE (` + strings.Join(conditions, " OR ") + `)`
	if maxEvidenceLevel > 0 {
		query += " AND evidence_level <= ?"
		args = append(args, maxEvidenceLevel)
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search passages: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	passages := make([]*PassageRecord, 0)
	for rows.Next() {
		passage, err := scanPassage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan passage: %w", err)
		}
		passages = append(passages, passage)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate passages: %w", err)
	}

	return passages, nil
}

// Count returns the total number of indexed passages.
func (r *PassageRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM passages").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count passages: %w", err)
	}
	return count, nil
}

// scanner abstracts over *sql.Row and *sql.Rows for shared scan logic.
type scanner interface {
	Scan(dest ...any) error
}

func scanPassage(s scanner) (*PassageRecord, error) {
	var passage PassageRecord
	var meshTerms string
	if err := s.Scan(
		&passage.ID, &passage.Source, &passage.Title, &passage.Content,
		&passage.EvidenceLevel, &meshTerms, &passage.Year, &passage.StudyType,
		&passage.CreatedAt,
	); err != nil {
		return nil, err
	}
	passage.MeshTerms = splitMeshTerms(meshTerms)
	return &passage, nil
}

func joinMeshTerms(terms []string) string {
	cleaned := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term != "" {
			cleaned = append(cleaned, term)
		}
	}
	return strings.Join(cleaned, meshTermSeparator)
}

func splitMeshTerms(joined string) []string {
	if joined == "" {
		return []string{}
	}
	parts := strings.Split(joined, meshTermSeparator)
	terms := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			terms = append(terms, part)
		}
	}
	return terms
}

// escapeLike strips LIKE wildcards from a user-derived token so it matches literally.
func escapeLike(token string) string {
	token = strings.ReplaceAll(token, `%`, ``)
	token = strings.ReplaceAll(token, `_`, ``)
	return token
}
