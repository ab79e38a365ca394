package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mbarlow/lectern-api/internal/domain"
	"github.com/mbarlow/lectern-api/internal/service"
	"github.com/mbarlow/lectern-api/internal/store"
)

// ContentStore implements service.ContentStore on PostgreSQL.
type ContentStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewContentStore creates a PostgreSQL-backed content store. The database
// connection is initialized and managed by the caller. If logger is nil, a
// default logger is used.
func NewContentStore(db *sql.DB, logger *slog.Logger) *ContentStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ContentStore{
		db:     db,
		logger: logger.With(slog.String("component", "content_store")),
	}
}

var _ service.ContentStore = (*ContentStore)(nil)

// SaveContent persists the content and all of its paragraphs, keywords, and
// visuals in a single transaction. Visual and keyword types are resolved
// against their lookup tables; an unknown type fails the whole save.
func (s *ContentStore) SaveContent(ctx context.Context, content *domain.EducationalContent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	visualTypes, err := loadTypeIDs(ctx, tx, "visual_types")
	if err != nil {
		return err
	}
	keywordTypes, err := loadTypeIDs(ctx, tx, "keyword_types")
	if err != nil {
		return err
	}

	var contentID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO contents (course_id, chapter_id, video_name)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		content.CourseID, content.ChapterID, content.VideoName,
	).Scan(&contentID)
	if err != nil {
		return MapError(fmt.Errorf("failed to insert content: %w", err))
	}

	for i := range content.Paragraphs {
		if err := s.saveParagraph(ctx, tx, contentID, &content.Paragraphs[i], visualTypes, keywordTypes); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit content: %w", err)
	}

	s.logger.InfoContext(ctx, "content saved",
		"content_id", contentID,
		"paragraph_count", len(content.Paragraphs))
	return nil
}

func (s *ContentStore) saveParagraph(
	ctx context.Context,
	tx store.DBTX,
	contentID int64,
	p *domain.Paragraph,
	visualTypes, keywordTypes map[string]int64,
) error {
	words, err := json.Marshal(p.Words)
	if err != nil {
		return fmt.Errorf("failed to encode paragraph %d words: %w", p.ID, err)
	}

	var paragraphID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO paragraphs (content_id, paragraph_index, paragraph_text, start_time, end_time, words)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		contentID, p.ID, p.Text, p.StartTime, p.EndTime, words,
	).Scan(&paragraphID)
	if err != nil {
		return MapError(fmt.Errorf("failed to insert paragraph %d: %w", p.ID, err))
	}

	for _, kw := range p.Keywords {
		typeID, ok := keywordTypes[string(kw.Type)]
		if !ok {
			return fmt.Errorf("%w: %q in paragraph %d", ErrUnknownKeywordType, kw.Type, p.ID)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO keywords (paragraph_id, keyword_text, type_id)
			 VALUES ($1, $2, $3)`,
			paragraphID, kw.Text, typeID,
		)
		if err != nil {
			return MapError(fmt.Errorf("failed to insert keyword for paragraph %d: %w", p.ID, err))
		}
	}

	if p.Visual != nil {
		typeID, ok := visualTypes[string(p.Visual.Type)]
		if !ok {
			return fmt.Errorf("%w: %q in paragraph %d", ErrUnknownVisualType, p.Visual.Type, p.ID)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO visuals (paragraph_id, type_id, visual_content, start_time)
			 VALUES ($1, $2, $3, $4)`,
			paragraphID, typeID, []byte(p.Visual.Content), p.Visual.StartTime,
		)
		if err != nil {
			return MapError(fmt.Errorf("failed to insert visual for paragraph %d: %w", p.ID, err))
		}
	}

	return nil
}

// loadTypeIDs reads a name-to-id lookup table into a map.
func loadTypeIDs(ctx context.Context, tx store.DBTX, table string) (map[string]int64, error) {
	// table is one of two compile-time constants, never user input.
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`SELECT id, name FROM %s`, table))
	if err != nil {
		return nil, MapError(fmt.Errorf("failed to load %s: %w", table, err))
	}
	defer func() { _ = rows.Close() }()

	ids := make(map[string]int64)
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		ids[name] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", table, err)
	}
	return ids, nil
}
