package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/vidhikguru/nyaya-rag/internal/domain"
)

// DefaultTable holds the passages when no table is configured.
const DefaultTable = "constitution_passages"

// PostgresConfig configures a PostgresStore.
type PostgresConfig struct {
	URL    string
	Table  string
	Logger *slog.Logger
}

// PostgresStore keeps the index in a pgvector table. ReplaceAll runs in one
// transaction, so readers see the old rows until commit.
type PostgresStore struct {
	pool   *pgxpool.Pool
	table  string
	logger *slog.Logger
}

// NewPostgresStore connects, pings and ensures the schema exists.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	pool, err := pgxpool.New(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to database: %w", domain.ErrDependencyUnavailable, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %w: %v", domain.ErrDependencyUnavailable, ErrPostgresUnreachable, err)
	}

	s := &PostgresStore{
		pool:   pool,
		table:  pgx.Identifier{cfg.Table}.Sanitize(),
		logger: cfg.Logger,
	}

	if err := s.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// initialize sets up the extension and table. The vector column is left
// unsized so the embedding model can change between reindexes.
func (s *PostgresStore) initialize(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("%w: failed to create vector extension: %w", domain.ErrDependencyUnavailable, err)
	}

	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			seq INTEGER PRIMARY KEY,
			content TEXT NOT NULL,
			part_no TEXT NOT NULL,
			part_name TEXT NOT NULL,
			article_no TEXT NOT NULL,
			article_name TEXT NOT NULL,
			embedding vector NOT NULL
		)`, s.table))
	if err != nil {
		return fmt.Errorf("%w: failed to create passages table: %w", domain.ErrDependencyUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) ReplaceAll(ctx context.Context, records []domain.Record) error {
	if _, err := validateRecords(records); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %w", domain.ErrIndexWrite, err)
	}
	defer func() {
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s`, s.table)); err != nil {
		return fmt.Errorf("%w: clear passages: %w", domain.ErrIndexWrite, err)
	}

	insert := fmt.Sprintf(`
		INSERT INTO %s (seq, content, part_no, part_name, article_no, article_name, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7::vector)`, s.table)

	for i := 0; i < len(records); i += upsertBatchSize {
		end := min(i+upsertBatchSize, len(records))

		batch := &pgx.Batch{}
		for j := i; j < end; j++ {
			r := records[j]
			batch.Queue(insert,
				j,
				r.Content,
				r.Metadata.PartNo,
				r.Metadata.PartName,
				r.Metadata.ArticleNo,
				r.Metadata.ArticleName,
				pgvector.NewVector(r.Embedding))
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("%w: insert batch %d-%d: %w", domain.ErrIndexWrite, i, end, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		// The server may or may not have applied the commit.
		return fmt.Errorf("%w: commit: %w", domain.ErrIndexCorrupted, err)
	}

	s.logger.Info("postgres index replaced", "table", s.table, "rows", len(records))
	return nil
}

func (s *PostgresStore) Search(ctx context.Context, vector []float32, k, fetchK int) ([]domain.ScoredPassage, error) {
	k, fetchK = clampFetch(k, fetchK)
	if k == 0 {
		return []domain.ScoredPassage{}, nil
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT content, part_no, part_name, article_no, article_name,
		       1 - (embedding <=> $1::vector) AS score
		FROM %s
		ORDER BY embedding <=> $1::vector, seq
		LIMIT $2`, s.table),
		pgvector.NewVector(vector), fetchK)
	if err != nil {
		return nil, s.classify(err, "search")
	}

	scored, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ScoredPassage, error) {
		var sp domain.ScoredPassage
		err := row.Scan(
			&sp.Content,
			&sp.Metadata.PartNo,
			&sp.Metadata.PartName,
			&sp.Metadata.ArticleNo,
			&sp.Metadata.ArticleName,
			&sp.Score)
		return sp, err
	})
	if err != nil {
		return nil, s.classify(err, "search")
	}

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func (s *PostgresStore) LexicalSearch(ctx context.Context, query string, limit int) ([]domain.Passage, error) {
	if query == "" || limit <= 0 {
		return []domain.Passage{}, nil
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT content, part_no, part_name, article_no, article_name
		FROM %s
		WHERE strpos(lower(content), lower($1)) > 0
		ORDER BY seq
		LIMIT $2`, s.table),
		query, limit)
	if err != nil {
		return nil, s.classify(err, "lexical search")
	}

	passages, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Passage, error) {
		var p domain.Passage
		err := row.Scan(
			&p.Content,
			&p.Metadata.PartNo,
			&p.Metadata.PartName,
			&p.Metadata.ArticleNo,
			&p.Metadata.ArticleName)
		return p, err
	})
	if err != nil {
		return nil, s.classify(err, "lexical search")
	}
	return passages, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`, s.table)).Scan(&n)
	if err != nil {
		return 0, s.classify(err, "count")
	}
	return n, nil
}

func (s *PostgresStore) Health(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return s.classify(err, "ping")
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) classify(err error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("postgres %s: %w", op, err)
	}
	return fmt.Errorf("%w: postgres %s: %w", domain.ErrDependencyUnavailable, op, err)
}
