package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/harmattan-labs/docent/internal/core"
)

// PgVectorStore keeps one table per logical index, tracked in a registry
// table so index names stay arbitrary strings while table names stay valid
// identifiers. Rows are keyed by chunk id; writing an existing id overwrites
// it, which is what makes re-ingestion idempotent.
type PgVectorStore struct {
	db *sql.DB
}

func NewPgVectorStore(db *sql.DB) *PgVectorStore {
	return &PgVectorStore{db: db}
}

const registryDDL = `
	CREATE TABLE IF NOT EXISTS vector_indexes (
		name       text PRIMARY KEY,
		table_name text NOT NULL UNIQUE,
		dimension  int  NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now()
	)
`

func (s *PgVectorStore) EnsureIndex(ctx context.Context, name string, dimension int) error {
	if _, err := s.db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("ensure pgvector extension: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, registryDDL); err != nil {
		return fmt.Errorf("ensure index registry: %w", err)
	}

	table := tableName(name)
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			chunk_id    text PRIMARY KEY,
			text        text NOT NULL,
			source      text NOT NULL,
			page        int  NOT NULL,
			type        text NOT NULL,
			chunk_index int  NOT NULL,
			embedding   vector(%d) NOT NULL,
			created_at  timestamptz NOT NULL DEFAULT now()
		)`, table, dimension)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create index table %s: %w", table, err)
	}
	idx := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_source_idx ON %s (source)`, table, table)
	if _, err := s.db.ExecContext(ctx, idx); err != nil {
		return fmt.Errorf("create source index on %s: %w", table, err)
	}

	const reg = `
		INSERT INTO vector_indexes (name, table_name, dimension)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, reg, name, table, dimension); err != nil {
		return fmt.Errorf("register index %s: %w", name, err)
	}
	return nil
}

// Upsert embeds the batch and writes it in one transaction.
func (s *PgVectorStore) Upsert(ctx context.Context, index string, docs []core.ChunkDocument, embed core.EmbedFunc) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	vectors, err := embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed batch: %w", err)
	}
	if len(vectors) != len(docs) {
		return fmt.Errorf("embedding count mismatch: %d vectors for %d chunks", len(vectors), len(docs))
	}

	table, err := s.lookupTable(ctx, index)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	q := fmt.Sprintf(`
		INSERT INTO %s (chunk_id, text, source, page, type, chunk_index, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (chunk_id) DO UPDATE SET
			text = EXCLUDED.text,
			source = EXCLUDED.source,
			page = EXCLUDED.page,
			type = EXCLUDED.type,
			chunk_index = EXCLUDED.chunk_index,
			embedding = EXCLUDED.embedding
	`, table)
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range docs {
		d := &docs[i]
		vec := pgvector.NewVector(vectors[i])
		if _, err := stmt.ExecContext(ctx,
			d.Metadata.ChunkID, d.Text, d.Metadata.Source, d.Metadata.Page,
			d.Metadata.Type, d.Metadata.ChunkIndex, vec,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert chunk %s: %w", d.Metadata.ChunkID, err)
		}
	}
	return tx.Commit()
}

// Query runs a cosine-distance search; score is 1 - distance so higher is
// better.
func (s *PgVectorStore) Query(ctx context.Context, index string, vector []float32, k int, filter map[string]string) ([]core.ScoredDocument, error) {
	table, err := s.lookupTable(ctx, index)
	if err != nil {
		return nil, err
	}

	where, args := buildFilter(filter, 2)
	args = append([]any{pgvector.NewVector(vector)}, args...)
	args = append(args, k)

	q := fmt.Sprintf(`
		SELECT chunk_id, text, source, page, type, chunk_index, 1 - (embedding <=> $1) AS score
		FROM %s
		%s
		ORDER BY embedding <=> $1
		LIMIT $%d
	`, table, where, len(args))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query index %s: %w", index, err)
	}
	defer rows.Close()

	var out []core.ScoredDocument
	for rows.Next() {
		var d core.ScoredDocument
		if err := rows.Scan(
			&d.Metadata.ChunkID, &d.Text, &d.Metadata.Source, &d.Metadata.Page,
			&d.Metadata.Type, &d.Metadata.ChunkIndex, &d.Score,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PgVectorStore) Delete(ctx context.Context, index string, filter map[string]string) error {
	table, err := s.lookupTable(ctx, index)
	if err != nil {
		return err
	}
	where, args := buildFilter(filter, 1)
	if where == "" {
		return fmt.Errorf("delete from %s: refusing to delete without a filter", index)
	}
	q := fmt.Sprintf(`DELETE FROM %s %s`, table, where)
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("delete from index %s: %w", index, err)
	}
	return nil
}

func (s *PgVectorStore) ListIndexes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM vector_indexes ORDER BY name`)
	if err != nil {
		// No registry table yet means no indexes have ever been built.
		if strings.Contains(err.Error(), "does not exist") {
			return nil, nil
		}
		return nil, fmt.Errorf("list indexes: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (s *PgVectorStore) lookupTable(ctx context.Context, index string) (string, error) {
	var table string
	err := s.db.QueryRowContext(ctx,
		`SELECT table_name FROM vector_indexes WHERE name = $1`, index).Scan(&table)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("index %s is not registered", index)
	}
	if err != nil {
		return "", fmt.Errorf("lookup index %s: %w", index, err)
	}
	return table, nil
}

// buildFilter only honors whitelisted metadata columns; column names cannot
// be bound as parameters, so anything caller-supplied would be an injection
// vector.
func buildFilter(filter map[string]string, firstArg int) (string, []any) {
	if len(filter) == 0 {
		return "", nil
	}
	var (
		clauses []string
		args    []any
	)
	n := firstArg
	for _, col := range []string{"chunk_id", "source", "page", "type"} {
		v, ok := filter[col]
		if !ok {
			continue
		}
		clauses = append(clauses, fmt.Sprintf("%s = $%d", col, n))
		args = append(args, v)
		n++
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

// tableName derives a stable, valid SQL identifier from an index name.
func tableName(index string) string {
	var sb strings.Builder
	sb.WriteString("idx_")
	for _, r := range strings.ToLower(index) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

var _ core.VectorStore = (*PgVectorStore)(nil)
