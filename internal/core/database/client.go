package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/harmattan-labs/docent/internal/core"
	"github.com/harmattan-labs/docent/internal/models"
)

// Client is the Postgres implementation of core.DbClient. It owns the
// connection pool; the vector store shares it via DB().
type Client struct {
	db *sql.DB
}

func NewClient(ctx context.Context, databaseURL string) (*Client, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return &Client{db: db}, nil
}

// DB exposes the pool for collaborators that need raw SQL access.
func (c *Client) DB() *sql.DB {
	return c.db
}

func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *Client) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	const q = `
		INSERT INTO users (id, first_name, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
	`
	_, err := c.db.ExecContext(ctx, q,
		user.ID, user.FirstName, user.Email, user.PasswordHash, user.Role)
	return err
}

func (c *Client) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `
		SELECT id, first_name, email, password_hash, role, created_at, updated_at
		FROM users WHERE email = $1
	`
	var u models.User
	err := c.db.QueryRowContext(ctx, q, email).Scan(
		&u.ID, &u.FirstName, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) CreateDocument(ctx context.Context, doc *models.SourceDocument) error {
	if doc == nil {
		return errors.New("nil document")
	}
	const q = `
		INSERT INTO documents
			(id, user_id, file_name, format, index_name, storage_url, chunk_count, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
	`
	_, err := c.db.ExecContext(ctx, q,
		doc.ID, doc.UserID, doc.FileName, doc.Format, doc.IndexName, doc.StorageURL, doc.ChunkCount)
	return err
}

func (c *Client) GetDocumentByName(ctx context.Context, indexName, fileName string) (*models.SourceDocument, error) {
	const q = `
		SELECT id, user_id, file_name, format, index_name, storage_url, chunk_count, uploaded_at
		FROM documents
		WHERE index_name = $1 AND file_name = $2
	`
	var d models.SourceDocument
	err := c.db.QueryRowContext(ctx, q, indexName, fileName).Scan(
		&d.ID, &d.UserID, &d.FileName, &d.Format, &d.IndexName, &d.StorageURL, &d.ChunkCount, &d.UploadedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) ListDocuments(ctx context.Context, indexName string) ([]models.SourceDocument, error) {
	const q = `
		SELECT id, user_id, file_name, format, index_name, storage_url, chunk_count, uploaded_at
		FROM documents
		WHERE index_name = $1
		ORDER BY uploaded_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q, indexName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SourceDocument
	for rows.Next() {
		var d models.SourceDocument
		if err := rows.Scan(
			&d.ID, &d.UserID, &d.FileName, &d.Format, &d.IndexName, &d.StorageURL, &d.ChunkCount, &d.UploadedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (c *Client) DeleteDocument(ctx context.Context, indexName, fileName string) error {
	const q = `DELETE FROM documents WHERE index_name = $1 AND file_name = $2`
	res, err := c.db.ExecContext(ctx, q, indexName, fileName)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document not found: %s", fileName)
	}
	return nil
}

func (c *Client) UpsertConversation(ctx context.Context, conv *models.Conversation) error {
	if conv == nil {
		return errors.New("nil conversation")
	}
	history, err := json.Marshal(conv.History)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	const q = `
		INSERT INTO conversations (id, user_id, title, history, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			history = EXCLUDED.history,
			updated_at = now()
	`
	_, err = c.db.ExecContext(ctx, q, conv.ID, conv.UserID, conv.Title, history)
	return err
}

func (c *Client) GetConversation(ctx context.Context, userID, convID string) (*models.Conversation, error) {
	const q = `
		SELECT id, user_id, title, history, created_at, updated_at
		FROM conversations
		WHERE id = $1 AND user_id = $2
	`
	var (
		conv    models.Conversation
		history []byte
	)
	err := c.db.QueryRowContext(ctx, q, convID, userID).Scan(
		&conv.ID, &conv.UserID, &conv.Title, &history, &conv.CreatedAt, &conv.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(history, &conv.History); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return &conv, nil
}

func (c *Client) ListConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	const q = `
		SELECT id, user_id, title, created_at, updated_at
		FROM conversations
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Conversation
	for rows.Next() {
		var conv models.Conversation
		if err := rows.Scan(
			&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, conv)
	}
	return out, rows.Err()
}

func (c *Client) DeleteConversation(ctx context.Context, userID, convID string) error {
	const q = `DELETE FROM conversations WHERE id = $1 AND user_id = $2`
	res, err := c.db.ExecContext(ctx, q, convID, userID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("conversation not found: %s", convID)
	}
	return nil
}

var _ core.DbClient = (*Client)(nil)
