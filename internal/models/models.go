package models

import (
	"time"
)

// User represents an authenticated user of the system.
type User struct {
	ID           string    `db:"id" json:"id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"` // "user" or "admin"
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// SourceDocument is one physical uploaded file. Rows are created on upload
// and never mutated; deleting one cascades to its vectors via a source
// filter on the index.
type SourceDocument struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	FileName   string    `db:"file_name" json:"file_name"` // unique within an index
	Format     string    `db:"format" json:"format"`       // pdf | docx | txt | md | csv
	IndexName  string    `db:"index_name" json:"index_name"`
	StorageURL string    `db:"storage_url" json:"storage_url"`
	ChunkCount int       `db:"chunk_count" json:"chunk_count"`
	UploadedAt time.Time `db:"uploaded_at" json:"uploaded_at"`
}

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role    string `json:"role"` // "user" | "assistant" | "system"
	Content string `json:"content"`
}

// Conversation is a persisted chat history for one user.
type Conversation struct {
	ID        string        `db:"id" json:"id"`
	UserID    string        `db:"user_id" json:"user_id"`
	Title     string        `db:"title" json:"title"`
	History   []ChatMessage `db:"history" json:"history"` // stored as jsonb
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}
