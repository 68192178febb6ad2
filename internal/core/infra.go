package core

import (
	"context"

	"github.com/harmattan-labs/docent/internal/models"
)

// DbClient defines all relational persistence the services need.
// It abstracts Postgres so higher layers never depend on a specific DB.
type DbClient interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateDocument(ctx context.Context, doc *models.SourceDocument) error
	GetDocumentByName(ctx context.Context, indexName, fileName string) (*models.SourceDocument, error)
	ListDocuments(ctx context.Context, indexName string) ([]models.SourceDocument, error)
	DeleteDocument(ctx context.Context, indexName, fileName string) error

	UpsertConversation(ctx context.Context, conv *models.Conversation) error
	GetConversation(ctx context.Context, userID, convID string) (*models.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]models.Conversation, error)
	DeleteConversation(ctx context.Context, userID, convID string) error

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (url string, err error)
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
	DeleteFile(ctx context.Context, bucket, key string) error
}
