package vectorstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	"github.com/dealerdesk/dealerdesk-backend/internal/llm"
)

// Document is one retrieved passage with its raw source metadata. The source
// field holds the ingested file identifier and must be sanitized before it
// ever reaches a caller.
type Document struct {
	Content string `db:"content"`
	Source  string `db:"source"`
	Page    *int   `db:"page"`
}

// Searcher is the similarity-index capability consumed by the retrieval
// pipeline.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]Document, error)
}

// Store implements Searcher over a pgvector-backed documents table
type Store struct {
	db       *sqlx.DB
	embedder llm.Embedder
}

// NewStore creates a new vector store
func NewStore(db *sqlx.DB, embedder llm.Embedder) *Store {
	return &Store{db: db, embedder: embedder}
}

// Search embeds the query and returns the k nearest document chunks
func (s *Store) Search(ctx context.Context, query string, k int) ([]Document, error) {
	if k <= 0 {
		return nil, errors.New("k must be greater than zero")
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	var docs []Document
	sql := `
		SELECT content, source, page
		FROM documents
		ORDER BY embedding <-> $1
		LIMIT $2
	`
	err = s.db.SelectContext(ctx, &docs, sql, pgvector.NewVector(vec), k)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search query: %w", err)
	}

	return docs, nil
}

// Add inserts a document chunk with its embedding (used by ingestion)
func (s *Store) Add(ctx context.Context, doc Document) error {
	if doc.Content == "" {
		return errors.New("document content cannot be empty")
	}

	vec, err := s.embedder.Embed(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("failed to embed document: %w", err)
	}

	sql := `
		INSERT INTO documents (source, page, content, embedding)
		VALUES ($1, $2, $3, $4)
	`
	_, err = s.db.ExecContext(ctx, sql, doc.Source, doc.Page, doc.Content, pgvector.NewVector(vec))
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}

	return nil
}
