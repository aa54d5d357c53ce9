package repositories

import "context"

// Repository groups the per-entity repositories behind one handle
type Repository interface {
	// Workflow state
	Uid() UidRepository
	Student() StudentRepository
	Document() DocumentRepository
	History() StatusHistoryRepository

	// User directory (read-only, owned by the identity provider)
	User() UserRepository

	// Transaction support. fn receives a repository bound to the transaction;
	// returning an error rolls back everything fn did.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
