package users

import "context"

// RepositoryPort defines data access methods for the user directory.
type RepositoryPort interface {
	ListUsers(ctx context.Context, activeOnly bool) ([]User, error)
}

// Service handles user directory logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListUsers returns the directory, optionally restricted to active accounts.
// Deactivated users keep their role assignments so reactivation restores
// access without re-granting, which is why the full listing includes them.
func (s *Service) ListUsers(ctx context.Context, activeOnly bool) ([]User, error) {
	return s.repo.ListUsers(ctx, activeOnly)
}
