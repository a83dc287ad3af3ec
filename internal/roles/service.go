package roles

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/mealbridge/mealbridge/internal/audit"
	"github.com/mealbridge/mealbridge/internal/catalog"
	"github.com/mealbridge/mealbridge/internal/shared"
)

// Invalidator drops cached permission decisions after role mutations. The
// decision cache implements it; tests substitute a recorder.
type Invalidator interface {
	// Invalidate drops the cached permission set for a single user.
	Invalidate(ctx context.Context, userID int64) error
	// BumpGeneration invalidates every cached permission set at once. Used for
	// role-wide mutations where the affected user set is not cheaply known.
	BumpGeneration(ctx context.Context) error
}

// Ledger is the single audit entry point every role mutation reports through.
// The audit recorder implements it; nil disables recording.
type Ledger interface {
	Record(ctx context.Context, in audit.Input) (audit.Entry, error)
}

// Service handles role business logic.
type Service struct {
	repo   RepositoryPort
	cache  Invalidator
	ledger Ledger
	logger *slog.Logger
	folder cases.Caser
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, cache Invalidator, ledger Ledger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, ledger: ledger, logger: logger, folder: cases.Fold()}
}

// List returns one page of role summaries and the total count.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Summary, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// Get fetches a role by ID.
func (s *Service) Get(ctx context.Context, id int64) (Role, error) {
	return s.repo.Get(ctx, id)
}

// Create inserts a new role after validating its name and permission set.
func (s *Service) Create(ctx context.Context, name, description string, permissions []string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, ErrNameRequired
	}
	perms, err := s.validatePermissions(permissions)
	if err != nil {
		return Role{}, err
	}
	role, err := s.repo.Create(ctx, name, s.folder.String(name), strings.TrimSpace(description), perms)
	if err != nil {
		return Role{}, err
	}
	s.record(ctx, audit.ActionCreate, "role", strconv.FormatInt(role.ID, 10), nil, role)
	return role, nil
}

// Update applies a partial patch to a role. Changing the permission set
// invalidates cached decisions for every user holding the role.
func (s *Service) Update(ctx context.Context, id int64, patch Patch) (Role, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Role{}, err
	}

	name := current.Name
	if patch.Name != nil {
		name = strings.TrimSpace(*patch.Name)
		if name == "" {
			return Role{}, ErrNameRequired
		}
	}
	description := current.Description
	if patch.Description != nil {
		description = strings.TrimSpace(*patch.Description)
	}

	perms := permissionStrings(current.Permissions)
	permsChanged := false
	if patch.Permissions != nil {
		raw := make([]string, len(*patch.Permissions))
		for i, p := range *patch.Permissions {
			raw[i] = string(p)
		}
		perms, err = s.validatePermissions(raw)
		if err != nil {
			return Role{}, err
		}
		permsChanged = true
	}

	updated, err := s.repo.Update(ctx, id, name, s.folder.String(name), description, perms)
	if err != nil {
		return Role{}, err
	}
	if permsChanged {
		s.invalidateAll(ctx, "update role", id)
	}
	s.record(ctx, audit.ActionUpdate, "role", strconv.FormatInt(id, 10), current, updated)
	return updated, nil
}

// Delete removes a role. Deleting a role still assigned to users is allowed:
// the assignments are cascaded away synchronously and the result reports how
// many were removed so callers can surface an in-use warning.
func (s *Service) Delete(ctx context.Context, id int64) (DeleteResult, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return DeleteResult{}, err
	}
	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return DeleteResult{}, err
	}
	if removed > 0 {
		s.invalidateAll(ctx, "delete role", id)
	}
	s.record(ctx, audit.ActionDelete, "role", strconv.FormatInt(id, 10), current, nil)
	return DeleteResult{AssignmentsRemoved: removed}, nil
}

// Assign grants a role to a user. Idempotent.
func (s *Service) Assign(ctx context.Context, userID, roleID int64) error {
	if _, err := s.repo.Get(ctx, roleID); err != nil {
		return err
	}
	if err := s.repo.Assign(ctx, userID, roleID); err != nil {
		return err
	}
	s.invalidateUser(ctx, "assign role", userID)
	s.record(ctx, audit.ActionCreate, "role_assignment", assignmentID(userID, roleID), nil, Assignment{UserID: userID, RoleID: roleID})
	return nil
}

// Revoke removes a role from a user. Idempotent.
func (s *Service) Revoke(ctx context.Context, userID, roleID int64) error {
	if err := s.repo.Revoke(ctx, userID, roleID); err != nil {
		return err
	}
	s.invalidateUser(ctx, "revoke role", userID)
	s.record(ctx, audit.ActionDelete, "role_assignment", assignmentID(userID, roleID), Assignment{UserID: userID, RoleID: roleID}, nil)
	return nil
}

// EffectivePermissions returns the union of permissions across all roles held
// by the user, sorted. A user with no roles gets an empty set, never an error.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) ([]catalog.Permission, error) {
	raw, err := s.repo.UserPermissions(ctx, userID)
	if err != nil {
		return nil, err
	}
	perms := make([]catalog.Permission, 0, len(raw))
	for _, p := range raw {
		perms = append(perms, catalog.Permission(p))
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms, nil
}

// validatePermissions normalizes, deduplicates and catalog-checks raw
// identifiers. The resulting slice is sorted for stable storage.
func (s *Service) validatePermissions(raw []string) ([]string, error) {
	seen := make(map[catalog.Permission]struct{}, len(raw))
	for _, r := range raw {
		p, err := catalog.Parse(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPermission, r)
		}
		seen[p] = struct{}{}
	}
	perms := make([]string, 0, len(seen))
	for p := range seen {
		perms = append(perms, string(p))
	}
	sort.Strings(perms)
	return perms, nil
}

// Cache invalidation failures are logged but never fail the mutation: the
// write has already committed and the cache TTL bounds any residual staleness.
func (s *Service) invalidateUser(ctx context.Context, op string, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("invalidate user cache", slog.String("op", op), slog.Int64("user_id", userID), slog.Any("error", err))
	}
}

func (s *Service) invalidateAll(ctx context.Context, op string, roleID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.BumpGeneration(ctx); err != nil {
		s.logger.Warn("bump cache generation", slog.String("op", op), slog.Int64("role_id", roleID), slog.Any("error", err))
	}
}

// record reports a completed mutation to the audit ledger. A failed audit
// write never rolls the mutation back; it is logged and counted instead.
func (s *Service) record(ctx context.Context, action audit.Action, entityType, entityID string, oldValue, newValue any) {
	if s.ledger == nil {
		return
	}
	in := audit.Input{Action: action, EntityType: entityType, EntityID: entityID}
	if actor, ok := shared.ActorFromContext(ctx); ok {
		id := actor.ID
		in.ActorID = &id
		if actor.IPAddress != "" {
			ip := actor.IPAddress
			in.IPAddress = &ip
		}
		if actor.UserAgent != "" {
			ua := actor.UserAgent
			in.UserAgent = &ua
		}
	}
	var err error
	if oldValue != nil {
		if in.OldValues, err = json.Marshal(oldValue); err != nil {
			s.logger.Error("marshal audit snapshot",
				slog.String("entity_type", entityType), slog.Any("error", err))
		}
	}
	if newValue != nil {
		if in.NewValues, err = json.Marshal(newValue); err != nil {
			s.logger.Error("marshal audit snapshot",
				slog.String("entity_type", entityType), slog.Any("error", err))
		}
	}
	if _, err := s.ledger.Record(ctx, in); err != nil {
		s.logger.Error("audit record",
			slog.String("entity_type", entityType),
			slog.String("entity_id", entityID),
			slog.Any("error", err))
	}
}

func assignmentID(userID, roleID int64) string {
	return strconv.FormatInt(userID, 10) + ":" + strconv.FormatInt(roleID, 10)
}

func permissionStrings(perms []catalog.Permission) []string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}
