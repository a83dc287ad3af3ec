package roles

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mealbridge/mealbridge/internal/catalog"
	"github.com/mealbridge/mealbridge/internal/platform/db"
)

const (
	pgUniqueViolation = "23505"
	pgFKViolation     = "23503"
)

// RepositoryPort defines data access methods for roles and assignments.
type RepositoryPort interface {
	List(ctx context.Context, limit, offset int) ([]Summary, int, error)
	Get(ctx context.Context, id int64) (Role, error)
	Create(ctx context.Context, name, foldedName, description string, permissions []string) (Role, error)
	Update(ctx context.Context, id int64, name, foldedName, description string, permissions []string) (Role, error)
	Delete(ctx context.Context, id int64) (int, error)
	Assign(ctx context.Context, userID, roleID int64) error
	Revoke(ctx context.Context, userID, roleID int64) error
	UserPermissions(ctx context.Context, userID int64) ([]string, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns one page of role summaries plus the total role count.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Summary, int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.name, r.description,
		       cardinality(r.permissions) AS permission_count,
		       count(ur.user_id) AS user_count,
		       r.created_at, r.updated_at
		FROM roles r
		LEFT JOIN user_roles ur ON ur.role_id = r.id
		GROUP BY r.id
		ORDER BY r.name_fold
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.PermissionCount, &s.UserCount, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM roles`).Scan(&total); err != nil {
		return nil, 0, err
	}
	return summaries, total, nil
}

// Get fetches a role by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Role, error) {
	return scanRole(r.pool.QueryRow(ctx, `
		SELECT id, name, description, permissions, created_at, updated_at
		FROM roles WHERE id = $1`, id))
}

// Create inserts a new role.
func (r *Repository) Create(ctx context.Context, name, foldedName, description string, permissions []string) (Role, error) {
	role, err := scanRole(r.pool.QueryRow(ctx, `
		INSERT INTO roles (name, name_fold, description, permissions)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, description, permissions, created_at, updated_at`,
		name, foldedName, description, permissions))
	if err != nil {
		return Role{}, mapUniqueViolation(err)
	}
	return role, nil
}

// Update replaces the mutable fields of a role. The whole permission set is
// written in one statement so readers never observe a partial set.
func (r *Repository) Update(ctx context.Context, id int64, name, foldedName, description string, permissions []string) (Role, error) {
	role, err := scanRole(r.pool.QueryRow(ctx, `
		UPDATE roles
		SET name = $2, name_fold = $3, description = $4, permissions = $5, updated_at = now()
		WHERE id = $1
		RETURNING id, name, description, permissions, created_at, updated_at`,
		id, name, foldedName, description, permissions))
	if err != nil {
		return Role{}, mapUniqueViolation(err)
	}
	return role, nil
}

// Delete removes a role and cascades its assignments, returning how many
// assignments were removed.
func (r *Repository) Delete(ctx context.Context, id int64) (int, error) {
	var removed int
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `SELECT count(*) FROM user_roles WHERE role_id = $1`, id).Scan(&removed); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// Assign links a user to a role. Re-assigning an already-held role is a no-op.
// An unknown user surfaces as ErrUserNotFound rather than a raw FK violation.
func (r *Repository) Assign(ctx context.Context, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, role_id) DO NOTHING`, userID, roleID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgFKViolation {
		return ErrUserNotFound
	}
	return err
}

// Revoke removes a user-role link. Revoking a role not held is a no-op.
func (r *Repository) Revoke(ctx context.Context, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	return err
}

// UserPermissions returns the deduplicated union of permissions across every
// role held by the user. A user with no roles yields an empty slice.
func (r *Repository) UserPermissions(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT unnest(r.permissions)
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	perms := []string{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func scanRole(row pgx.Row) (Role, error) {
	var (
		role  Role
		perms []string
	)
	var createdAt, updatedAt time.Time
	if err := row.Scan(&role.ID, &role.Name, &role.Description, &perms, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		return Role{}, err
	}
	role.Permissions = make([]catalog.Permission, len(perms))
	for i, p := range perms {
		role.Permissions[i] = catalog.Permission(p)
	}
	role.CreatedAt = createdAt
	role.UpdatedAt = updatedAt
	return role, nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicateName
	}
	return err
}
