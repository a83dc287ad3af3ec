package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort defines the ledger read surface.
type RepositoryPort interface {
	Query(ctx context.Context, filters Filters, limit, offset int) ([]Entry, error)
	Count(ctx context.Context, filters Filters) (int, error)
	CountByAction(ctx context.Context, filters Filters) ([]CountByKey, error)
	CountByEntity(ctx context.Context, filters Filters) ([]CountByKey, error)
	ListSince(ctx context.Context, since time.Time, limit int) ([]Entry, error)
}

// Repository provides PostgreSQL backed ledger reads.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const entryColumns = `id, actor_id, action, entity_type, entity_id, old_values, new_values, ip_address, user_agent, checksum, created_at`

// Query returns one page of the filtered ledger, newest first.
func (r *Repository) Query(ctx context.Context, filters Filters, limit, offset int) ([]Entry, error) {
	where, args := buildWhere(filters)
	args = append(args, limit, offset)
	sql := fmt.Sprintf(`SELECT %s FROM audit_logs %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		entryColumns, where, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Count returns the total number of matching entries.
func (r *Repository) Count(ctx context.Context, filters Filters) (int, error) {
	where, args := buildWhere(filters)
	var total int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM audit_logs `+where, args...).Scan(&total)
	return total, err
}

// CountByAction aggregates matching entries per action.
func (r *Repository) CountByAction(ctx context.Context, filters Filters) ([]CountByKey, error) {
	return r.countBy(ctx, "action", filters)
}

// CountByEntity aggregates matching entries per entity type.
func (r *Repository) CountByEntity(ctx context.Context, filters Filters) ([]CountByKey, error) {
	return r.countBy(ctx, "entity_type", filters)
}

func (r *Repository) countBy(ctx context.Context, column string, filters Filters) ([]CountByKey, error) {
	where, args := buildWhere(filters)
	sql := fmt.Sprintf(`SELECT %s, count(*) FROM audit_logs %s GROUP BY %s ORDER BY count(*) DESC, %s`,
		column, where, column, column)
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []CountByKey
	for rows.Next() {
		var c CountByKey
		if err := rows.Scan(&c.Key, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// ListSince returns entries created at or after since, oldest first, for the
// ledger verification job.
func (r *Repository) ListSince(ctx context.Context, since time.Time, limit int) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM audit_logs WHERE created_at >= $1 ORDER BY created_at, id LIMIT $2`, entryColumns),
		since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func buildWhere(filters Filters) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if filters.Action != "" {
		add("action = $%d", string(filters.Action))
	}
	if filters.EntityType != "" {
		add("entity_type = $%d", filters.EntityType)
	}
	if filters.ActorID != nil {
		add("actor_id = $%d", *filters.ActorID)
	}
	if !filters.From.IsZero() {
		add("created_at >= $%d", filters.From)
	}
	if !filters.To.IsZero() {
		add("created_at < $%d", filters.To)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

func scanEntries(rows pgx.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.EntityType, &e.EntityID,
			&e.OldValues, &e.NewValues, &e.IPAddress, &e.UserAgent, &e.Checksum, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
