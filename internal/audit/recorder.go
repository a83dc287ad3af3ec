package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mealbridge/mealbridge/internal/observability"
)

// EntryWriter persists one ledger row. Satisfied by the pgx pool in
// production and by in-memory fakes in tests.
type EntryWriter interface {
	InsertEntry(ctx context.Context, e Entry) error
}

// Recorder performs durable, synchronous ledger writes. Losing an audit
// record is worse than a slow response, so the write gets a longer timeout
// and an in-call retry budget before ErrWriteFailed is surfaced.
type Recorder struct {
	writer  EntryWriter
	logger  *slog.Logger
	metrics *observability.Metrics
	timeout time.Duration
	retries int
	now     func() time.Time
}

// RecorderConfig collects Recorder construction options.
type RecorderConfig struct {
	Writer  EntryWriter
	Logger  *slog.Logger
	Metrics *observability.Metrics
	// WriteTimeout bounds the whole Record call including retries.
	WriteTimeout time.Duration
	// Retries is the number of additional attempts after the first failure.
	Retries int
}

// NewRecorder constructs a Recorder.
func NewRecorder(cfg RecorderConfig) *Recorder {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	retries := cfg.Retries
	if retries < 0 {
		retries = 0
	}
	return &Recorder{
		writer:  cfg.Writer,
		logger:  logger,
		metrics: cfg.Metrics,
		timeout: timeout,
		retries: retries,
		now:     time.Now,
	}
}

// Record validates the input, stamps identity, timestamp and checksum, and
// persists the entry. On success the returned entry is durable and will be
// retrievable via Query. On failure ErrWriteFailed wraps the last attempt's
// error; the guarded mutation the entry describes must not be rolled back.
func (r *Recorder) Record(ctx context.Context, in Input) (Entry, error) {
	if !in.Action.Valid() {
		return Entry{}, fmt.Errorf("%w: action %q", ErrInvalidEntry, in.Action)
	}
	if in.EntityType == "" || in.EntityID == "" {
		return Entry{}, fmt.Errorf("%w: entity type and id required", ErrInvalidEntry)
	}

	entry := Entry{
		ID:         uuid.New(),
		ActorID:    in.ActorID,
		Action:     in.Action,
		EntityType: in.EntityType,
		EntityID:   in.EntityID,
		OldValues:  in.OldValues,
		NewValues:  in.NewValues,
		IPAddress:  in.IPAddress,
		UserAgent:  in.UserAgent,
		// timestamptz keeps microseconds; stamping at the same precision keeps
		// the checksum stable across the storage round trip.
		CreatedAt:  r.now().UTC().Truncate(time.Microsecond),
	}
	entry.Checksum = ComputeChecksum(entry)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt <= r.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				r.countWrite("failed")
				return Entry{}, fmt.Errorf("%w: %v", ErrWriteFailed, ctx.Err())
			case <-time.After(backoff(attempt)):
			}
		}
		if lastErr = r.writer.InsertEntry(ctx, entry); lastErr == nil {
			r.countWrite("ok")
			return entry, nil
		}
		r.logger.Warn("audit write attempt failed",
			slog.Int("attempt", attempt+1), slog.Any("error", lastErr))
	}

	r.countWrite("failed")
	return Entry{}, fmt.Errorf("%w: %v", ErrWriteFailed, lastErr)
}

func (r *Recorder) countWrite(status string) {
	if r.metrics != nil {
		r.metrics.CountAuditWrite(status)
	}
}

func backoff(attempt int) time.Duration {
	d := 100 * time.Millisecond << (attempt - 1)
	if d > time.Second {
		d = time.Second
	}
	return d
}

// PGWriter is the production EntryWriter backed by PostgreSQL.
type PGWriter struct {
	pool *pgxpool.Pool
}

// NewPGWriter constructs a PGWriter.
func NewPGWriter(pool *pgxpool.Pool) *PGWriter {
	return &PGWriter{pool: pool}
}

// InsertEntry appends one row to audit_logs.
func (w *PGWriter) InsertEntry(ctx context.Context, e Entry) error {
	_, err := w.pool.Exec(ctx, `
		INSERT INTO audit_logs
			(id, actor_id, action, entity_type, entity_id, old_values, new_values, ip_address, user_agent, checksum, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID, e.ActorID, string(e.Action), e.EntityType, e.EntityID,
		e.OldValues, e.NewValues, e.IPAddress, e.UserAgent, e.Checksum, e.CreatedAt)
	return err
}

var _ EntryWriter = (*PGWriter)(nil)
