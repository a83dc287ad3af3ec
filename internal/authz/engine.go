// Package authz implements the permission decision point. Every guarded
// operation in the back office asks this engine a single question: may this
// actor do that. The answer is always a bare boolean; deny is a value, not an
// error, and any internal failure resolves to deny.
package authz

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mealbridge/mealbridge/internal/catalog"
	"github.com/mealbridge/mealbridge/internal/observability"
)

// Mode selects how a multi-permission check combines its members.
type Mode int

const (
	// ModeAny grants when at least one required permission is held. Default,
	// matching call sites that gate an action behind alternatives.
	ModeAny Mode = iota
	// ModeAll grants only when every required permission is held.
	ModeAll
)

// PermissionSource resolves a user's effective permission set from durable
// storage. The role store implements it.
type PermissionSource interface {
	EffectivePermissions(ctx context.Context, userID int64) ([]catalog.Permission, error)
}

// Engine resolves allow/deny decisions against the role store, with the
// decision cache in front.
type Engine struct {
	source  PermissionSource
	cache   *DecisionCache
	logger  *slog.Logger
	metrics *observability.Metrics
	timeout time.Duration
	group   singleflight.Group
}

// EngineConfig collects Engine construction options.
type EngineConfig struct {
	Source PermissionSource
	Cache  *DecisionCache
	Logger *slog.Logger
	// Metrics is optional; decisions and cache lookups are counted when set.
	Metrics *observability.Metrics
	// CheckTimeout bounds the storage round trip of one check. A check that
	// cannot complete in time denies rather than hanging the request.
	CheckTimeout time.Duration
}

// NewEngine constructs an Engine.
func NewEngine(cfg EngineConfig) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.CheckTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Engine{
		source:  cfg.Source,
		cache:   cfg.Cache,
		logger:  logger,
		metrics: cfg.Metrics,
		timeout: timeout,
	}
}

// HasPermission reports whether the actor holds the required permissions
// under the given mode. It never returns an error: infrastructure failures
// are logged and resolve to deny (fail-closed). Identifiers outside the
// catalog can never appear in an effective set, so they always deny.
//
// Set semantics for the empty required list follow quantifier logic: ModeAll
// is vacuously true, ModeAny is false.
func (e *Engine) HasPermission(ctx context.Context, actorID int64, required []catalog.Permission, mode Mode) bool {
	if mode == ModeAll && len(required) == 0 {
		return true
	}
	if len(required) == 0 {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	effective, err := e.effective(ctx, actorID)
	if err != nil {
		e.logger.Error("resolve effective permissions",
			slog.Int64("actor_id", actorID), slog.Any("error", err))
		e.countDecision("error_deny")
		return false
	}

	held := make(map[catalog.Permission]struct{}, len(effective))
	for _, p := range effective {
		held[p] = struct{}{}
	}

	allowed := false
	switch mode {
	case ModeAll:
		allowed = true
		for _, p := range required {
			if _, ok := held[p]; !ok {
				allowed = false
				break
			}
		}
	default:
		for _, p := range required {
			if _, ok := held[p]; ok {
				allowed = true
				break
			}
		}
	}

	if allowed {
		e.countDecision("allow")
	} else {
		e.countDecision("deny")
	}
	return allowed
}

// HasAny is shorthand for a single-or-alternatives check in ModeAny.
func (e *Engine) HasAny(ctx context.Context, actorID int64, required ...catalog.Permission) bool {
	return e.HasPermission(ctx, actorID, required, ModeAny)
}

// HasAll is shorthand for a conjunction check in ModeAll.
func (e *Engine) HasAll(ctx context.Context, actorID int64, required ...catalog.Permission) bool {
	return e.HasPermission(ctx, actorID, required, ModeAll)
}

// effective resolves the actor's permission set, cache first. Concurrent
// misses for the same actor collapse into one store read.
func (e *Engine) effective(ctx context.Context, actorID int64) ([]catalog.Permission, error) {
	if e.cache != nil {
		perms, hit, err := e.cache.Get(ctx, actorID)
		switch {
		case err != nil:
			// Redis outage degrades to store reads; only a store failure
			// denies. Put below will fail the same way and is already logged.
			e.logger.Warn("decision cache read",
				slog.Int64("actor_id", actorID), slog.Any("error", err))
			e.countCache("error")
		case hit:
			e.countCache("hit")
			return perms, nil
		default:
			e.countCache("miss")
		}
	}

	v, err, _ := e.group.Do(strconv.FormatInt(actorID, 10), func() (any, error) {
		perms, err := e.source.EffectivePermissions(ctx, actorID)
		if err != nil {
			return nil, err
		}
		if e.cache != nil {
			if err := e.cache.Put(ctx, actorID, perms); err != nil {
				e.logger.Warn("populate decision cache",
					slog.Int64("actor_id", actorID), slog.Any("error", err))
			}
		}
		return perms, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]catalog.Permission), nil
}

func (e *Engine) countDecision(result string) {
	if e.metrics != nil {
		e.metrics.CountAuthzDecision(result)
	}
}

func (e *Engine) countCache(outcome string) {
	if e.metrics != nil {
		e.metrics.CountCacheLookup(outcome)
	}
}

