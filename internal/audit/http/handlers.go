// Package audithttp exposes the operator-facing audit log query surface.
package audithttp

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mealbridge/mealbridge/internal/audit"
	"github.com/mealbridge/mealbridge/internal/platform/httpx"
	"github.com/mealbridge/mealbridge/internal/shared"
)

// QueryService defines the business contract for ledger reads.
type QueryService interface {
	Query(ctx context.Context, filters audit.Filters, page, limit int) (audit.Result, error)
	Export(ctx context.Context, filters audit.Filters) ([]audit.Entry, error)
}

// Ledger records export events. Nil disables recording.
type Ledger interface {
	Record(ctx context.Context, in audit.Input) (audit.Entry, error)
}

// Handler serves audit log queries and exports.
type Handler struct {
	logger  *slog.Logger
	service QueryService
	ledger  Ledger
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service QueryService, ledger Ledger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, ledger: ledger}
}

type listResponse struct {
	Data       []audit.Entry     `json:"data"`
	Stats      audit.Stats       `json:"stats"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filters, page, limit, err := parseQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.Query(r.Context(), filters, page, limit)
	if err != nil {
		h.logger.Error("query audit logs", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	entries := result.Entries
	if entries == nil {
		entries = []audit.Entry{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{
		Data:       entries,
		Stats:      result.Stats,
		Pagination: shared.NewPagination(result.Page, result.Limit, result.Stats.Total),
	})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filters, _, _, err := parseQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entries, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.logger.Error("export audit logs", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	csvBytes, err := audit.WriteCSV(entries)
	if err != nil {
		h.logger.Error("encode csv", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	h.recordExport(r, len(entries))

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-logs.csv"`)
	if _, err := w.Write(csvBytes); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

// Exports are themselves sensitive: the full ledger leaves the system. Each
// one gets its own entry naming the actor and row count.
func (h *Handler) recordExport(r *http.Request, rows int) {
	if h.ledger == nil {
		return
	}
	in := audit.Input{
		Action:     audit.ActionExport,
		EntityType: "audit_logs",
		EntityID:   "export",
		NewValues:  []byte(`{"rows":` + strconv.Itoa(rows) + `}`),
	}
	if actor, ok := shared.ActorFromContext(r.Context()); ok {
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
	if _, err := h.ledger.Record(r.Context(), in); err != nil {
		h.logger.Error("record export", slog.Any("error", err))
	}
}

type queryError struct{ field string }

func (e queryError) Error() string { return "invalid query parameter: " + e.field }

func parseQuery(r *http.Request) (audit.Filters, int, int, error) {
	q := r.URL.Query()
	filters := audit.Filters{
		EntityType: strings.TrimSpace(q.Get("entity")),
	}

	if raw := strings.TrimSpace(q.Get("action")); raw != "" {
		action := audit.Action(strings.ToUpper(raw))
		if !action.Valid() {
			return audit.Filters{}, 0, 0, queryError{field: "action"}
		}
		filters.Action = action
	}
	if raw := strings.TrimSpace(q.Get("userId")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return audit.Filters{}, 0, 0, queryError{field: "userId"}
		}
		filters.ActorID = &id
	}
	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return audit.Filters{}, 0, 0, queryError{field: "from"}
		}
		filters.From = from
	}
	if raw := strings.TrimSpace(q.Get("to")); raw != "" {
		to, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return audit.Filters{}, 0, 0, queryError{field: "to"}
		}
		// Half-open range: include the whole "to" day.
		filters.To = to.AddDate(0, 0, 1)
	}
	if !filters.From.IsZero() && !filters.To.IsZero() && filters.From.After(filters.To) {
		return audit.Filters{}, 0, 0, queryError{field: "range"}
	}

	page := 1
	if raw := strings.TrimSpace(q.Get("page")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return audit.Filters{}, 0, 0, queryError{field: "page"}
		}
		page = parsed
	}
	limit := 0
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return audit.Filters{}, 0, 0, queryError{field: "limit"}
		}
		limit = parsed
	}
	return filters, page, limit, nil
}
