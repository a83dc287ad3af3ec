package audithttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mealbridge/mealbridge/internal/audit"
	"github.com/mealbridge/mealbridge/internal/shared"
)

type stubService struct {
	lastFilters audit.Filters
	lastPage    int
	lastLimit   int
	result      audit.Result
	exported    []audit.Entry
	err         error
}

func (s *stubService) Query(ctx context.Context, filters audit.Filters, page, limit int) (audit.Result, error) {
	s.lastFilters, s.lastPage, s.lastLimit = filters, page, limit
	return s.result, s.err
}

func (s *stubService) Export(ctx context.Context, filters audit.Filters) ([]audit.Entry, error) {
	s.lastFilters = filters
	return s.exported, s.err
}

func sampleEntry() audit.Entry {
	actor := int64(4)
	ip := "10.0.0.8"
	return audit.Entry{
		ID:         uuid.MustParse("2f9c1f9e-7a66-4a2b-9a55-07a1c53aa001"),
		ActorID:    &actor,
		Action:     audit.ActionUpdate,
		EntityType: "role",
		EntityID:   "12",
		OldValues:  json.RawMessage(`{"name":"Cook"}`),
		NewValues:  json.RawMessage(`{"name":"Head Cook"}`),
		IPAddress:  &ip,
		CreatedAt:  time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestHandleListResponseShape(t *testing.T) {
	svc := &stubService{result: audit.Result{
		Entries: []audit.Entry{sampleEntry()},
		Stats:   audit.Stats{Total: 41, ByAction: []audit.CountByKey{{Key: "UPDATE", Count: 41}}},
		Page:    2,
		Limit:   20,
	}}
	h := NewHandler(nil, svc, nil)

	rec := httptest.NewRecorder()
	h.handleList(rec, httptest.NewRequest(http.MethodGet, "/audit-logs?page=2", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []struct {
			ID        string          `json:"id"`
			ActorID   *int64          `json:"actorId"`
			Action    string          `json:"action"`
			NewValues json.RawMessage `json:"newValues"`
		} `json:"data"`
		Stats      audit.Stats `json:"stats"`
		Pagination struct {
			Page       int `json:"page"`
			TotalPages int `json:"totalPages"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	require.Equal(t, "UPDATE", body.Data[0].Action)
	require.JSONEq(t, `{"name":"Head Cook"}`, string(body.Data[0].NewValues))
	require.Equal(t, 41, body.Stats.Total)
	require.Equal(t, 2, body.Pagination.Page)
	require.Equal(t, 3, body.Pagination.TotalPages)
	require.NotContains(t, rec.Body.String(), "checksum")
}

func TestHandleListEmptyLedger(t *testing.T) {
	svc := &stubService{result: audit.Result{Page: 1, Limit: 20}}
	h := NewHandler(nil, svc, nil)

	rec := httptest.NewRecorder()
	h.handleList(rec, httptest.NewRequest(http.MethodGet, "/audit-logs", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestHandleListParsesFilters(t *testing.T) {
	svc := &stubService{}
	h := NewHandler(nil, svc, nil)

	rec := httptest.NewRecorder()
	h.handleList(rec, httptest.NewRequest(http.MethodGet,
		"/audit-logs?action=update&entity=role&userId=9&from=2026-03-01&to=2026-03-10&page=3&limit=50", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, audit.ActionUpdate, svc.lastFilters.Action)
	require.Equal(t, "role", svc.lastFilters.EntityType)
	require.NotNil(t, svc.lastFilters.ActorID)
	require.EqualValues(t, 9, *svc.lastFilters.ActorID)
	require.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), svc.lastFilters.From)
	// The "to" day is included in full.
	require.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), svc.lastFilters.To)
	require.Equal(t, 3, svc.lastPage)
	require.Equal(t, 50, svc.lastLimit)
}

func TestHandleListRejectsBadQuery(t *testing.T) {
	h := NewHandler(nil, &stubService{}, nil)

	cases := map[string]string{
		"unknown action":   "action=TAMPER",
		"non-numeric user": "userId=bob",
		"bad date":         "from=March-1",
		"inverted range":   "from=2026-04-01&to=2026-03-01",
		"zero page":        "page=0",
		"negative limit":   "limit=-5",
	}
	for name, query := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.handleList(rec, httptest.NewRequest(http.MethodGet, "/audit-logs?"+query, nil))
			require.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandleExportWritesCSV(t *testing.T) {
	svc := &stubService{exported: []audit.Entry{sampleEntry()}}
	h := NewHandler(nil, svc, nil)

	rec := httptest.NewRecorder()
	h.handleExport(rec, httptest.NewRequest(http.MethodGet, "/audit-logs/export.csv?action=update", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "audit-logs.csv")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "id,actor_id,action,entity_type,entity_id,ip_address,user_agent,created_at", lines[0])
	require.Contains(t, lines[1], "UPDATE")
	require.Contains(t, lines[1], "10.0.0.8")
	require.Equal(t, audit.ActionUpdate, svc.lastFilters.Action)
}

type recordingLedger struct {
	inputs []audit.Input
}

func (l *recordingLedger) Record(ctx context.Context, in audit.Input) (audit.Entry, error) {
	l.inputs = append(l.inputs, in)
	return audit.Entry{}, nil
}

func TestHandleExportRecordsExportEvent(t *testing.T) {
	svc := &stubService{exported: []audit.Entry{sampleEntry()}}
	ledger := &recordingLedger{}
	h := NewHandler(nil, svc, ledger)

	req := httptest.NewRequest(http.MethodGet, "/audit-logs/export.csv", nil)
	req = req.WithContext(shared.ContextWithActor(req.Context(), shared.Actor{ID: 3}))
	rec := httptest.NewRecorder()
	h.handleExport(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, ledger.inputs, 1)
	require.Equal(t, audit.ActionExport, ledger.inputs[0].Action)
	require.Equal(t, "audit_logs", ledger.inputs[0].EntityType)
	require.JSONEq(t, `{"rows":1}`, string(ledger.inputs[0].NewValues))
	require.NotNil(t, ledger.inputs[0].ActorID)
	require.EqualValues(t, 3, *ledger.inputs[0].ActorID)
}
