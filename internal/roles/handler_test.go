package roles

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/mealbridge/mealbridge/internal/authz"
	"github.com/mealbridge/mealbridge/internal/catalog"
	"github.com/mealbridge/mealbridge/internal/shared"
)

// newTestRouter wires a handler behind a live gate so authorization and the
// admin surface are exercised together, the way requests flow in production.
func newTestRouter(t *testing.T) (http.Handler, *Service, *memoryRolesRepo) {
	t.Helper()
	svc, repo, _ := newTestService(t)
	engine := authz.NewEngine(authz.EngineConfig{Source: svc})
	handler := NewHandler(nil, svc)

	r := chi.NewRouter()
	r.Route("/roles", func(r chi.Router) {
		handler.MountRoutes(r, authz.Middleware{Engine: engine})
	})
	return r, svc, repo
}

func grantAdmin(t *testing.T, svc *Service, userID int64, perms ...string) {
	t.Helper()
	role, err := svc.Create(context.Background(), "Bootstrap-"+strings.Join(perms, "-"), "", perms)
	require.NoError(t, err)
	require.NoError(t, svc.Assign(context.Background(), userID, role.ID))
}

func doRequest(router http.Handler, actorID int64, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if actorID > 0 {
		req = req.WithContext(shared.ContextWithActor(req.Context(), shared.Actor{ID: actorID}))
	}
	return executeRequest(router, req)
}

func executeRequest(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRoutesDenyAnonymous(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doRequest(router, 0, http.MethodGet, "/roles", "")
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestViewerCannotMutate(t *testing.T) {
	router, svc, _ := newTestRouter(t)
	grantAdmin(t, svc, 5, string(catalog.PermRolesView))

	rec := doRequest(router, 5, http.MethodGet, "/roles", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(router, 5, http.MethodPost, "/roles",
		`{"name":"Kitchen Lead","permissions":["inventory.view"]}`)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateGetUpdateDeleteRole(t *testing.T) {
	router, svc, _ := newTestRouter(t)
	grantAdmin(t, svc, 1, string(catalog.PermRolesView), string(catalog.PermRolesEdit))

	rec := doRequest(router, 1, http.MethodPost, "/roles",
		`{"name":"Kitchen Lead","description":"Runs one school kitchen","permissions":["inventory.view","production.view"]}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created Role
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "Kitchen Lead", created.Name)
	require.Len(t, created.Permissions, 2)

	target := "/roles/" + itoa(created.ID)
	rec = doRequest(router, 1, http.MethodGet, target, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(router, 1, http.MethodPut, target, `{"description":"Runs two school kitchens"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated Role
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Equal(t, "Runs two school kitchens", updated.Description)
	require.Equal(t, "Kitchen Lead", updated.Name)

	rec = doRequest(router, 1, http.MethodDelete, target, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, rec.Header().Get("X-Role-In-Use"))

	rec = doRequest(router, 1, http.MethodGet, target, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateDuplicateNameConflict(t *testing.T) {
	router, svc, _ := newTestRouter(t)
	grantAdmin(t, svc, 1, string(catalog.PermRolesEdit))

	body := `{"name":"Auditor","permissions":["audit.view"]}`
	rec := doRequest(router, 1, http.MethodPost, "/roles", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(router, 1, http.MethodPost, "/roles", body)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateUnknownPermissionRejected(t *testing.T) {
	router, svc, _ := newTestRouter(t)
	grantAdmin(t, svc, 1, string(catalog.PermRolesEdit))

	rec := doRequest(router, 1, http.MethodPost, "/roles",
		`{"name":"Ghost","permissions":["warp.drive"]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteRoleInUseSetsHeader(t *testing.T) {
	router, svc, _ := newTestRouter(t)
	grantAdmin(t, svc, 1, string(catalog.PermRolesEdit))

	role, err := svc.Create(context.Background(), "Cook", "", []string{"production.view"})
	require.NoError(t, err)
	require.NoError(t, svc.Assign(context.Background(), 20, role.ID))
	require.NoError(t, svc.Assign(context.Background(), 21, role.ID))

	rec := doRequest(router, 1, http.MethodDelete, "/roles/"+itoa(role.ID), "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "2", rec.Header().Get("X-Role-In-Use"))
}

func TestAssignAndRevokeEndpoints(t *testing.T) {
	router, svc, repo := newTestRouter(t)
	grantAdmin(t, svc, 1, string(catalog.PermRolesEdit))

	role, err := svc.Create(context.Background(), "Distributor", "", []string{"distribution.view"})
	require.NoError(t, err)

	rec := doRequest(router, 1, http.MethodPost, "/roles/"+itoa(role.ID)+"/assign", `{"userId":33}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	perms, err := repo.UserPermissions(context.Background(), 33)
	require.NoError(t, err)
	require.Contains(t, perms, "distribution.view")

	rec = doRequest(router, 1, http.MethodPost, "/roles/"+itoa(role.ID)+"/revoke", `{"userId":33}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	perms, err = repo.UserPermissions(context.Background(), 33)
	require.NoError(t, err)
	require.NotContains(t, perms, "distribution.view")

	rec = doRequest(router, 1, http.MethodPost, "/roles/"+itoa(role.ID)+"/assign", `{"userId":0}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAssignToMissingRole(t *testing.T) {
	router, svc, _ := newTestRouter(t)
	grantAdmin(t, svc, 1, string(catalog.PermRolesEdit))

	rec := doRequest(router, 1, http.MethodPost, "/roles/9999/assign", `{"userId":5}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAssignToMissingUser(t *testing.T) {
	router, svc, repo := newTestRouter(t)
	grantAdmin(t, svc, 1, string(catalog.PermRolesEdit))
	repo.unknownUsers = map[int64]bool{999: true}

	role, err := svc.Create(context.Background(), "Cooks", "", []string{"production.view"})
	require.NoError(t, err)

	rec := doRequest(router, 1, http.MethodPost, "/roles/"+itoa(role.ID)+"/assign", `{"userId":999}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "user not found")
}

func TestListRolesPagination(t *testing.T) {
	router, svc, _ := newTestRouter(t)
	grantAdmin(t, svc, 1, string(catalog.PermRolesView), string(catalog.PermRolesEdit))

	for _, name := range []string{"Alpha", "Beta", "Gamma"} {
		_, err := svc.Create(context.Background(), name, "", []string{"schools.view"})
		require.NoError(t, err)
	}

	rec := doRequest(router, 1, http.MethodGet, "/roles?page=1&limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data       []Summary         `json:"data"`
		Pagination shared.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	// The bootstrap role from grantAdmin counts too.
	require.Equal(t, 4, body.Pagination.Total)
	require.Equal(t, 2, body.Pagination.TotalPages)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
