package users

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	users          []User
	err            error
	lastActiveOnly bool
}

func (r *stubRepo) ListUsers(ctx context.Context, activeOnly bool) ([]User, error) {
	r.lastActiveOnly = activeOnly
	if r.err != nil {
		return nil, r.err
	}
	if !activeOnly {
		return r.users, nil
	}
	var out []User
	for _, u := range r.users {
		if u.IsActive {
			out = append(out, u)
		}
	}
	return out, nil
}

func directory() []User {
	return []User{
		{
			ID:        1,
			Email:     "cook@example.org",
			Name:      "Sam Rivera",
			IsActive:  true,
			Roles:     []string{"Cook", "Distributor"},
			CreatedAt: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:       2,
			Email:    "former@example.org",
			Name:     "Jo Adeyemi",
			IsActive: false,
			Roles:    []string{"Auditor"},
		},
	}
}

func TestListUsersResponse(t *testing.T) {
	h := NewHandler(nil, NewService(&stubRepo{users: directory()}))

	rec := httptest.NewRecorder()
	h.listUsers(rec, httptest.NewRequest(http.MethodGet, "/users", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []User `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	require.Equal(t, []string{"Cook", "Distributor"}, body.Data[0].Roles)
}

func TestListUsersActiveOnly(t *testing.T) {
	repo := &stubRepo{users: directory()}
	h := NewHandler(nil, NewService(repo))

	rec := httptest.NewRecorder()
	h.listUsers(rec, httptest.NewRequest(http.MethodGet, "/users?active=true", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, repo.lastActiveOnly)
	var body struct {
		Data []User `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	require.Equal(t, "cook@example.org", body.Data[0].Email)
}

func TestListUsersEmptyDirectory(t *testing.T) {
	h := NewHandler(nil, NewService(&stubRepo{}))

	rec := httptest.NewRecorder()
	h.listUsers(rec, httptest.NewRequest(http.MethodGet, "/users", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestListUsersRepositoryError(t *testing.T) {
	h := NewHandler(nil, NewService(&stubRepo{err: errors.New("connection refused")}))

	rec := httptest.NewRecorder()
	h.listUsers(rec, httptest.NewRequest(http.MethodGet, "/users", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
