package roles

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mealbridge/mealbridge/internal/authz"
	"github.com/mealbridge/mealbridge/internal/catalog"
	"github.com/mealbridge/mealbridge/internal/platform/httpx"
	"github.com/mealbridge/mealbridge/internal/shared"
)

// Handler manages role administration endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router, gate authz.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(gate.RequireAny(catalog.PermRolesView))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(gate.RequireAll(catalog.PermRolesEdit))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
		r.Post("/{id}/assign", h.assign)
		r.Post("/{id}/revoke", h.revoke)
	})
}

type createRoleRequest struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Description string   `json:"description" validate:"max=500"`
	Permissions []string `json:"permissions" validate:"required"`
}

type updateRoleRequest struct {
	Name        *string   `json:"name" validate:"omitempty,max=100"`
	Description *string   `json:"description" validate:"omitempty,max=500"`
	Permissions *[]string `json:"permissions"`
}

type assignmentRequest struct {
	UserID int64 `json:"userId" validate:"required,gt=0"`
}

type listRolesResponse struct {
	Data       []Summary         `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, limit := parsePaging(r)
	summaries, total, err := h.service.List(r.Context(), limit, (page-1)*limit)
	if err != nil {
		h.serverError(w, "list roles", err)
		return
	}
	if summaries == nil {
		summaries = []Summary{}
	}
	httpx.JSON(w, http.StatusOK, listRolesResponse{
		Data:       summaries,
		Pagination: shared.NewPagination(page, limit, total),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	role, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, "get role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	role, err := h.service.Create(r.Context(), req.Name, req.Description, req.Permissions)
	if err != nil {
		h.respondServiceError(w, "create role", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, role)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req updateRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	patch := Patch{Name: req.Name, Description: req.Description}
	if req.Permissions != nil {
		perms := make([]catalog.Permission, len(*req.Permissions))
		for i, p := range *req.Permissions {
			perms[i] = catalog.Permission(p)
		}
		patch.Permissions = &perms
	}
	role, err := h.service.Update(r.Context(), id, patch)
	if err != nil {
		h.respondServiceError(w, "update role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	result, err := h.service.Delete(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, "delete role", err)
		return
	}
	// Deletion proceeds even when the role was in use; the header lets the
	// admin UI surface the cascade as a warning.
	if result.AssignmentsRemoved > 0 {
		w.Header().Set("X-Role-In-Use", strconv.Itoa(result.AssignmentsRemoved))
	}
	httpx.NoContent(w)
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	h.mutateAssignment(w, r, h.service.Assign)
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	h.mutateAssignment(w, r, h.service.Revoke)
}

func (h *Handler) mutateAssignment(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, userID, roleID int64) error) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req assignmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := op(r.Context(), req.UserID, id); err != nil {
		h.respondServiceError(w, "mutate assignment", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) serverError(w http.ResponseWriter, message string, err error) {
	h.logger.Error(message, slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}

func (h *Handler) respondServiceError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "role not found")
	case errors.Is(err, ErrUserNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "user not found")
	case errors.Is(err, ErrDuplicateName):
		httpx.Problem(w, http.StatusConflict, "Duplicate", "role name already exists")
	case errors.Is(err, ErrInvalidPermission):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNameRequired):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.serverError(w, message, err)
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "role not found")
		return 0, false
	}
	return id, true
}

func parsePaging(r *http.Request) (page, limit int) {
	page, limit = 1, 20
	if raw := r.URL.Query().Get("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			page = parsed
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	return page, limit
}
