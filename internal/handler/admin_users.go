package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/store-locator/internal/apperr"
	"github.com/iliyamo/store-locator/internal/config"
	"github.com/iliyamo/store-locator/internal/middleware"
	"github.com/iliyamo/store-locator/internal/model"
	"github.com/iliyamo/store-locator/internal/repository"
)

// AdminUserHandler serves user administration.  Accounts are never
// deleted; DELETE deactivates, and an admin cannot deactivate themselves.
type AdminUserHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Roles  *repository.RoleRepo
	Tokens *repository.TokenRepo
}

func NewAdminUserHandler(cfg config.Config, u *repository.UserRepo, r *repository.RoleRepo, t *repository.TokenRepo) *AdminUserHandler {
	return &AdminUserHandler{Cfg: cfg, Users: u, Roles: r, Tokens: t}
}

type userCreateReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

type userUpdateReq struct {
	FullName *string `json:"full_name"`
	Role     *string `json:"role"`
	Status   *string `json:"status"`
}

// List returns users with skip/limit pagination.
func (h *AdminUserHandler) List(c echo.Context) error {
	skip, _ := strconv.Atoi(c.QueryParam("skip"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.Users.List(ctx, skip, limit)
	if err != nil {
		return respondErr(c, apperr.Wrap(apperr.System, "", err))
	}
	return c.JSON(http.StatusOK, users)
}

// Get returns one user by id.
func (h *AdminUserHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		return respondErr(c, apperr.New(apperr.Validation, "invalid user id"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err == sql.ErrNoRows {
		return respondErr(c, apperr.New(apperr.NotFound, "user not found"))
	}
	if err != nil {
		return respondErr(c, apperr.Wrap(apperr.System, "", err))
	}
	return c.JSON(http.StatusOK, u)
}

// Create registers a user with the given role.
func (h *AdminUserHandler) Create(c echo.Context) error {
	var req userCreateReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, apperr.New(apperr.Validation, "invalid body"))
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return respondErr(c, apperr.New(apperr.Validation, "email and password are required"))
	}
	if len(req.Password) < 8 {
		return respondErr(c, apperr.New(apperr.Validation, "password must be at least 8 characters"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	role, err := h.Roles.GetByName(ctx, req.Role)
	if err != nil {
		return respondErr(c, apperr.New(apperr.Validation, "invalid role: "+req.Role))
	}

	id, err := h.Users.Create(ctx, req.Email, req.Password, req.FullName, role.ID, h.Cfg.BcryptCost)
	if err != nil {
		if err == repository.ErrEmailExists {
			return respondErr(c, apperr.New(apperr.Conflict, "email already registered"))
		}
		return respondErr(c, apperr.Wrap(apperr.System, "", err))
	}

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return respondErr(c, apperr.Wrap(apperr.System, "", err))
	}
	return c.JSON(http.StatusCreated, u)
}

// Update applies a partial update.  A role is given by name and resolved
// to its id; unknown names are rejected before anything is written.
func (h *AdminUserHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		return respondErr(c, apperr.New(apperr.Validation, "invalid user id"))
	}

	var req userUpdateReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, apperr.New(apperr.Validation, "invalid body"))
	}
	if req.Status != nil && *req.Status != model.UserStatusActive && *req.Status != model.UserStatusInactive {
		return respondErr(c, apperr.New(apperr.Validation, "invalid status: "+*req.Status))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Users.GetByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return respondErr(c, apperr.New(apperr.NotFound, "user not found"))
		}
		return respondErr(c, apperr.Wrap(apperr.System, "", err))
	}

	patch := repository.UserPatch{FullName: req.FullName, Status: req.Status}
	if req.Role != nil {
		role, err := h.Roles.GetByName(ctx, *req.Role)
		if err != nil {
			return respondErr(c, apperr.New(apperr.Validation, "invalid role: "+*req.Role))
		}
		patch.RoleID = &role.ID
	}

	if err := h.Users.Update(ctx, id, patch); err != nil {
		return respondErr(c, apperr.Wrap(apperr.System, "", err))
	}

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return respondErr(c, apperr.Wrap(apperr.System, "", err))
	}
	return c.JSON(http.StatusOK, u)
}

// Delete deactivates a user and revokes their refresh tokens.  Admins
// cannot deactivate their own account; locking every admin out of the
// system must take at least two people.
func (h *AdminUserHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		return respondErr(c, apperr.New(apperr.Validation, "invalid user id"))
	}

	actor := middleware.CurrentUser(c)
	if actor != nil && actor.ID == id {
		return respondErr(c, apperr.New(apperr.Validation, "cannot deactivate your own account"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Users.GetByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return respondErr(c, apperr.New(apperr.NotFound, "user not found"))
		}
		return respondErr(c, apperr.Wrap(apperr.System, "", err))
	}

	if err := h.Users.SetStatus(ctx, id, model.UserStatusInactive); err != nil {
		return respondErr(c, apperr.Wrap(apperr.System, "", err))
	}
	if err := h.Tokens.RevokeAllForUser(ctx, id); err != nil {
		return respondErr(c, apperr.Wrap(apperr.System, "", err))
	}
	return c.NoContent(http.StatusNoContent)
}
