// Package handler contains the Echo HTTP handlers.  Each handler struct
// bundles its dependencies; routes are attached in internal/router.
package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/store-locator/internal/apperr"
	"github.com/iliyamo/store-locator/internal/config"
	"github.com/iliyamo/store-locator/internal/middleware"
	"github.com/iliyamo/store-locator/internal/model"
	"github.com/iliyamo/store-locator/internal/repository"
	"github.com/iliyamo/store-locator/internal/utils"
)

// respondErr translates a domain error into its HTTP shape.
func respondErr(c echo.Context, err error) error {
	h := apperr.MapToHTTP(err)
	return c.JSON(h.StatusCode, h)
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type tokenPairResp struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// authFailed is the single response for every login/refresh failure.
// Unknown email, wrong password and inactive account are indistinguishable
// from the outside.
func authFailed(c echo.Context) error {
	return respondErr(c, apperr.New(apperr.Authentication, ""))
}

// Login verifies credentials and returns a fresh access/refresh pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, apperr.New(apperr.Validation, "invalid body"))
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return respondErr(c, apperr.New(apperr.Validation, "email and password are required"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		return authFailed(c)
	}
	if u.Status != model.UserStatusActive {
		return authFailed(c)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return authFailed(c)
	}

	pair, err := h.issuePair(ctx, u)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, pair)
}

// Refresh exchanges a valid refresh token for a new access token.  The
// refresh token itself is reused unless rotation is enabled, in which case
// the presented one is revoked and a replacement issued.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return respondErr(c, apperr.New(apperr.Validation, "refresh_token is required"))
	}

	claims := utils.VerifyToken(h.Cfg.JWTSecret, req.RefreshToken)
	if claims == nil || claims.Type != utils.TokenTypeRefresh {
		return authFailed(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	hash := utils.HashToken(req.RefreshToken)
	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil || userID != claims.UserID {
		return authFailed(c)
	}

	// The account and its role are re-read on every refresh: a deactivated
	// user or a role change takes effect at the next token exchange.
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return authFailed(c)
	}
	if u.Status != model.UserStatusActive {
		return authFailed(c)
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Email, u.RoleName, h.Cfg.AccessTTLMin)
	if err != nil {
		return respondErr(c, apperr.Wrap(apperr.System, "", err))
	}

	refreshToken := req.RefreshToken
	if h.Cfg.RefreshRotate {
		fresh, err := utils.NewRefreshToken(h.Cfg.JWTSecret, u.ID, h.Cfg.RefreshTTLDays)
		if err != nil {
			return respondErr(c, apperr.Wrap(apperr.System, "", err))
		}
		if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashToken(fresh.Token), fresh.Exp); err != nil {
			return respondErr(c, apperr.Wrap(apperr.System, "", err))
		}
		if err := h.Tokens.RevokeForUser(ctx, u.ID, hash); err != nil {
			return respondErr(c, apperr.Wrap(apperr.System, "", err))
		}
		refreshToken = fresh.Token
	}

	return c.JSON(http.StatusOK, tokenPairResp{
		AccessToken:  access.Token,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
	})
}

// Logout revokes the presented refresh token.  Revocation is owner-scoped
// and idempotent: an unknown or already-revoked token yields the same
// success response.
func (h *AuthHandler) Logout(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return authFailed(c)
	}

	var req refreshReq
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return respondErr(c, apperr.New(apperr.Validation, "refresh_token is required"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tokens.RevokeForUser(ctx, u.ID, utils.HashToken(req.RefreshToken)); err != nil {
		return respondErr(c, apperr.Wrap(apperr.System, "", err))
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "successfully logged out"})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return authFailed(c)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *AuthHandler) issuePair(ctx context.Context, u model.User) (tokenPairResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Email, u.RoleName, h.Cfg.AccessTTLMin)
	if err != nil {
		return tokenPairResp{}, apperr.Wrap(apperr.System, "", err)
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.JWTSecret, u.ID, h.Cfg.RefreshTTLDays)
	if err != nil {
		return tokenPairResp{}, apperr.Wrap(apperr.System, "", err)
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashToken(refresh.Token), refresh.Exp); err != nil {
		return tokenPairResp{}, apperr.Wrap(apperr.System, "", err)
	}
	return tokenPairResp{
		AccessToken:  access.Token,
		RefreshToken: refresh.Token,
		TokenType:    "bearer",
	}, nil
}
