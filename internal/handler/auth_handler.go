package handler

import (
	"errors"
	"net/http"

	"taskapi/internal/middleware"
	"taskapi/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /api/auth のAPI
type AuthHandler struct {
	uc *usecase.AuthUsecase
}

// DI
func NewAuthHandler(uc *usecase.AuthUsecase) *AuthHandler {
	return &AuthHandler{uc: uc}
}

// 公開ルートと認証必須ルートを分けて登録する
func (h *AuthHandler) RegisterRoutes(g *echo.Group, requireAuth echo.MiddlewareFunc) {
	g.POST("/auth/register", h.register)
	g.POST("/auth/login", h.login)
	g.POST("/auth/refresh", h.refresh)
	g.POST("/auth/logout", h.logout)

	g.POST("/auth/logout-all", h.logoutAll, requireAuth)
	g.GET("/auth/me", h.me, requireAuth)
	g.PATCH("/auth/me", h.updateProfile, requireAuth)
	g.POST("/auth/change-password", h.changePassword, requireAuth)
}

// POST /api/auth/register
func (h *AuthHandler) register(c echo.Context) error {
	var req usecase.AuthRegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	res, err := h.uc.Register(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}

	return ok(c, http.StatusCreated, "Registration successful", res)
}

// POST /api/auth/login
func (h *AuthHandler) login(c echo.Context) error {
	var req usecase.AuthLoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	res, err := h.uc.Login(c.Request().Context(), req)
	if err != nil {
		//メール不存在とパスワード不一致は同じメッセージにする
		if errors.Is(err, usecase.ErrUnauthorized) {
			return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid email or password"})
		}
		return writeError(c, err)
	}

	return ok(c, http.StatusOK, "Login successful", res)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// POST /api/auth/refresh
func (h *AuthHandler) refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	tokens, err := h.uc.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, usecase.ErrUnauthorized) {
			return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid or expired refresh token"})
		}
		return writeError(c, err)
	}

	return ok(c, http.StatusOK, "Tokens refreshed successfully", map[string]interface{}{"tokens": tokens})
}

// POST /api/auth/logout
func (h *AuthHandler) logout(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	if err := h.uc.Logout(c.Request().Context(), req.RefreshToken); err != nil {
		if errors.Is(err, usecase.ErrUnauthorized) {
			return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid refresh token"})
		}
		return writeError(c, err)
	}

	return ok(c, http.StatusOK, "Logout successful", nil)
}

// POST /api/auth/logout-all
func (h *AuthHandler) logoutAll(c echo.Context) error {
	user, okAuth := middleware.CurrentUser(c)
	if !okAuth {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	count, err := h.uc.LogoutAll(c.Request().Context(), user.ID)
	if err != nil {
		return writeError(c, err)
	}

	return ok(c, http.StatusOK, "Logged out from all devices", map[string]interface{}{"revoked_sessions": count})
}

// GET /api/auth/me
func (h *AuthHandler) me(c echo.Context) error {
	user, okAuth := middleware.CurrentUser(c)
	if !okAuth {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	dto, err := h.uc.Me(c.Request().Context(), user.ID)
	if err != nil {
		return writeError(c, err)
	}

	sessions, err := h.uc.ActiveSessions(c.Request().Context(), user.ID)
	if err != nil {
		return writeError(c, err)
	}

	return ok(c, http.StatusOK, "Profile retrieved successfully", map[string]interface{}{
		"user":            dto,
		"active_sessions": sessions,
	})
}

// PATCH /api/auth/me
func (h *AuthHandler) updateProfile(c echo.Context) error {
	user, okAuth := middleware.CurrentUser(c)
	if !okAuth {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req usecase.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	dto, err := h.uc.UpdateProfile(c.Request().Context(), user.ID, req)
	if err != nil {
		return writeError(c, err)
	}

	return ok(c, http.StatusOK, "Profile updated successfully", map[string]interface{}{"user": dto})
}

// POST /api/auth/change-password
func (h *AuthHandler) changePassword(c echo.Context) error {
	user, okAuth := middleware.CurrentUser(c)
	if !okAuth {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req usecase.ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	if err := h.uc.ChangePassword(c.Request().Context(), user.ID, req); err != nil {
		if errors.Is(err, usecase.ErrUnauthorized) {
			return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Current password is incorrect"})
		}
		return writeError(c, err)
	}

	return ok(c, http.StatusOK, "Password changed successfully. Please login again.", nil)
}
