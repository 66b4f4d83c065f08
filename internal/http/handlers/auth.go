package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/changepassword/internal/domain/user"
	"github.com/geocoder89/changepassword/internal/security"
	"github.com/gin-gonic/gin"
)

type UserReader interface {
	GetByUsername(ctx context.Context, username string) (user.User, error)
}

type TokenIssuer interface {
	GenerateAccessToken(u user.User) (string, error)
}

type AuthHandler struct {
	users UserReader
	jwt   TokenIssuer
	log   *slog.Logger
}

func NewAuthHandler(users UserReader, jwt TokenIssuer, log *slog.Logger) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}

	return &AuthHandler{
		users: users,
		jwt:   jwt,
		log:   log,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// POST /auth/login
func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// short timeout for DB lookup
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	found, err := h.users.GetByUsername(cctx, req.Username)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			h.log.ErrorContext(cctx, "login lookup failed", "err", err)
		}
		RespondUnAuthorized(ctx, "invalid_credentials", "Username or password is incorrect.")
		return
	}

	if err := security.CheckPassword(found.PasswordHash, req.Password); err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Username or password is incorrect.")
		return
	}

	accessToken, err := h.jwt.GenerateAccessToken(found)
	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	h.log.InfoContext(cctx, "login", "username", found.Username, "role", found.Role)

	ctx.JSON(http.StatusOK, gin.H{
		"accessToken": accessToken,
		"username":    found.Username,
		"role":        found.Role,
	})
}
