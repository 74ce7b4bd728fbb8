package httpserver

import (
	"net/http"

	"storefront-sync/internal/domain"
	"storefront-sync/internal/service/identity"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type authHandler struct {
	sessions sessionService
}

func (h *authHandler) signup(c *gin.Context) {
	var req identity.SignupInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "body", "invalid JSON payload")
		return
	}
	user, err := h.sessions.Signup(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

func (h *authHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.NewError(domain.KindAuth, "httpserver.login", ""))
		return
	}
	handle, err := h.sessions.Login(c.Request.Context(), req.Email, req.Password)
	if handle == nil {
		writeError(c, err)
		return
	}
	body := gin.H{
		"token": handle.Token,
		"user":  handle.User,
		"cart":  handle.Cart.Snapshot(),
	}
	if err != nil {
		// The session exists; the cart or its mirror did not load.
		requestLogger(c).WithError(err).Warn("login completed with degraded cart")
		body["warnings"] = warnings(err)
	}
	c.JSON(http.StatusOK, body)
}

func (h *authHandler) logout(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		writeError(c, domain.NewError(domain.KindNotAuthenticated, "httpserver.logout", ""))
		return
	}
	if err := h.sessions.Logout(c.Request.Context(), token); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *authHandler) me(c *gin.Context) {
	user, err := h.sessions.CurrentUser(c.Request.Context(), bearerToken(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if user == nil {
		writeError(c, domain.NewError(domain.KindNotAuthenticated, "httpserver.me", ""))
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
