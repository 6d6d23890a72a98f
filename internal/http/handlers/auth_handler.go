// Account HTTP handlers.
//
// This file exposes the authentication endpoints:
//   - POST /signup  (create an account)
//   - POST /login   (verify credentials and open a session)
//   - POST /logout  (invalidate the session token)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dermacare/go-derma-backend/internal/http/middleware"
	"github.com/dermacare/go-derma-backend/internal/services"
)

//
// DTOs
//

// SignupRequest is the JSON payload for creating an account.
type SignupRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
}

// SignupResponse confirms account creation.
type SignupResponse struct {
	Message string `json:"message"`
	UID     string `json:"uid"`
}

// LoginRequest is the JSON payload for opening a session.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the session token and account summary.
type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	UID     string `json:"uid"`
	Name    string `json:"name"`
}

//
// Handlers
//

// Signup creates a new account and returns its uid.
func (h *Handlers) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email, password and name are required")
		return
	}

	user, err := h.accounts.Signup(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingFields):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrEmailTaken):
			fail(c, http.StatusConflict, ErrCodeConflict, "email already registered")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "signup failed")
		}
		return
	}

	ok(c, http.StatusCreated, SignupResponse{
		Message: "User created successfully",
		UID:     user.ID,
	})
}

// Login verifies credentials and opens a session.
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and password are required")
		return
	}

	session, user, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			fail(c, http.StatusUnauthorized, ErrCodeUnauthenticated, "invalid email or password")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "login failed")
		return
	}

	ok(c, http.StatusOK, LoginResponse{
		Message: "Login successful",
		Token:   session.Token,
		UID:     user.ID,
		Name:    user.Name,
	})
}

// Logout invalidates the session token and drops the caller's chat session.
// Unknown tokens succeed so repeated logouts are harmless.
func (h *Handlers) Logout(c *gin.Context) {
	token := c.GetHeader(middleware.HeaderAuthToken)
	if err := h.accounts.Logout(c.Request.Context(), token); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "logout failed")
		return
	}
	if uid, ok := middleware.UserID(c); ok {
		h.sessions.Drop(uid)
	}
	noContent(c)
}
