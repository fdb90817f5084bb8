// Account HTTP handlers.
//
//   - POST /signup  (register)
//   - POST /login   (form-encoded credentials → bearer token)
//   - GET  /me      (current user)
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-movie-reviews/internal/domain"
	"github.com/tbourn/go-movie-reviews/internal/services"
)

// SignupRequest is the JSON payload for creating an account.
type SignupRequest struct {
	Username string `json:"username"  binding:"required,min=3,max=64" example:"alice"`
	FullName string `json:"full_name" binding:"required,min=1,max=255" example:"Alice Liddell"`
	Email    string `json:"email"     binding:"required,email" example:"alice@example.com"`
	Password string `json:"password"  binding:"required,min=6,max=72" example:"wonderland"`
}

// LoginForm is the form-encoded login payload.
type LoginForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID       uint   `json:"id" example:"1"`
	Username string `json:"username" example:"alice"`
	FullName string `json:"full_name" example:"Alice Liddell"`
	Email    string `json:"email" example:"alice@example.com"`
}

// TokenResponse carries a freshly issued access token.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type" example:"bearer"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{ID: u.ID, Username: u.Username, FullName: u.FullName, Email: u.Email}
}

// Signup godoc
// @ID          signup
// @Summary     Register a user
// @Description Creates an account. Username and email must be unused.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.SignupRequest  true  "New account"
// @Success     200   {object}  handlers.UserResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Username or email already registered"
// @Failure     422   {object}  handlers.ErrorResponse  "Validation error"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /signup [post]
func (h *Handlers) Signup(c *gin.Context) {
	var req SignupRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.users.Signup(c.Request.Context(), services.SignupInput{
		Username: req.Username,
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, toUserResponse(u))
}

// Login godoc
// @ID          login
// @Summary     Log in
// @Description Exchanges form-encoded credentials for a bearer token.
// @Tags        Auth
// @Accept      x-www-form-urlencoded
// @Produce     json
// @Param       username  formData  string  true  "Username"
// @Param       password  formData  string  true  "Password"
// @Success     200  {object}  handlers.TokenResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Incorrect username or password"
// @Failure     422  {object}  handlers.ErrorResponse  "Validation error"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Router      /login [post]
func (h *Handlers) Login(c *gin.Context) {
	var form LoginForm
	if !bindForm(c, &form) {
		return
	}
	u, err := h.users.Authenticate(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		serviceError(c, err)
		return
	}
	tok, err := h.tokens.Issue(u.ID, u.Username)
	if err != nil {
		internalError(c, err)
		return
	}
	ok(c, TokenResponse{AccessToken: tok.Raw, TokenType: "bearer", ExpiresAt: tok.ExpiresAt})
}

// Me godoc
// @ID          me
// @Summary     Current user
// @Tags        Auth
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.UserResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Not authenticated"
// @Router      /me [get]
func (h *Handlers) Me(c *gin.Context) {
	uid, authed := currentUser(c)
	if !authed {
		return
	}
	u, err := h.users.Get(c.Request.Context(), uid)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, toUserResponse(u))
}
