package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	mw "github.com/fatflowers/contactbook/internal/app/api/middleware"
	"github.com/fatflowers/contactbook/internal/app/service/auth"
	models "github.com/fatflowers/contactbook/internal/models"
	"github.com/fatflowers/contactbook/pkg/logctx"
	"github.com/fatflowers/contactbook/pkg/response"
)

type AuthService interface {
	Signup(ctx context.Context, req *auth.SignupRequest) (*auth.AuthResult, error)
	Login(ctx context.Context, req *auth.LoginRequest) (*auth.AuthResult, error)
	Me(ctx context.Context, userID string) (*auth.MeResult, error)
	UpdateProfile(ctx context.Context, userID string, req *auth.UpdateProfileRequest) (*models.User, error)
	ChangePassword(ctx context.Context, userID string, req *auth.ChangePasswordRequest) error
}

// @Summary      Sign up
// @Description  Creates an account and returns a bearer token. Refused with 403 when registration is closed.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body auth.SignupRequest true "Signup request"
// @Success      201  {object}  handlers.RespAuth
// @Failure      403  {object}  handlers.RespOK
// @Failure      409  {object}  handlers.RespOK
// @Router       /api/auth/signup [post]
func ApiSignup(svc AuthService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req auth.SignupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBadRequest(c, err)
			return
		}
		res, err := svc.Signup(c.Request.Context(), &req)
		if err != nil {
			abortWithError(c, log, err)
			return
		}
		logctx.FromGin(c, log).Infow("user_signed_up", "user_id", res.User.ID)
		c.JSON(http.StatusCreated, response.OKT(res))
	}
}

// @Summary      Log in
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body auth.LoginRequest true "Login request"
// @Success      200  {object}  handlers.RespAuth
// @Failure      401  {object}  handlers.RespOK
// @Router       /api/auth/login [post]
func ApiLogin(svc AuthService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req auth.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBadRequest(c, err)
			return
		}
		res, err := svc.Login(c.Request.Context(), &req)
		if err != nil {
			abortWithError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Current user
// @Description  Returns the caller with their latest subscription and entitlement.
// @Tags         Auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespMe
// @Router       /api/auth/me [get]
func ApiMe(svc AuthService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := svc.Me(c.Request.Context(), mw.UserID(c))
		if err != nil {
			abortWithError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Update profile
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body auth.UpdateProfileRequest true "Profile"
// @Success      200  {object}  handlers.RespUser
// @Router       /api/auth/profile [put]
func ApiUpdateProfile(svc AuthService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req auth.UpdateProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBadRequest(c, err)
			return
		}
		u, err := svc.UpdateProfile(c.Request.Context(), mw.UserID(c), &req)
		if err != nil {
			abortWithError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(u))
	}
}

// @Summary      Change password
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body auth.ChangePasswordRequest true "Current and new password"
// @Success      200  {object}  handlers.RespOK
// @Failure      401  {object}  handlers.RespOK
// @Router       /api/auth/password [put]
func ApiChangePassword(svc AuthService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req auth.ChangePasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBadRequest(c, err)
			return
		}
		if err := svc.ChangePassword(c.Request.Context(), mw.UserID(c), &req); err != nil {
			abortWithError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

// RegisterAuthRoutes mounts signup and login publicly and the rest behind bearer.
func RegisterAuthRoutes(r gin.IRouter, svc AuthService, bearer gin.HandlerFunc, log *zap.SugaredLogger) {
	r.POST("/signup", ApiSignup(svc, log))
	r.POST("/login", ApiLogin(svc, log))

	authed := r.Group("", bearer)
	authed.GET("/me", ApiMe(svc, log))
	authed.PUT("/profile", ApiUpdateProfile(svc, log))
	authed.PUT("/password", ApiChangePassword(svc, log))
}
