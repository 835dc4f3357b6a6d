package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	mw "github.com/fatflowers/contactbook/internal/app/api/middleware"
	"github.com/fatflowers/contactbook/pkg/response"
)

// ResourceService is the user-scoped CRUD shape shared by contacts,
// interactions, notes and tags.
type ResourceService[T any, In any] interface {
	List(ctx context.Context, userID string) ([]*T, error)
	Create(ctx context.Context, userID string, in *In) (*T, error)
	Update(ctx context.Context, userID, id string, in *In) (*T, error)
	Delete(ctx context.Context, userID, id string) error
}

func apiList[T, In any](svc ResourceService[T, In], log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := svc.List(c.Request.Context(), mw.UserID(c))
		if err != nil {
			abortWithError(c, log, err)
			return
		}
		if rows == nil {
			rows = []*T{}
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

func apiCreate[T, In any](svc ResourceService[T, In], log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in In
		if err := c.ShouldBindJSON(&in); err != nil {
			abortBadRequest(c, err)
			return
		}
		row, err := svc.Create(c.Request.Context(), mw.UserID(c), &in)
		if err != nil {
			abortWithError(c, log, err)
			return
		}
		c.JSON(http.StatusCreated, response.OKT(row))
	}
}

func apiUpdate[T, In any](svc ResourceService[T, In], log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in In
		if err := c.ShouldBindJSON(&in); err != nil {
			abortBadRequest(c, err)
			return
		}
		row, err := svc.Update(c.Request.Context(), mw.UserID(c), c.Param("id"), &in)
		if err != nil {
			abortWithError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(row))
	}
}

func apiDelete[T, In any](svc ResourceService[T, In], log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), mw.UserID(c), c.Param("id")); err != nil {
			abortWithError(c, log, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func registerResource[T, In any](r gin.IRouter, svc ResourceService[T, In], log *zap.SugaredLogger) {
	r.GET("", apiList(svc, log))
	r.POST("", apiCreate(svc, log))
	r.PUT("/:id", apiUpdate(svc, log))
	r.DELETE("/:id", apiDelete(svc, log))
}
