package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	mw "github.com/fatflowers/contactbook/internal/app/api/middleware"
	"github.com/fatflowers/contactbook/internal/app/service/contact"
	"github.com/fatflowers/contactbook/internal/app/service/interaction"
	"github.com/fatflowers/contactbook/internal/app/service/note"
	"github.com/fatflowers/contactbook/internal/app/service/statistics"
	"github.com/fatflowers/contactbook/internal/app/service/tag"
	models "github.com/fatflowers/contactbook/internal/models"
	"github.com/fatflowers/contactbook/pkg/response"
)

type ContactService interface {
	ResourceService[models.Contact, contact.Input]
	Get(ctx context.Context, userID, id string) (*models.Contact, error)
}

type InteractionService interface {
	ResourceService[models.Interaction, interaction.Input]
	ListByContact(ctx context.Context, userID, contactID string) ([]*models.Interaction, error)
}

type DashboardService interface {
	Dashboard(ctx context.Context, userID string) (*statistics.DashboardStats, error)
}

// @Summary      Get contact
// @Description  Returns one contact with its tags, interactions and notes.
// @Tags         Contacts
// @Produce      json
// @Security     BearerAuth
// @Param        id   path  string  true  "Contact ID"
// @Success      200  {object}  handlers.RespContact
// @Failure      404  {object}  handlers.RespOK
// @Router       /api/contacts/{id} [get]
func ApiGetContact(svc ContactService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		row, err := svc.Get(c.Request.Context(), mw.UserID(c), c.Param("id"))
		if err != nil {
			abortWithError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(row))
	}
}

// @Summary      List interactions for a contact
// @Tags         Interactions
// @Produce      json
// @Security     BearerAuth
// @Param        contactId  path  string  true  "Contact ID"
// @Success      200  {object}  handlers.RespInteractions
// @Router       /api/interactions/contact/{contactId} [get]
func ApiListContactInteractions(svc InteractionService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := svc.ListByContact(c.Request.Context(), mw.UserID(c), c.Param("contactId"))
		if err != nil {
			abortWithError(c, log, err)
			return
		}
		if rows == nil {
			rows = []*models.Interaction{}
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

// @Summary      Dashboard stats
// @Description  Counts contacts, due follow-ups and recorded activity for the caller.
// @Tags         Dashboard
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespDashboardStats
// @Router       /api/dashboard/stats [get]
func ApiDashboardStats(svc DashboardService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := svc.Dashboard(c.Request.Context(), mw.UserID(c))
		if err != nil {
			abortWithError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(stats))
	}
}

// RegisterContactBookRoutes mounts the user-scoped resources. r is expected
// to already require a bearer token.
func RegisterContactBookRoutes(
	r gin.IRouter,
	contacts ContactService,
	interactions InteractionService,
	notes ResourceService[models.Note, note.Input],
	tags ResourceService[models.Tag, tag.Input],
	dashboard DashboardService,
	log *zap.SugaredLogger,
) {
	cg := r.Group("/contacts")
	registerResource[models.Contact, contact.Input](cg, contacts, log)
	cg.GET("/:id", ApiGetContact(contacts, log))

	ig := r.Group("/interactions")
	registerResource[models.Interaction, interaction.Input](ig, interactions, log)
	ig.GET("/contact/:contactId", ApiListContactInteractions(interactions, log))

	registerResource(r.Group("/notes"), notes, log)
	registerResource(r.Group("/tags"), tags, log)

	r.GET("/dashboard/stats", ApiDashboardStats(dashboard, log))
}
