package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/frogmembers/api/internal/app/controllers"
	"github.com/frogmembers/api/internal/app/models"
	"github.com/frogmembers/api/internal/app/models/dto"
	"github.com/frogmembers/api/internal/middleware"
	"github.com/frogmembers/api/internal/pkg/websocket"
)

// Controllers groups every HTTP handler mounted under /api/v1
type Controllers struct {
	Profile     *controllers.ProfileController
	Catalog     *controllers.CatalogController
	Application *controllers.ApplicationController
	Chat        *controllers.ChatController
	VisaPlan    *controllers.VisaPlanController
	Billing     *controllers.BillingController
	Content     *controllers.ContentController
	Admin       *controllers.AdminController
}

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	c Controllers,
	authMiddleware *middleware.AuthMiddleware,
	wsHandler *websocket.Handler,
) {
	// API version group
	v1 := router.Group("/api/v1")

	v1.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, dto.NewAPIResponse(gin.H{"status": "ok"}))
	})

	// --- Signed webhooks (no bearer token) ---
	webhooks := v1.Group("/webhooks")
	{
		webhooks.POST("/stripe", c.Billing.Webhook)
		webhooks.POST("/documents", c.Application.DocumentWebhook)
	}

	// Reached by the provider's browser redirect; the stored state authenticates it
	v1.GET("/admin/integrations/documents/callback", c.Admin.DocumentsCallback)

	// Websocket subscriptions authorize the session owner themselves
	v1.GET("/chat/sessions/:id/ws", authMiddleware.JWTAuth(), wsHandler.HandleConnection)

	// --- Authenticated Routes Group ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth(), authMiddleware.LoadProfile())

	me := authenticated.Group("/me")
	{
		me.GET("", c.Profile.GetMe)
		me.PUT("", c.Profile.UpdateMe)
		me.POST("/onboarding", c.Profile.CompleteOnboarding)
		me.POST("/avatar", c.Profile.UploadAvatar)
	}

	// Catalog
	authenticated.GET("/schools", c.Catalog.ListSchools)
	authenticated.GET("/schools/:id", c.Catalog.GetSchool)
	authenticated.GET("/courses", c.Catalog.ListCourses)
	authenticated.GET("/courses/:id", c.Catalog.GetCourse)

	billing := authenticated.Group("/billing")
	{
		billing.GET("", c.Billing.Summary)
		billing.POST("/checkout", c.Billing.Checkout)
		billing.POST("/portal", c.Billing.Portal)
		billing.POST("/cancel", c.Billing.Cancel)
	}

	content := authenticated.Group("/content")
	{
		content.GET("/:endpoint", c.Content.List)
		content.GET("/:endpoint/:contentID", c.Content.Get)
	}

	authenticated.GET("/consultations/availability", c.Content.Availability)

	// Member features require a completed onboarding
	onboarded := authenticated.Group("")
	onboarded.Use(authMiddleware.OnboardingRequired())
	{
		applications := onboarded.Group("/applications")
		{
			applications.GET("", c.Application.ListMine)
			applications.POST("", c.Application.Create)
			applications.GET("/:id", c.Application.Get)
			applications.PUT("/:id", c.Application.UpdateDraft)
			applications.POST("/:id/submit", c.Application.Submit)
			applications.POST("/:id/documents", c.Application.RequestDocuments)
			applications.POST("/:id/withdraw", c.Application.Withdraw)
		}

		chat := onboarded.Group("/chat/sessions")
		{
			chat.GET("", c.Chat.ListSessions)
			chat.POST("", c.Chat.CreateSession)
			chat.GET("/:id", c.Chat.GetSession)
			chat.DELETE("/:id", c.Chat.DeleteSession)
			chat.POST("/:id/messages", c.Chat.SendMessage)
		}

		visaPlans := onboarded.Group("/visa-plans")
		{
			visaPlans.GET("", c.VisaPlan.List)
			visaPlans.POST("", c.VisaPlan.Create)
			visaPlans.GET("/:id", c.VisaPlan.Get)
			visaPlans.PUT("/:id", c.VisaPlan.Update)
			visaPlans.DELETE("/:id", c.VisaPlan.Delete)
			visaPlans.POST("/:id/request-review", c.VisaPlan.RequestReview)
		}

		directory := onboarded.Group("/directory")
		{
			directory.GET("", c.Profile.ListDirectory)
			directory.GET("/:id", c.Profile.GetDirectoryEntry)
		}
	}

	// --- Back-office: staff ---
	staff := authenticated.Group("/admin")
	staff.Use(authMiddleware.RoleRequired(models.RoleStaff))
	{
		staff.GET("/members", c.Admin.ListMembers)
		staff.GET("/members/:id", c.Admin.GetMember)
		staff.GET("/stats", c.Admin.Stats)

		staff.GET("/applications", c.Application.ListByStatus)
		staff.POST("/applications/:id/status", c.Application.UpdateStatus)

		staff.GET("/visa-plans", c.VisaPlan.ListForReview)
		staff.POST("/visa-plans/:id/reviews", c.VisaPlan.Review)
	}

	// --- Back-office: admin only ---
	admin := authenticated.Group("/admin")
	admin.Use(authMiddleware.RoleRequired(models.RoleAdmin))
	{
		admin.POST("/members/:id/roles", c.Admin.GrantRole)
		admin.DELETE("/members/:id/roles/:role", c.Admin.RevokeRole)

		admin.POST("/schools", c.Catalog.CreateSchool)
		admin.PUT("/schools/:id", c.Catalog.UpdateSchool)
		admin.DELETE("/schools/:id", c.Catalog.DeleteSchool)
		admin.POST("/courses", c.Catalog.CreateCourse)
		admin.PUT("/courses/:id", c.Catalog.UpdateCourse)
		admin.DELETE("/courses/:id", c.Catalog.DeleteCourse)

		admin.POST("/content/cache/purge", c.Content.Purge)

		admin.GET("/integrations/documents/status", c.Admin.DocumentsStatus)
		admin.GET("/integrations/documents/connect", c.Admin.DocumentsConnect)
	}
}
