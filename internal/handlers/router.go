package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/collab-miniapp-api/internal/auth"
	"github.com/yukikurage/collab-miniapp-api/internal/middleware"
	"github.com/yukikurage/collab-miniapp-api/internal/services"
)

// Services groups what the HTTP layer depends on.
type Services struct {
	Identity   *services.IdentityService
	Membership *services.MembershipService
	Invites    *services.InviteService
	Tasks      *services.TaskService
	Settings   *services.SettingsService
	Tokens     *auth.TokenIssuer
	BotAPIKey  string
}

// RegisterRoutes mounts the API on r. A sessions middleware must already be
// installed.
func RegisterRoutes(r *gin.Engine, svc Services) {
	authHandler := NewAuthHandler(svc.Identity, svc.Membership)
	groupHandler := NewGroupHandler(svc.Membership, svc.Invites)
	inviteHandler := NewInviteHandler(svc.Invites)
	taskHandler := NewTaskHandler(svc.Tasks)
	settingsHandler := NewSettingsHandler(svc.Settings)
	botHandler := NewBotHandler(svc.Identity, svc.Invites)

	requireAuth := middleware.RequireAuth(svc.Tokens)
	requireMember := middleware.RequireGroupMember(svc.Membership)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Collaboration API is running",
		})
	})

	api := r.Group("/api")
	{
		// Auth routes (public)
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/telegram", authHandler.TelegramLogin)
			authRoutes.POST("/logout", authHandler.Logout)
		}

		api.GET("/me", requireAuth, authHandler.GetCurrentUser)

		// Group routes (protected)
		groups := api.Group("/groups")
		groups.Use(requireAuth)
		{
			groups.GET("", groupHandler.ListGroups)
			groups.POST("", groupHandler.CreateGroup)

			group := groups.Group("/:id", requireMember)
			{
				group.GET("/members", groupHandler.ListMembers)
				group.PATCH("/members/:user_id", groupHandler.UpdateMember)
				group.DELETE("/members/:user_id", groupHandler.RemoveMember)
				group.POST("/invites/link", groupHandler.CreateLinkInvite)
				group.POST("/invites/username", groupHandler.CreateHandleInvite)
				group.GET("/tasks", taskHandler.ListTasks)
				group.POST("/tasks", taskHandler.CreateTask)
				group.POST("/tasks/suggest", taskHandler.SuggestTasks)
			}
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.GET("/:id", taskHandler.GetTask)
			tasks.PATCH("/:id", taskHandler.UpdateTask)
			tasks.POST("/:id/done", taskHandler.CompleteTask)
		}

		// Invite routes (protected)
		invites := api.Group("/invites")
		invites.Use(requireAuth)
		{
			invites.GET("", inviteHandler.ListPending)
			invites.POST("/:id/accept", inviteHandler.Accept)
			invites.POST("/:id/decline", inviteHandler.Decline)
		}

		links := api.Group("/invite-links")
		links.Use(requireAuth)
		{
			links.POST("/:token/accept", inviteHandler.AcceptToken)
			links.POST("/:token/decline", inviteHandler.DeclineToken)
		}

		settings := api.Group("/settings")
		settings.Use(requireAuth)
		{
			settings.GET("", settingsHandler.GetSettings)
			settings.PATCH("", settingsHandler.UpdateSettings)
		}

		// Bot routes (shared key)
		bot := api.Group("/bot")
		bot.Use(middleware.RequireBotKey(svc.BotAPIKey))
		{
			bot.POST("/start", botHandler.Start)
			bot.POST("/invites/pending", botHandler.PendingInvites)
			bot.POST("/invites/:id/accept", botHandler.AcceptInvite)
			bot.POST("/invites/:id/decline", botHandler.DeclineInvite)
		}
	}
}
