package router

import (
	"net/http"

	"agora/internal/handlers"
	"agora/internal/middleware"
	"agora/internal/rbac"
	"agora/internal/services"
	"agora/internal/tokens"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Deps is everything the HTTP layer needs from the rest of the application.
type Deps struct {
	SessionSecret string
	Tokens        tokens.Service
	Log           *zap.Logger
	Gatherer      prometheus.Gatherer
	Guard         *rbac.Guard

	Users         *services.UserService
	Content       *services.ContentService
	Votes         *services.VoteService
	Bookmarks     *services.BookmarkService
	Notifications *services.NotificationService
	Applications  *services.ApplicationService
	Dashboard     *services.DashboardService
	AI            *services.AIService
}

func New(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(d.Log))

	store := cookie.NewStore([]byte(d.SessionSecret))
	store.Options(sessions.Options{Path: "/", MaxAge: 30 * 24 * 3600, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions("agora_session", store))

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	r.Use(middleware.LoadUser(d.Users, d.Tokens, d.Log))
	RegisterRoutes(r, d)
	return r
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	authHandler := handlers.NewAuthHandler(d.Users, d.Tokens, d.Log)
	postHandler := handlers.NewPostHandler(d.Content)
	voteHandler := handlers.NewVoteHandler(d.Votes)
	taxonomyHandler := handlers.NewTaxonomyHandler(d.Content)
	bookmarkHandler := handlers.NewBookmarkHandler(d.Bookmarks)
	notificationHandler := handlers.NewNotificationHandler(d.Notifications)
	userHandler := handlers.NewUserHandler(d.Users, d.Dashboard, d.Applications, d.Content)
	adminHandler := handlers.NewAdminHandler(d.Users, d.Applications)
	aiHandler := handlers.NewAIHandler(d.AI)

	// Public routes
	r.GET("/posts", postHandler.List)                       // ?sort=hot|new|top
	r.GET("/p/:pid", postHandler.Detail)                    // post with comments
	r.GET("/topics", taxonomyHandler.ListTopics)            // cached
	r.GET("/t/:slug", taxonomyHandler.TopicPosts)           // posts in a topic
	r.GET("/tags", taxonomyHandler.ListTags)                // cached
	r.GET("/u/:id", userHandler.Profile)                    // public profile
	r.GET("/dashboard/capabilities", userHandler.Dashboard) // guests get the empty view

	r.POST("/signup", authHandler.Register)
	r.POST("/login", authHandler.Login)
	r.POST("/logout", authHandler.Logout)

	// Signed-in routes; permission checks happen in the services
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.GET("/me", authHandler.Me)

		authorized.POST("/submit", postHandler.Create)
		authorized.PUT("/p/:pid", postHandler.Update)
		authorized.DELETE("/p/:pid", postHandler.Delete)
		authorized.POST("/p/:pid/comment", postHandler.CreateComment)
		authorized.PUT("/comment/:cid", postHandler.UpdateComment)
		authorized.DELETE("/comment/:cid", postHandler.DeleteComment)

		authorized.POST("/vote/:type/:id", voteHandler.Vote) // body: {"vote_type": "upvote"|"downvote"}
		authorized.POST("/bookmark/:id", bookmarkHandler.Toggle)

		authorized.POST("/notifications/:id/read", notificationHandler.Read)
		authorized.POST("/notifications/read-all", notificationHandler.ReadAll)
	}

	// User dashboard
	dashboard := r.Group("/dashboard")
	dashboard.Use(middleware.AuthRequired())
	{
		dashboard.GET("", userHandler.Dashboard)
		dashboard.GET("/notifications", notificationHandler.List)
		dashboard.GET("/trust", userHandler.TrustLogs)
		dashboard.GET("/bookmarks", bookmarkHandler.List)
		dashboard.GET("/applications", userHandler.MyApplications)
		dashboard.POST("/apply", userHandler.Apply) // contributor application
	}

	// Contributor board
	contributor := r.Group("/contributor")
	contributor.Use(middleware.AuthRequired(), middleware.RequireRole(d.Guard.RequireContributor))
	{
		contributor.GET("/dashboard", userHandler.ContributorBoard)
	}

	// Moderation and admin tools; services still check the specific permission
	admin := r.Group("/admin")
	admin.Use(middleware.AuthRequired(), middleware.RequireRole(d.Guard.RequireAdmin))
	{
		admin.GET("/dashboard", userHandler.AdminBoard)

		admin.POST("/topics", taxonomyHandler.CreateTopic)
		admin.PUT("/topics/:id", taxonomyHandler.UpdateTopic)
		admin.DELETE("/topics/:id", taxonomyHandler.DeleteTopic)
		admin.POST("/tags", taxonomyHandler.CreateTag)
		admin.DELETE("/tags/:id", taxonomyHandler.DeleteTag)

		admin.GET("/users", adminHandler.ListUsers)
		admin.PUT("/users/:id/verified", adminHandler.SetVerified)

		admin.GET("/applications", adminHandler.PendingApplications)
		admin.POST("/applications/:id/approve", adminHandler.Approve)
		admin.POST("/applications/:id/reject", adminHandler.Reject)

		admin.POST("/ai/generate", aiHandler.Generate)
	}

	// Superadmin only: roles and AI settings
	super := admin.Group("")
	super.Use(middleware.RequireRole(d.Guard.RequireSuperAdmin))
	{
		super.GET("/superadmin/dashboard", userHandler.SuperAdminBoard)
		super.PUT("/users/:id/role", adminHandler.ChangeRole)
		super.GET("/ai/schedules", aiHandler.ListSchedules)
		super.PUT("/ai/schedules", aiHandler.SaveSchedule)
		super.DELETE("/ai/schedules/:id", aiHandler.DeleteSchedule)
	}
}
