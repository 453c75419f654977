package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ssaemtalk/server/config"
	"github.com/ssaemtalk/server/controllers"
	"github.com/ssaemtalk/server/middleware"
	"github.com/ssaemtalk/server/services"
	"github.com/ssaemtalk/server/store"
	"github.com/ssaemtalk/server/utils"
)

// SetupRouter wires routes, middlewares, and controllers on top of st.
// hub carries chat events; it may be nil, which disables the event stream.
func SetupRouter(st store.Store, hub *utils.RoomHub) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	access := utils.NewAccessLogger(cfg)
	r.Use(utils.Ginzap(access))
	r.Use(utils.RecoveryWithZap(access))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok", "timestamp": time.Now().UTC().Format(time.RFC3339)})
	})

	svc := services.New(st, hub)
	authController := controllers.NewAuthController(svc.Auth, svc.OAuth)
	postController := controllers.NewPostController(svc.Posts)
	commentController := controllers.NewCommentController(svc.Comments)
	reactionController := controllers.NewReactionController(svc.Reactions)
	chatController := controllers.NewChatController(svc.Chat)
	statsController := controllers.NewStatsController(svc.Stats)

	authLimit := middleware.NewRateLimiter(cfg.RateLimitPerMinute).Handler()
	writeLimit := middleware.NewRateLimiter(cfg.RateLimitPerMinute).Handler()
	authed := middleware.AuthRequired()
	optional := middleware.OptionalAuth()

	api := r.Group("/api")

	authGroup := api.Group("/auth", authLimit)
	authGroup.POST("/signup", authController.Signup)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/social-login", authController.SocialLogin)
	authGroup.POST("/complete-social-signup", authController.CompleteSocialSignup)
	authGroup.POST("/refresh", authController.Refresh)
	authGroup.POST("/logout", authed, authController.Logout)
	authGroup.GET("/profile", authed, authController.Profile)
	authGroup.PATCH("/profile", authed, authController.UpdateProfile)
	authGroup.GET("/oauth/:provider/login", authController.OAuthRedirect)
	authGroup.GET("/oauth/:provider/callback", authController.OAuthCallback)

	posts := api.Group("/posts")
	posts.GET("", optional, postController.ListPosts)
	posts.GET("/search", optional, postController.SearchPosts)
	posts.GET("/:id", optional, postController.GetPost)
	posts.GET("/:id/comments", optional, commentController.ListComments)
	posts.GET("/:id/reactions", optional, reactionController.Summary)

	postWrites := posts.Group("", authed, writeLimit)
	postWrites.POST("", postController.CreatePost)
	postWrites.PATCH("/:id", postController.UpdatePost)
	postWrites.DELETE("/:id", postController.DeletePost)
	postWrites.POST("/:id/like", postController.LikePost)
	postWrites.DELETE("/:id/unlike", postController.UnlikePost)
	postWrites.POST("/:id/comments", commentController.CreateComment)
	postWrites.PATCH("/:id/comments/:commentId", commentController.UpdateComment)
	postWrites.DELETE("/:id/comments/:commentId", commentController.DeleteComment)
	postWrites.POST("/:id/comments/:commentId/like", commentController.LikeComment)
	postWrites.DELETE("/:id/comments/:commentId/like", commentController.UnlikeComment)
	postWrites.POST("/:id/reactions", reactionController.AddReaction)
	postWrites.DELETE("/:id/reactions/:reactionId", reactionController.RemoveReaction)

	chat := api.Group("/chat", authed)
	chat.GET("/rooms", chatController.ListRooms)
	chat.GET("/rooms/:roomId/messages", chatController.GetMessages)
	chat.GET("/rooms/:roomId/events", chatController.Events)
	chat.POST("/rooms", writeLimit, chatController.CreateRoom)
	chat.POST("/rooms/:roomId/messages", writeLimit, chatController.SendMessage)

	api.GET("/stats", statsController.GetStats)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, utils.CodeNotFound, "요청한 API를 찾을 수 없습니다.")
			return
		}
		utils.Error(ctx, http.StatusNotFound, utils.CodeNotFound, "페이지를 찾을 수 없습니다.")
	})

	return r
}
