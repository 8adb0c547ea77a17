package router

import (
	"log/slog"

	"github.com/anonto42/inkpress/backend/internal/handlers"
	"github.com/anonto42/inkpress/backend/internal/middleware"
	"github.com/anonto42/inkpress/backend/internal/notifications"
	"github.com/anonto42/inkpress/backend/internal/realtime"
	"github.com/anonto42/inkpress/backend/internal/repositories"
	"github.com/anonto42/inkpress/backend/pkg/config"
	"github.com/anonto42/inkpress/backend/pkg/firebase"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// Repositories bundles the persistence layer the routes depend on.
type Repositories struct {
	Users         repositories.UserRepository
	Posts         repositories.PostRepository
	PostRefs      repositories.PostRefsRepository
	Comments      repositories.CommentRepository
	Likes         repositories.LikeRepository
	Follows       repositories.FollowRepository
	Notifications repositories.NotificationRepository
}

// NewRepositories wires the Postgres and Mongo implementations.
func NewRepositories(pgdb *gorm.DB, mongoDB *mongo.Database) *Repositories {
	return &Repositories{
		Users:         repositories.NewPostgresUserRepository(pgdb),
		Posts:         repositories.NewMongoPostRepository(mongoDB),
		PostRefs:      repositories.NewPostgresPostRefsRepository(pgdb),
		Comments:      repositories.NewPostgresCommentRepository(pgdb),
		Likes:         repositories.NewPostgresLikeRepository(pgdb),
		Follows:       repositories.NewPostgresFollowRepository(pgdb),
		Notifications: repositories.NewPostgresNotificationRepository(pgdb),
	}
}

// SetupRoutes configures all application routes and injects dependencies.
// verifier may be nil when Firebase is not configured.
func SetupRoutes(e *echo.Echo, cfg *config.Config, repos *Repositories, hub *realtime.Hub, verifier firebase.TokenVerifier, logger *slog.Logger) {
	e.GET("/health", handlers.HealthCheck)

	auth := middleware.JWTAuthMiddleware(cfg.JWTSecret)
	optionalAuth := middleware.OptionalJWTAuth(cfg.JWTSecret)
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	builder := notifications.NewBuilder(repos.Notifications, hub, logger)
	inbox := notifications.NewService(repos.Notifications)

	api := e.Group("/api/v1")

	authHandler := handlers.NewAuthHandler(repos.Users, cfg.JWTSecret, logger)
	authHandler.RegisterAuthRoutes(api.Group("/auth"), limiter.Middleware(), auth, middleware.FirebaseAuthMiddleware(verifier))

	userHandler := handlers.NewUserHandler(repos.Users, repos.Follows, repos.Posts)
	userHandler.RegisterUserRoutes(api.Group("/users"), auth, optionalAuth)

	posts := api.Group("/posts")
	feedHandler := handlers.NewFeedHandler(repos.Posts, repos.Users, repos.Follows, repos.Likes)
	feedHandler.RegisterFeedRoutes(posts, auth)
	postHandler := handlers.NewPostHandler(repos.Posts, repos.PostRefs, repos.Users, repos.Likes, logger)
	postHandler.RegisterPostRoutes(posts, auth, optionalAuth)

	commentHandler := handlers.NewCommentHandler(repos.Comments, repos.Posts, repos.Users, builder, logger)
	commentHandler.RegisterCommentRoutes(api.Group("/comments"), auth)

	likeHandler := handlers.NewLikeHandler(repos.Likes, repos.Posts, repos.Users, builder, logger)
	likeHandler.RegisterLikeRoutes(api.Group("/likes"), auth)

	followHandler := handlers.NewFollowHandler(repos.Follows, repos.Users, builder)
	followHandler.RegisterFollowRoutes(api.Group("/follows"), auth)

	notificationHandler := handlers.NewNotificationHandler(inbox)
	notificationHandler.RegisterNotificationRoutes(api.Group("/notifications", auth))

	liveHandler := realtime.NewHandler(hub, logger, cfg.CORSOrigins)
	liveHandler.RegisterRoutes(e, middleware.WebSocketAuth(cfg.JWTSecret))

	logger.Info("routes configured")
}
