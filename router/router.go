package router

import (
	"github.com/BirdScout/bird-scout-backend/config"
	"github.com/BirdScout/bird-scout-backend/handlers"
	"github.com/BirdScout/bird-scout-backend/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Dependencies holds everything SetupRouter needs to define routes.
type Dependencies struct {
	Config             *config.Config
	AuthHandler        *handlers.AuthHandler
	UserHandler        *handlers.UserHandler
	TourHandler        *handlers.TourHandler
	ParticipantHandler *handlers.ParticipantHandler
	SightingHandler    *handlers.SightingHandler
	CatalogHandler     *handlers.CatalogHandler
	SyncHandler        *handlers.SyncHandler
	HealthHandler      *handlers.HealthHandler
	Logger             *zap.SugaredLogger
}

// SetupRouter configures and returns the main Gin engine with all routes.
func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(&deps.Config.Server))

	r.GET("/health/liveness", deps.HealthHandler.LivenessHandler)
	r.GET("/health/readiness", deps.HealthHandler.ReadinessHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	{
		v1.POST("/auth/signin", deps.AuthHandler.SignInHandler)
		v1.POST("/auth/refresh", deps.AuthHandler.RefreshTokenHandler)

		// The catalog is readable without a session.
		catalogRoutes := v1.Group("/catalog")
		{
			catalogRoutes.GET("/categories", deps.CatalogHandler.ListCategoriesHandler)
			catalogRoutes.GET("/categories/:categoryId/species", deps.CatalogHandler.ListSpeciesHandler)
			catalogRoutes.GET("/species/search", deps.CatalogHandler.SearchSpeciesHandler)
			catalogRoutes.GET("/species/:id", deps.CatalogHandler.GetSpeciesHandler)
		}

		authRoutes := v1.Group("")
		authRoutes.Use(middleware.AuthMiddleware(deps.Config.Server.JwtSecretKey))
		{
			authRoutes.POST("/auth/signout", deps.AuthHandler.SignOutHandler)

			authRoutes.GET("/users/me", deps.UserHandler.GetMeHandler)
			authRoutes.PATCH("/users/me/role", deps.UserHandler.UpdateRoleHandler)
			authRoutes.POST("/users/me/role/refresh", deps.UserHandler.RefreshRoleHandler)

			tourRoutes := authRoutes.Group("/tours")
			{
				tourRoutes.POST("", deps.TourHandler.CreateTourHandler)
				tourRoutes.GET("", deps.TourHandler.ListOpenToursHandler)
				tourRoutes.GET("/mine", deps.TourHandler.ListMyToursHandler)
				tourRoutes.GET("/:id", deps.TourHandler.GetTourHandler)
				tourRoutes.PUT("/:id", deps.TourHandler.UpdateTourHandler)
				tourRoutes.DELETE("/:id", deps.TourHandler.DeleteTourHandler)
				tourRoutes.PATCH("/:id/status", deps.TourHandler.UpdateTourStatusHandler)
				tourRoutes.GET("/:id/weather", deps.TourHandler.TourWeatherHandler)

				tourRoutes.POST("/:id/join", deps.ParticipantHandler.RequestJoinHandler)
				tourRoutes.DELETE("/:id/join", deps.ParticipantHandler.CancelJoinHandler)
				tourRoutes.GET("/:id/participants", deps.ParticipantHandler.ListParticipantsHandler)
				tourRoutes.PATCH("/:id/participants/:userId", deps.ParticipantHandler.DecideJoinHandler)
			}
			authRoutes.GET("/requests", deps.ParticipantHandler.ListMyRequestsHandler)

			sightingRoutes := authRoutes.Group("/sightings")
			{
				sightingRoutes.POST("", deps.SightingHandler.ReportSightingHandler)
				sightingRoutes.GET("/mine", deps.SightingHandler.ListMySightingsHandler)
				sightingRoutes.POST("/media", deps.SightingHandler.AttachMediaHandler)
				sightingRoutes.GET("/heatmap", deps.SightingHandler.HeatmapHandler)
			}

			syncRoutes := authRoutes.Group("/sync")
			{
				syncRoutes.GET("/pending", deps.SyncHandler.ListPendingHandler)
				syncRoutes.GET("/failed", deps.SyncHandler.ListFailedHandler)
				syncRoutes.POST("/failed/:id/retry", deps.SyncHandler.RetryHandler)
				syncRoutes.DELETE("/completed", deps.SyncHandler.ClearCompletedHandler)
			}
		}
	}

	return r
}
