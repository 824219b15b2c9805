package route

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jarupong555/Detec-V1.0/internal/handler"
	"github.com/jarupong555/Detec-V1.0/internal/logger"
	"github.com/jarupong555/Detec-V1.0/internal/middleware"
	"github.com/jarupong555/Detec-V1.0/internal/repository"
	"github.com/jarupong555/Detec-V1.0/internal/service/storage"
	hub "github.com/jarupong555/Detec-V1.0/internal/service/websocket"
)

// Dependencies are the services the HTTP API is built on.
type Dependencies struct {
	AppName       string
	Cameras       handler.CameraCatalog
	Workers       handler.WorkerStatus
	Streams       handler.StreamOpener
	Store         *storage.Store
	ImageRepo     repository.ImageRepository
	DetectionRepo repository.DetectionRepository
	Hub           *hub.HubService
	Logger        *logger.Logger
}

// SetupRoutes builds the gin engine with every API endpoint registered.
func SetupRoutes(deps Dependencies) *gin.Engine {
	log := deps.Logger.Component("http")

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))
	r.Use(cors.Default())

	r.GET("/", handler.RootHandler(deps.AppName))

	api := r.Group("/api")
	{
		api.GET("/cameras", handler.ListCamerasHandler(deps.Cameras, deps.Workers, log))
		api.POST("/cameras", handler.AddCameraHandler(deps.Cameras, deps.Workers, log))
		api.GET("/cameras/:id", handler.GetCameraHandler(deps.Cameras, deps.Workers, log))
		api.DELETE("/cameras/:id", handler.DeleteCameraHandler(deps.Cameras, log))

		api.GET("/classes", handler.GetClassesHandler(deps.Cameras))
		api.POST("/classes", handler.SetClassesHandler(deps.Cameras, log))

		api.GET("/stream/:id", handler.StreamHandler(deps.Cameras, deps.Streams, log))

		if deps.ImageRepo != nil {
			api.GET("/pictures", handler.GetPicturesHandler(deps.Store, deps.ImageRepo, deps.DetectionRepo, log))
			api.GET("/pictures/view", handler.ViewPictureHandler(deps.ImageRepo, log))
			api.GET("/pictures/stats", handler.PictureStatsHandler(deps.ImageRepo, log))
			api.DELETE("/pictures/:id", handler.DeletePictureHandler(deps.ImageRepo, log))
			api.DELETE("/pictures", handler.ClearPicturesHandler(deps.Store, deps.ImageRepo, log))
		}
	}

	if deps.Hub != nil {
		r.GET("/ws/detections", handler.DetectionsWebsocketHandler(deps.Hub, log))
	}

	r.GET("/logs/:level", handler.ShowLogsHandler(deps.Logger))
	r.POST("/logs/:level/clear", handler.ClearLogsHandler(deps.Logger))

	return r
}
