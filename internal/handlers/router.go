package handlers

import (
	"github.com/SAP-F-2025/toeic-import-service/internal/config"
	"github.com/SAP-F-2025/toeic-import-service/internal/metrics"
	"github.com/SAP-F-2025/toeic-import-service/internal/services"
	"github.com/SAP-F-2025/toeic-import-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	importHandler   *ImportHandler
	passageHandler  *PassageHandler
	questionHandler *QuestionHandler
	auth            gin.HandlerFunc
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	importConfig config.ImportConfig,
	verifier TokenVerifier,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		importHandler:   NewImportHandler(serviceManager.Import(), serviceManager.Template(), importConfig.MaxUploadBytes, logger),
		passageHandler:  NewPassageHandler(serviceManager.Passage(), logger),
		questionHandler: NewQuestionHandler(serviceManager.Export(), logger),
		auth:            AuthMiddleware(verifier, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", HealthCheck)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(hm.auth)
	{
		// Import routes
		imports := v1.Group("/imports")
		{
			imports.GET("/template", hm.importHandler.DownloadTemplate)
			imports.GET("/history", hm.importHandler.ListHistory)
			imports.POST("", hm.importHandler.UploadFile)
			imports.GET("/:id", hm.importHandler.GetSession)
			imports.DELETE("/:id", hm.importHandler.DisposeSession)
			imports.POST("/:id/file", hm.importHandler.ReplaceFile)
			imports.GET("/:id/progress", hm.importHandler.GetProgress)
			imports.GET("/:id/events", hm.importHandler.StreamEvents)
			imports.POST("/:id/commit", hm.importHandler.Commit)
		}

		// Passage routes
		passages := v1.Group("/passages")
		{
			passages.POST("", hm.passageHandler.CreatePassage)
			passages.GET("", hm.passageHandler.ListPassages)
			passages.GET("/:id", hm.passageHandler.GetPassage)
		}

		// Question routes
		questions := v1.Group("/questions")
		{
			questions.GET("/export", hm.questionHandler.ExportQuestions)
		}
	}
}

func HealthCheck(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "healthy",
		"service": "toeic-import-service",
	})
}
