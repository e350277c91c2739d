package api

import (
	"sms-gateway/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type Handlers struct {
	SMS       *SMSHandler
	Templates *TemplateHandler
	Folders   *FolderHandler
}

func NewRouter(h Handlers, log zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.GinMiddleware(log))

	// CORS Middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, "+SenderHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	apiGroup := r.Group("/api")
	{
		smsGroup := apiGroup.Group("/sms")
		{
			smsGroup.GET("", h.SMS.List)
			smsGroup.GET("/history", h.SMS.History)
			smsGroup.POST("/send", h.SMS.Send)
			smsGroup.POST("/send-many", h.SMS.SendMany)
			smsGroup.POST("/send-excel", h.SMS.SendExcel)
		}

		// Template Routes
		apiGroup.GET("/templates", h.Templates.GetTemplates)
		apiGroup.POST("/templates", h.Templates.CreateTemplate)
		apiGroup.GET("/templates/:id", h.Templates.GetTemplate)
		apiGroup.PUT("/templates/:id", h.Templates.UpdateTemplate)
		apiGroup.DELETE("/templates/:id", h.Templates.DeleteTemplate)
		apiGroup.POST("/templates/:id/files", h.Templates.UploadFile)

		// Drop Folder Routes
		apiGroup.POST("/folders/:folder/files/:file/process", h.Folders.ProcessFile)
		apiGroup.GET("/watcher", h.Folders.Status)
	}

	return r
}
