package router

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Brownie44l1/ecosnap-api/internal/config"
	"github.com/Brownie44l1/ecosnap-api/internal/handlers"
	"github.com/Brownie44l1/ecosnap-api/internal/logging"
)

// New builds the gin engine. The predict variant bound to POST /predict is
// chosen by cfg.PredictVariant.
func New(cfg *config.Config, h *handlers.Handler, logger logrus.FieldLogger) *gin.Engine {
	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.MaxMultipartMemory = cfg.MaxUploadBytes

	engine.Use(gin.Recovery())
	engine.Use(logging.Middleware(logger))
	engine.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	engine.Use(limitBody(cfg.MaxUploadBytes))

	engine.GET("/health", h.Health)
	engine.GET("/info", h.Info)
	engine.GET("/metrics", h.Metrics)

	if cfg.Extended() {
		engine.POST("/predict", h.Predict)
	} else {
		engine.POST("/predict", h.PredictFile)
	}

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
	engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	})
	return engine
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Content-Type"},
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}

// limitBody caps request bodies. Multipart headers and the url field add a
// little on top of the file itself, so the cap carries 1 MiB of slack.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+1<<20)
		}
		c.Next()
	}
}
