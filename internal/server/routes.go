package server

import (
	"net/http"
	"regexp"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/keysmith-io/keysmith/internal"
	"github.com/keysmith-io/keysmith/internal/logging"
	"github.com/keysmith-io/keysmith/metrics"
)

// keysetNameMatcher restricts keyset names to characters that are safe in
// URLs and file names.
var keysetNameMatcher = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

var registerValidations sync.Once

func (s *Server) GenerateRoutes() *gin.Engine {
	registerValidations.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("keysetname", func(fl validator.FieldLevel) bool {
				return keysetNameMatcher.MatchString(fl.Field().String())
			})
		}
	})

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		logging.Middleware(),
		metrics.Middleware(s.promRegistry),
	)

	engine.GET("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	engine.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": internal.FullVersion()})
	})

	v1 := engine.Group("/v1")
	v1.GET("/keysets", s.listKeysets)
	v1.POST("/keysets", s.createKeyset)
	v1.GET("/keysets/:name", s.getKeyset)
	v1.DELETE("/keysets/:name", s.deleteKeyset)
	v1.GET("/keysets/:name/keys", s.listKeys)
	v1.POST("/keysets/:name/keys", s.addKey)
	v1.POST("/keysets/:name/keys/:id/promote", s.promoteKey)
	v1.PUT("/keysets/:name/keys/:id/status", s.setKeyStatus)
	v1.GET("/keysets/:name/info", s.exportKeysetInfo)
	v1.GET("/keysets/:name/export", s.exportKeyset)

	return engine
}
