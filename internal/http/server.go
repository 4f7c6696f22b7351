// README: API gateway; registers HTTP routes and delegates to module services.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"trainfare/internal/http/handlers"
	"trainfare/internal/http/middleware"
	"trainfare/internal/modules/pricing"
)

type ServerDeps struct {
	Pricing *pricing.Service
	// Location is used to read plain travel dates.
	Location *time.Location
	Logger   *slog.Logger
}

type Server struct {
	pricing  *pricing.Service
	location *time.Location
	logger   *slog.Logger
}

func NewServer(deps ServerDeps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		pricing:  deps.Pricing,
		location: deps.Location,
		logger:   logger,
	}
}

func (s *Server) Routes() http.Handler {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logging(s.logger), middleware.Recovery(s.logger))

	estimateHandler := handlers.NewEstimateHandler(s.pricing, s.location)
	r.POST("/api/estimates", estimateHandler.Create)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	return r
}
