// Package server implements the HTTP API over the flow executor and the
// contract library
package server

import (
	"log/slog"
	"net/http"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"

	"github.com/tluyben/lawyeredup/flow"
	"github.com/tluyben/lawyeredup/library"
)

type (
	// Server serves flow invocations and library lookups
	Server struct {
		exec    *flow.Executor
		library *library.Library
		log     *slog.Logger
	}

	// ErrorResponse is the body of every failed request
	ErrorResponse struct {
		Error  string    `json:"error"`
		Kind   flow.Kind `json:"kind,omitempty"`
		Status int       `json:"status"`
	}

	HealthResponse struct {
		Status  string `json:"status"`
		Service string `json:"service"`
		Flows   int    `json:"flows"`
		Library bool   `json:"library"`
	}
)

const serviceName = "lawyeredup"

// NewServer creates the API server. lib may be nil, in which case the
// library endpoints report 503
func NewServer(
	exec *flow.Executor, lib *library.Library, logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		exec:    exec,
		library: lib,
		log:     logger,
	}
}

// SetupRoutes configures and returns the HTTP router with all API endpoints
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.UseRawPath = true
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(_ *gin.Context, _ *slog.Logger) *slog.Logger {
			return s.log
		}),
	))

	router.GET("/health", s.handleHealth)

	flows := router.Group("/flows")
	{
		flows.GET("", s.listFlows)
		flows.GET("/:name", s.getFlow)
		flows.POST("/:name", s.invokeFlow)
	}

	lib := router.Group("/library")
	{
		lib.POST("", s.addDocument)
		lib.GET("/search", s.searchLibrary)
		lib.GET("/:id", s.getDocument)
	}

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: serviceName,
		Flows:   len(s.exec.Registry().Names()),
		Library: s.library != nil,
	})
}

func abort(c *gin.Context, status int, kind flow.Kind, err error) {
	c.JSON(status, ErrorResponse{
		Error:  err.Error(),
		Kind:   kind,
		Status: status,
	})
}
