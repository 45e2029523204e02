// Package server exposes the editing surface over HTTP: JSON routes
// under /api/v1 mapping 1:1 onto engine, lifecycle, and history
// operations, plus a websocket endpoint observers subscribe to for the
// ordered delta stream.
package server

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roach88/atelier/internal/project"
)

// Server wires the router, the lifecycle manager, and the observer hub.
type Server struct {
	router  *gin.Engine
	manager *project.Manager
	hub     *Hub
}

// New builds the server and attaches the hub as the manager's event
// sink.
func New(m *project.Manager) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLog())

	s := &Server{router: router, manager: m, hub: NewHub()}
	m.Attach(s.hub.Broadcast)
	s.routes()
	return s
}

// Hub returns the observer hub.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the underlying http handler, for tests.
func (s *Server) Handler() *gin.Engine { return s.router }

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	slog.Info("listening", "addr", addr)
	return s.router.Run(addr)
}

func (s *Server) routes() {
	api := s.router.Group("/api/v1")

	api.GET("/ws", handleWS(s.manager, s.hub))
	api.GET("/document", s.getDocument)

	api.POST("/nodes", s.createNode)
	api.POST("/nodes/subtree", s.createSubtree)
	api.GET("/nodes/:id", s.getNode)
	api.PATCH("/nodes/:id", s.updateNode)
	api.DELETE("/nodes/:id", s.deleteNode)
	api.POST("/nodes/:id/move", s.moveNode)
	api.GET("/tree", s.listTree)

	api.POST("/pages", s.createPage)
	api.POST("/pages/:id/clone", s.clonePage)
	api.PATCH("/pages/:id", s.renamePage)
	api.DELETE("/pages/:id", s.deletePage)
	api.POST("/pages/:id/activate", s.setActivePage)

	api.POST("/styles", s.setStyles)
	api.POST("/styles/batch", s.batchSetStyles)
	api.DELETE("/styles", s.deleteStyles)

	api.POST("/tokens", s.setTokens)
	api.POST("/tokens/propagate", s.propagateToken)
	api.POST("/viewport", s.setViewport)

	api.GET("/projects", s.listProjects)
	api.POST("/projects", s.createProject)
	api.POST("/projects/:id/switch", s.switchProject)
	api.PATCH("/projects/:id", s.renameProject)
	api.DELETE("/projects/:id", s.deleteProject)

	api.POST("/checkpoints", s.createCheckpoint)
	api.GET("/checkpoints", s.listCheckpoints)
	api.POST("/checkpoints/:id/restore", s.restoreCheckpoint)
	api.GET("/checkpoints/:id/diff", s.diffCheckpoint)

	api.GET("/operations", s.listOperations)
}

// requestLog logs each request through slog instead of gin's own
// writer.
func requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
