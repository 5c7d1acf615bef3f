// Package httpapi exposes the reconciliation operations over HTTP so a
// check can be triggered on demand in addition to the schedule.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/beekhof/calwatch/internal/lib/logger/sl"
	"github.com/beekhof/calwatch/internal/sync"
)

// Server wraps the gin router around a Syncer.
type Server struct {
	log    *slog.Logger
	syncer *sync.Syncer
	router *gin.Engine
}

// NewServer builds the router. Gin's release mode is set by the caller.
func NewServer(log *slog.Logger, syncer *sync.Syncer) *Server {
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		log:    log,
		syncer: syncer,
		router: router,
	}

	router.GET("/health", s.handleHealth)
	router.POST("/trigger-check", s.handleTriggerCheck)
	router.POST("/fetch", s.handleFetch)
	router.POST("/fetch-persist", s.handleFetchPersist)

	return s
}

// Handler returns the http.Handler for the server, usable with any
// http.Server or test client.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleTriggerCheck runs a full reconciliation pass and reports the
// newly added events.
func (s *Server) handleTriggerCheck(c *gin.Context) {
	added, err := s.syncer.SyncAndNotify(c.Request.Context())
	if err != nil {
		s.log.Error("check failed", sl.Err(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch calendar feed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"added_count": len(added),
		"added":       added,
	})
}

// handleFetch returns the events present in the feed but not yet
// stored, without writing or notifying.
func (s *Server) handleFetch(c *gin.Context) {
	fresh, err := s.syncer.FetchNew(c.Request.Context())
	if err != nil {
		s.log.Error("fetch failed", sl.Err(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch calendar feed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":  len(fresh),
		"events": fresh,
	})
}

// handleFetchPersist stores the not-yet-known feed events and reports
// how many were handed to the store.
func (s *Server) handleFetchPersist(c *gin.Context) {
	fresh, err := s.syncer.FetchNew(c.Request.Context())
	if err != nil {
		s.log.Error("fetch failed", sl.Err(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch calendar feed"})
		return
	}

	s.syncer.PersistNew(c.Request.Context(), fresh)

	c.JSON(http.StatusOK, gin.H{
		"stored": len(fresh),
	})
}
