package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aleister1102/filesentry/internal/config"
	"github.com/aleister1102/filesentry/internal/datastore"
	"github.com/aleister1102/filesentry/internal/monitor"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	defaultEventLimit = 100
	maxEventLimit     = 1000
)

// Server exposes the engine's read surface over HTTP, plus a manual
// scan trigger. All state mutation still flows through the reconciler;
// the API never writes to the baseline directly.
type Server struct {
	cfg        config.APIConfig
	store      *datastore.DB
	scheduler  *monitor.Scheduler
	service    *monitor.MonitoringService
	logger     zerolog.Logger
	httpServer *http.Server
	startedAt  time.Time
}

// NewServer creates the REST API server.
func NewServer(
	cfg config.APIConfig,
	store *datastore.DB,
	scheduler *monitor.Scheduler,
	service *monitor.MonitoringService,
	logger zerolog.Logger,
) *Server {
	return &Server{
		cfg:       cfg,
		store:     store,
		scheduler: scheduler,
		service:   service,
		logger:    logger.With().Str("component", "APIServer").Logger(),
		startedAt: time.Now(),
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", s.health)

	v1 := router.Group("/api/v1")
	v1.GET("/status", s.getStatus)
	v1.GET("/files", s.listFiles)
	v1.GET("/files/*path", s.getFileState)
	v1.GET("/events", s.listEvents)
	v1.GET("/statistics", s.getStatistics)
	v1.POST("/scan", s.triggerScan)

	return router
}

// Start runs the HTTP server until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.logger.Info().Msg("API server disabled by configuration")
		return nil
	}

	s.httpServer = &http.Server{
		Addr:              s.cfg.ListenAddress,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info().Str("address", s.cfg.ListenAddress).Msg("API server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getStatus(c *gin.Context) {
	fileCount, err := s.store.CountEntries()
	if err != nil {
		s.internalError(c, err)
		return
	}
	eventCount, err := s.store.CountEvents()
	if err != nil {
		s.internalError(c, err)
		return
	}

	status := gin.H{
		"monitoring":     string(s.service.Status()),
		"scan_running":   s.scheduler.IsScanning(),
		"files_tracked":  fileCount,
		"events_total":   eventCount,
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
	}

	if lastScan, err := s.store.LastScanTime(); err == nil && lastScan != nil {
		status["last_scan_time"] = lastScan.UTC().Format(time.RFC3339)
	}
	if summary := s.scheduler.LastSummary(); summary != nil {
		status["last_scan"] = summary
	}

	c.JSON(http.StatusOK, status)
}

func (s *Server) listFiles(c *gin.Context) {
	entries, err := s.store.AllEntries()
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": entries, "count": len(entries)})
}

func (s *Server) getFileState(c *gin.Context) {
	path := c.Param("path")
	if path == "" || path == "/" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file path required"})
		return
	}

	entry, err := s.store.GetEntry(path)
	if errors.Is(err, datastore.ErrEntryNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not tracked", "path": path})
		return
	}
	if err != nil {
		s.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

func (s *Server) listEvents(c *gin.Context) {
	limit := parsePositiveInt(c.Query("limit"), defaultEventLimit)
	if limit > maxEventLimit {
		limit = maxEventLimit
	}
	offset := parsePositiveInt(c.Query("offset"), 0)

	if path := c.Query("path"); path != "" {
		events, err := s.store.EventsForPath(path, limit)
		if err != nil {
			s.internalError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
		return
	}

	events, err := s.store.Events(limit, offset)
	if err != nil {
		s.internalError(c, err)
		return
	}
	total, err := s.store.CountEvents()
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events), "total": total})
}

func (s *Server) getStatistics(c *gin.Context) {
	fileCount, err := s.store.CountEntries()
	if err != nil {
		s.internalError(c, err)
		return
	}
	eventCount, err := s.store.CountEvents()
	if err != nil {
		s.internalError(c, err)
		return
	}
	byKind, err := s.store.EventCountsByKind()
	if err != nil {
		s.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"files_tracked":  fileCount,
		"events_total":   eventCount,
		"events_by_kind": byKind,
	})
}

// scanRequest is the optional POST /scan body. Without a body the
// trigger falls back to a full scan of all configured roots.
type scanRequest struct {
	Paths       []string `json:"paths"`
	ForceRescan bool     `json:"force_rescan"`
}

func (s *Server) triggerScan(c *gin.Context) {
	var req scanRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scan request: " + err.Error()})
			return
		}
	}
	force := req.ForceRescan || c.Query("force") == "true"

	var scanID string
	var err error
	if len(req.Paths) > 0 {
		scanID, _, err = s.scheduler.TriggerScanPaths(req.Paths, force)
	} else {
		scanID, _, err = s.scheduler.TriggerScan(force)
	}
	if errors.Is(err, monitor.ErrScanInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": "a scan is already in progress"})
		return
	}
	if err != nil {
		s.internalError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"scan_id": scanID, "status": "started"})
}

func (s *Server) internalError(c *gin.Context, err error) {
	s.logger.Error().Err(err).Str("route", c.FullPath()).Msg("Request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
