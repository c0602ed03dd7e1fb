// Package server exposes the agent's local control API: the endpoints the
// popup and dashboard pages drive connect flows and monitoring through.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/privai-labs/privai-agent/internal/messages"
	"github.com/privai-labs/privai-agent/internal/platform"
	"github.com/privai-labs/privai-agent/internal/state"
)

// Connector is the slice of the connect manager the API drives.
type Connector interface {
	StartConnect(ctx context.Context, p platform.Platform)
	FinishConnect(ctx context.Context, p platform.Platform, accountID, accountName string) error
	InProgress(p platform.Platform) bool
}

// Server is the HTTP control surface. It binds to loopback; there is no
// auth layer.
type Server struct {
	engine    *gin.Engine
	store     *state.Store
	connector Connector
	hub       *Hub
	log       *logrus.Entry
}

// New builds the server and its routes.
func New(store *state.Store, connector Connector, hub *Hub, log *logrus.Entry) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:    engine,
		store:     store,
		connector: connector,
		hub:       hub,
		log:       log,
	}
	s.routes()
	return s
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() {
	s.engine.GET("/healthz", s.handleHealth)

	api := s.engine.Group("/api")
	api.GET("/platforms", s.handlePlatforms)
	api.POST("/connect", s.handleConnect)
	api.POST("/messages", s.handleMessage)
	api.POST("/platforms/:platform/monitor", s.handleMonitorToggle)
	api.GET("/consent", s.handleGetConsent)
	api.POST("/consent", s.handleSetConsent)
	api.GET("/activity", s.handleActivity)
	api.GET("/activity/stream", s.handleActivityStream)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"clients": s.hub.Clients(),
	})
}

// platformStatus is one platform's persisted record plus the live flow
// flag.
type platformStatus struct {
	state.PlatformState
	InProgress bool `json:"inProgress"`
}

func (s *Server) handlePlatforms(c *gin.Context) {
	ps := s.store.LoadPlatforms()
	resp := make(map[platform.Platform]platformStatus, len(ps))
	for p, st := range ps {
		resp[p] = platformStatus{PlatformState: st, InProgress: s.connector.InProgress(p)}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleConnect(c *gin.Context) {
	var req struct {
		Platform string `json:"platform"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}
	p, ok := platform.FromSiteName(req.Platform)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported platform %q", req.Platform)})
		return
	}

	// The flow outlives the request: tab creation and the login maze run
	// for as long as the user takes.
	go s.connector.StartConnect(context.Background(), p)
	c.JSON(http.StatusAccepted, gin.H{"platform": p, "status": "starting"})
}

// handleMessage accepts a raw protocol envelope, for surfaces that speak
// the message protocol rather than the REST shape.
func (s *Server) handleMessage(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable request body"})
		return
	}
	m, err := messages.Decode(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := messages.Dispatch(c.Request.Context(), m, s); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleStartConnect implements messages.Handler.
func (s *Server) HandleStartConnect(ctx context.Context, m messages.StartConnect) error {
	if _, ok := platform.FromSiteName(string(m.Platform)); !ok {
		return fmt.Errorf("unsupported platform %q", m.Platform)
	}
	go s.connector.StartConnect(context.Background(), m.Platform)
	return nil
}

// HandleFinishConnect implements messages.Handler.
func (s *Server) HandleFinishConnect(ctx context.Context, m messages.FinishConnect) error {
	return s.connector.FinishConnect(ctx, m.Platform, m.AccountID, m.AccountName)
}

// HandleRequestAccount implements messages.Handler. An account request is
// a probe of already open platform tabs, which is what StartConnect does
// for the probe-only platforms.
func (s *Server) HandleRequestAccount(ctx context.Context, m messages.RequestAccount) error {
	go s.connector.StartConnect(context.Background(), m.Platform)
	return nil
}

func (s *Server) handleMonitorToggle(c *gin.Context) {
	p, ok := platform.FromSiteName(c.Param("platform"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported platform %q", c.Param("platform"))})
		return
	}
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}

	err := s.store.UpdatePlatform(p, func(st state.PlatformState) state.PlatformState {
		st.Monitor = req.Enabled
		return st
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"platform": p, "monitor": req.Enabled})
}

func (s *Server) handleGetConsent(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"monitoringAllowed": s.store.MonitoringAllowed()})
}

func (s *Server) handleSetConsent(c *gin.Context) {
	var req struct {
		MonitoringAllowed bool `json:"monitoringAllowed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}
	if err := s.store.SetMonitoringAllowed(req.MonitoringAllowed); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"monitoringAllowed": req.MonitoringAllowed})
}

func (s *Server) handleActivity(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	entries, err := s.store.ListActivity(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if entries == nil {
		entries = []state.Activity{}
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) handleActivityStream(c *gin.Context) {
	s.hub.ServeWS(c.Writer, c.Request)
}
