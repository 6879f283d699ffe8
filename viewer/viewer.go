// Package viewer serves the single-page UI. Each browser tab gets its own
// session.Controller keyed by a uuid.
package viewer

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"DetOverlay/health"
	"DetOverlay/logger"
	"DetOverlay/monitor"
	"DetOverlay/session"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

//go:embed templates/page.html
var templates embed.FS

var page = template.Must(template.ParseFS(templates, "templates/page.html"))

const maxUpload = 50 << 20

// HealthSource supplies the latest advisory health status.
type HealthSource interface {
	Latest() health.Status
	Check(ctx context.Context) health.Status
}

type Options struct {
	Session     session.Options
	IdleTimeout time.Duration
}

type instance struct {
	id         string
	ctrl       *session.Controller
	mu         sync.Mutex
	lastActive time.Time
}

func (i *instance) touch() {
	i.mu.Lock()
	i.lastActive = time.Now()
	i.mu.Unlock()
}

func (i *instance) idleFor() time.Duration {
	i.mu.Lock()
	defer i.mu.Unlock()
	return time.Since(i.lastActive)
}

type Server struct {
	engine    *gin.Engine
	predictor session.Predictor
	health    HealthSource
	opts      Options

	sessionMu sync.RWMutex
	sessions  map[string]*instance
}

func New(predictor session.Predictor, hs HealthSource, opts Options) *Server {
	s := &Server{
		predictor: predictor,
		health:    hs,
		opts:      opts,
		sessions:  map[string]*instance{},
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.MaxMultipartMemory = maxUpload

	r.GET("/", s.handleIndex)
	r.GET("/api/health", s.handleHealth)
	r.POST("/api/sessions", s.handleCreate)
	r.GET("/sessions/:id", s.withSession(s.handlePage))
	r.GET("/sessions/:id/state", s.withSession(s.handleState))
	r.GET("/sessions/:id/overlay.png", s.withSession(s.handleOverlay))
	r.POST("/sessions/:id/file", s.withSession(s.handleFile))
	r.POST("/sessions/:id/threshold", s.withSession(s.handleThreshold))
	r.POST("/sessions/:id/predict", s.withSession(s.handlePredict))
	r.DELETE("/sessions/:id", s.handleDelete)
	s.engine = r
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.closeAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Log().Debug("http",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}

func (s *Server) newSession() *instance {
	inst := &instance{
		id:         uuid.New().String(),
		ctrl:       session.New(s.predictor, s.opts.Session),
		lastActive: time.Now(),
	}
	s.sessionMu.Lock()
	s.sessions[inst.id] = inst
	n := len(s.sessions)
	s.sessionMu.Unlock()
	monitor.ActiveSessions.Set(float64(n))
	logger.Log().Info("session created", zap.String("session", inst.id))
	return inst
}

func (s *Server) lookup(id string) (*instance, bool) {
	s.sessionMu.RLock()
	inst, ok := s.sessions[id]
	s.sessionMu.RUnlock()
	if ok {
		inst.touch()
	}
	return inst, ok
}

func (s *Server) release(id string) bool {
	s.sessionMu.Lock()
	inst, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	n := len(s.sessions)
	s.sessionMu.Unlock()
	if !ok {
		return false
	}
	inst.ctrl.Close()
	monitor.ActiveSessions.Set(float64(n))
	return true
}

func (s *Server) closeAll() {
	s.sessionMu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.sessionMu.RUnlock()
	for _, id := range ids {
		s.release(id)
	}
}

// ReapIdle drops sessions unused for longer than the idle timeout and
// returns how many were dropped.
func (s *Server) ReapIdle() int {
	if s.opts.IdleTimeout <= 0 {
		return 0
	}
	s.sessionMu.RLock()
	var stale []string
	for id, inst := range s.sessions {
		if inst.idleFor() > s.opts.IdleTimeout {
			stale = append(stale, id)
		}
	}
	s.sessionMu.RUnlock()
	n := 0
	for _, id := range stale {
		if s.release(id) {
			n++
			logger.Log().Info("session released after idle timeout", zap.String("session", id))
		}
	}
	return n
}

// StartIdleMonitor runs ReapIdle periodically until ctx is done.
func (s *Server) StartIdleMonitor(ctx context.Context) {
	if s.opts.IdleTimeout <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(max(time.Second, s.opts.IdleTimeout/4))
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.ReapIdle()
			}
		}
	}()
}

func (s *Server) withSession(h func(*gin.Context, *instance)) gin.HandlerFunc {
	return func(c *gin.Context) {
		inst, ok := s.lookup(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		h(c, inst)
	}
}

func wantsJSON(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}

// respond answers API clients with the state and browsers with a redirect
// back to the page.
func respond(c *gin.Context, inst *instance, status int, st session.State) {
	if wantsJSON(c) {
		c.JSON(status, st)
		return
	}
	c.Redirect(http.StatusSeeOther, "/sessions/"+inst.id)
}

func (s *Server) handleIndex(c *gin.Context) {
	inst := s.newSession()
	c.Redirect(http.StatusSeeOther, "/sessions/"+inst.id)
}

func (s *Server) handleCreate(c *gin.Context) {
	inst := s.newSession()
	c.JSON(http.StatusOK, gin.H{
		"sessionID": inst.id,
		"pageURL":   "/sessions/" + inst.id,
	})
}

func (s *Server) handleDelete(c *gin.Context) {
	if !s.release(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": "Session released"})
}

func (s *Server) handleHealth(c *gin.Context) {
	if c.Query("refresh") != "" {
		c.JSON(http.StatusOK, s.health.Check(c.Request.Context()))
		return
	}
	c.JSON(http.StatusOK, s.health.Latest())
}

type pageData struct {
	ID     string
	State  session.State
	Health health.Status
}

func (s *Server) handlePage(c *gin.Context, inst *instance) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	data := pageData{ID: inst.id, State: inst.ctrl.State(), Health: s.health.Latest()}
	if err := page.Execute(c.Writer, data); err != nil {
		logger.Log().Error("render page", zap.Error(err))
	}
}

func (s *Server) handleState(c *gin.Context, inst *instance) {
	c.JSON(http.StatusOK, inst.ctrl.State())
}

func (s *Server) handleOverlay(c *gin.Context, inst *instance) {
	w, wErr := strconv.ParseFloat(c.Query("w"), 64)
	h, hErr := strconv.ParseFloat(c.Query("h"), 64)
	if wErr == nil && hErr == nil {
		inst.ctrl.Resize(w, h)
	}
	data, err := inst.ctrl.PNG()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", data)
}

func (s *Server) handleFile(c *gin.Context, inst *instance) {
	fh, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			st, _ := inst.ctrl.SelectFile("", nil)
			respond(c, inst, http.StatusOK, st)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "File upload failed: " + err.Error()})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File upload failed: " + err.Error()})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File upload failed: " + err.Error()})
		return
	}
	st, err := inst.ctrl.SelectFile(fh.Filename, data)
	if err != nil {
		logger.Log().Debug("selected file not drawable", zap.String("session", inst.id), zap.Error(err))
	}
	respond(c, inst, http.StatusOK, st)
}

func (s *Server) handleThreshold(c *gin.Context, inst *instance) {
	conf, err := strconv.ParseFloat(c.PostForm("conf"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conf"})
		return
	}
	respond(c, inst, http.StatusOK, inst.ctrl.SetThreshold(conf))
}

func (s *Server) handlePredict(c *gin.Context, inst *instance) {
	st, err := inst.ctrl.Predict(c.Request.Context())
	switch {
	case errors.Is(err, session.ErrNoFile):
		respond(c, inst, http.StatusBadRequest, st)
	case errors.Is(err, session.ErrBusy):
		respond(c, inst, http.StatusConflict, st)
	default:
		// request failures live in st.Message and stale results are dropped
		respond(c, inst, http.StatusOK, st)
	}
}
