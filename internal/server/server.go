// Package server exposes the recorder over a small local HTTP API.
package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/phinze/rawdelta/internal/export"
	"github.com/phinze/rawdelta/internal/recorder"
	"github.com/phinze/rawdelta/internal/store"
)

// Capture is the part of the recorder the API drives.
type Capture interface {
	StartCapture() error
	RestartSession()
	DrainSamples() []store.Sample
	SessionStart() time.Time
	Status() recorder.Status
}

// Sessions persists drained sessions.
type Sessions interface {
	Save(ctx context.Context, startedAt time.Time, samples []store.Sample, note string) (export.Session, error)
	List(ctx context.Context) ([]export.Session, error)
}

// Config configures the HTTP handler.
type Config struct {
	// Token, when set, must be presented as a bearer token on /api routes.
	Token string
	Debug bool
}

type api struct {
	capture  Capture
	sessions Sessions
}

// NewHandler builds the gin engine. sessions may be nil, in which case
// export routes answer 503.
func NewHandler(cfg Config, capture Capture, sessions Sessions) http.Handler {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	g := gin.New()
	g.Use(gin.Recovery())
	if cfg.Debug {
		g.Use(gin.Logger())
	}
	g.Use(cors.New(cors.Config{
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Accept", "Content-Type", "Authorization"},
		MaxAge:          12 * time.Hour,
		AllowAllOrigins: true,
	}))
	g.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	a := &api{capture: capture, sessions: sessions}

	g.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	r := g.Group("/api", bearer(cfg.Token))
	r.POST("/capture/start", a.startCapture)
	r.POST("/session/restart", a.restartSession)
	r.GET("/samples", gzip.Gzip(gzip.DefaultCompression), a.drainSamples)
	r.GET("/status", a.status)
	r.POST("/sessions", a.saveSession)
	r.GET("/sessions", a.listSessions)
	return g
}

func bearer(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		got, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func (a *api) startCapture(c *gin.Context) {
	if err := a.capture.StartCapture(); err != nil {
		log.Printf("server: start capture: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *api) restartSession(c *gin.Context) {
	a.capture.RestartSession()
	c.Status(http.StatusNoContent)
}

func (a *api) drainSamples(c *gin.Context) {
	samples := a.capture.DrainSamples()
	if samples == nil {
		samples = []store.Sample{}
	}
	c.JSON(http.StatusOK, samples)
}

func (a *api) status(c *gin.Context) {
	c.JSON(http.StatusOK, a.capture.Status())
}

type saveRequest struct {
	Note string `json:"note"`
}

type saveResponse struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

func (a *api) saveSession(c *gin.Context) {
	if a.sessions == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session export is not configured"})
		return
	}
	var req saveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	started := a.capture.SessionStart()
	samples := a.capture.DrainSamples()
	s, err := a.sessions.Save(c.Request.Context(), started, samples, req.Note)
	if err != nil {
		log.Printf("server: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, saveResponse{ID: s.ID, Count: s.Count})
}

func (a *api) listSessions(c *gin.Context) {
	if a.sessions == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session export is not configured"})
		return
	}
	sessions, err := a.sessions.List(c.Request.Context())
	if err != nil {
		log.Printf("server: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// Serve runs the handler on addr until ctx is cancelled, then shuts the
// listener down gracefully.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("server: listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Println("server: stopped")
	return nil
}
