package server

import (
	"context"
	"errors"
	"iter"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spigell/linkedai/internal/logger"
	"github.com/spigell/linkedai/internal/orchestrator"
	"go.uber.org/zap"
)

const (
	EventDone  = "done"
	EventError = "error"

	healthTimeout = 5 * time.Second
)

var ErrSessionNotFound = errors.New("session not found")

// Conversation is a single chat session driven by the HTTP shell.
type Conversation interface {
	Chat(ctx context.Context, text string) iter.Seq2[orchestrator.Fragment, error]
	Reset()
}

// Factory builds a fresh conversation for a new session ID.
type Factory func(sessionID string) Conversation

// Index is probed by the health check.
type Index interface {
	VerifyCollection(ctx context.Context) error
}

type Options struct {
	Index        Index
	ResumeLoaded bool
}

type session struct {
	// serializes turns, a conversation is not safe for concurrent use
	mu   sync.Mutex
	conv Conversation
}

// Server exposes chat sessions over HTTP with server-sent events.
type Server struct {
	factory Factory
	opts    Options
	logger  *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

func New(factory Factory, opts Options, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		factory:  factory,
		opts:     opts,
		logger:   log,
		sessions: make(map[string]*session),
	}
}

// Handler returns the gin router with every route registered.
func (s *Server) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery(), s.logRequests())

	router.GET("/healthz", s.health)

	api := router.Group("/api")
	api.POST("/sessions", s.createSession)
	api.POST("/sessions/:id/chat", s.chat)
	api.POST("/sessions/:id/reset", s.reset)
	api.DELETE("/sessions/:id", s.deleteSession)

	return router
}

// Run serves until the context is cancelled.
func (s *Server) Run(ctx context.Context, listen string) error {
	srv := &http.Server{
		Addr:              listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server started", zap.String("listen", listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("http server stopping")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

func (s *Server) createSession(c *gin.Context) {
	id := uuid.NewString()

	s.mu.Lock()
	s.sessions[id] = &session{conv: s.factory(id)}
	s.mu.Unlock()

	logger.WithSession(s.logger, id).Info("session created")
	c.JSON(http.StatusCreated, gin.H{"session_id": id})
}

func (s *Server) lookup(c *gin.Context) (*session, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[c.Param("id")]
	s.mu.RUnlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrSessionNotFound.Error()})
	}
	return sess, ok
}

type chatRequest struct {
	Message string `json:"message"`
}

func (s *Server) chat(c *gin.Context) {
	sess, ok := s.lookup(c)
	if !ok {
		return
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	// whitespace-only input is ignored
	if strings.TrimSpace(req.Message) == "" {
		c.SSEvent(EventDone, "")
		c.Writer.Flush()
		return
	}

	log := logger.WithSession(s.logger, c.Param("id"))

	sess.mu.Lock()
	defer sess.mu.Unlock()

	for fragment, err := range sess.conv.Chat(c.Request.Context(), req.Message) {
		if err != nil {
			log.Error("chat turn failed", zap.Error(err))
			c.SSEvent(EventError, "**Error**: "+err.Error())
			c.Writer.Flush()
			break
		}

		c.SSEvent(string(fragment.Kind), fragment.Text)
		c.Writer.Flush()

		if c.Request.Context().Err() != nil {
			log.Info("client went away, abandoning turn")
			return
		}
	}

	c.SSEvent(EventDone, "")
	c.Writer.Flush()
}

func (s *Server) reset(c *gin.Context) {
	sess, ok := s.lookup(c)
	if !ok {
		return
	}

	sess.mu.Lock()
	sess.conv.Reset()
	sess.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"message": orchestrator.ResetBanner})
}

func (s *Server) deleteSession(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrSessionNotFound.Error()})
		return
	}

	logger.WithSession(s.logger, id).Info("session deleted")
	c.Status(http.StatusNoContent)
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	status := gin.H{"resume_loaded": s.opts.ResumeLoaded, "vector_store": "ok"}
	healthy := true

	if s.opts.Index == nil {
		status["vector_store"] = "not configured"
		healthy = false
	} else if err := s.opts.Index.VerifyCollection(ctx); err != nil {
		status["vector_store"] = err.Error()
		healthy = false
	}

	status["healthy"] = healthy

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

// Sessions reports the number of live sessions.
func (s *Server) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
