package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ShutdownTimeout is the maximum time to wait for graceful shutdown
const ShutdownTimeout = 10 * time.Second

// PaymentConfirmer settles a gateway transaction by track id
type PaymentConfirmer interface {
	Confirm(ctx context.Context, trackID string) bool
}

// Server is the HTTP surface of the bot. Its only job is to receive the
// payment gateway's callback; everything else happens over Telegram.
type Server struct {
	router    *gin.Engine
	server    *http.Server
	payments  PaymentConfirmer
	secretKey string
	addr      string
	logger    *logrus.Logger
}

// NewServer creates the callback server
func NewServer(payments PaymentConfirmer, addr, secretKey string, logger *logrus.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		router:    router,
		payments:  payments,
		secretKey: secretKey,
		addr:      addr,
		logger:    logger,
	}
	s.routes()

	return s
}

// routes sets up the routes for the HTTP server
func (s *Server) routes() {
	s.router.POST("/payment/callback", s.paymentCallback)
	s.router.GET("/healthz", s.health)
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.router,
	}

	s.logger.Infof("Starting HTTP server on %s", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}
	return nil
}
