package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mvlzerz/loan-reminder/pkg/metrics"
	"github.com/mvlzerz/loan-reminder/pkg/system"
	"github.com/mvlzerz/loan-reminder/pkg/version"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	gin  *gin.Engine
	addr string
	log  *zap.SugaredLogger
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func NewServer(log *zap.Logger, addr string, debug bool) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		ginzap.Ginzap(log, time.RFC3339, true),
		ginzap.RecoveryWithZap(log, true),
	)

	s := &Server{
		gin:  engine,
		addr: addr,
		log:  log.Sugar().Named("api"),
	}
	engine.Use(system.RequestLogger(s.log))

	engine.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))
	engine.GET("/healthz", s.getHealth)
	engine.GET("/api/debug/buildinfo", s.getBuildInfo)

	return s
}

// Handler returns the underlying HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.gin
}

// Listen serves until ctx is cancelled and then shuts the server down
// gracefully.
func (s *Server) Listen(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.gin,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("Serving metrics and health endpoints", "address", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("HTTP server stopped")
	return nil
}

func (s *Server) getHealth(c *gin.Context) {
	system.GetReqLogger(c, s.log).Debug("Health probe")
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: version.Version,
	})
}

func (s *Server) getBuildInfo(c *gin.Context) {
	c.JSON(http.StatusOK, version.GetBuildInfo())
}
