package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"springsnow/internal/api"
	"springsnow/internal/config"
	"springsnow/internal/metrics"
	"springsnow/internal/store"
)

// shutdownTimeout 优雅退出的最长等待
const shutdownTimeout = 10 * time.Second

// Server HTTP服务器
type Server struct {
	router  *gin.Engine
	store   *store.Store
	cfg     *config.AppConfig
	metrics *metrics.Metrics
	api     *api.Handler
}

// NewServer 创建服务器；m 为 nil 时使用 metrics.Default
func NewServer(cfg *config.AppConfig, st *store.Store, m *metrics.Metrics) *Server {
	if !cfg.Server.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}
	if m == nil {
		m = metrics.Default
	}

	s := &Server{
		router:  gin.New(),
		store:   st,
		cfg:     cfg,
		metrics: m,
		api:     api.NewHandler(st, cfg, m),
	}
	s.setupRoutes()
	return s
}

// Handler 返回 http.Handler（用于测试）
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery(), requestLogger(), metricsMiddleware(s.metrics), corsMiddleware(s.cfg.Server.AllowedOrigins))

	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	group := s.router.Group("/api")
	{
		s.api.RegisterRoutes(group)
	}

	// 生成的看板与质量报告
	reports := config.GetDataPath(s.cfg, "reports", "")
	if _, err := os.Stat(reports); err == nil {
		s.router.Static("/reports", reports)
	}

	if s.cfg.Server.DevMode && len(s.cfg.Server.AllowedOrigins) > 0 {
		// 开发模式：非 API 请求转到前端开发服务器
		frontend := s.cfg.Server.AllowedOrigins[len(s.cfg.Server.AllowedOrigins)-1]
		s.router.NoRoute(func(c *gin.Context) {
			c.Redirect(http.StatusTemporaryRedirect, frontend+c.Request.URL.Path)
		})
		return
	}
	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
}

// corsMiddleware 只回显白名单中的 Origin，否则使用第一个
func corsMiddleware(allowed []string) gin.HandlerFunc {
	fallback := ""
	if len(allowed) > 0 {
		fallback = allowed[0]
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if !lo.Contains(allowed, origin) {
			origin = fallback
		}
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization, X-Requested-With")
		c.Header("Access-Control-Expose-Headers", "Content-Length, X-Requested-With")
		c.Header("Access-Control-Max-Age", "86400")
		c.Header("Vary", "Origin")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

// metricsMiddleware 按路由模板记录请求数与耗时
func metricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(route, c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		ev := log.Debug()
		if c.Writer.Status() >= http.StatusInternalServerError {
			ev = log.Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}

// Run 启动服务器，ctx 取消后优雅退出
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("服务已启动")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("正在关闭服务...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
