// Package web gin server
package web

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/Laisky/files-manager/internal/web/files"
	"github.com/Laisky/files-manager/library/log"
)

const shutdownTimeout = 10 * time.Second

// ServerOptions configures the HTTP server.
type ServerOptions struct {
	Debug bool
	// URLPrefix mounts the API under a sub path, like `/api`
	URLPrefix string
	// CORSHosts are the origin hosts allowed to call the API,
	// a leading dot also allows every subdomain
	CORSHosts []string
	// DisableMetric skips the prometheus and pprof routes
	DisableMetric bool
}

// NewServer builds the gin engine serving app.
func NewServer(app *files.App, opts ServerOptions) (*gin.Engine, error) {
	if app == nil || app.Controller == nil {
		return nil, errors.New("files app is required")
	}
	if !opts.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	server := gin.New()
	server.ContextWithFallback = true
	server.Use(
		gin.Recovery(),
		gmw.NewLoggerMiddleware(
			gmw.WithLoggerMwColored(),
			gmw.WithLevel(log.Logger.Level().String()),
			gmw.WithLogger(log.Logger.Named("gin")),
		),
		allowCORS(opts.CORSHosts),
	)

	if !opts.DisableMetric {
		if err := gmw.EnableMetric(server); err != nil {
			return nil, errors.Wrap(err, "enable metric server")
		}
	}

	server.Any("/health", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "hello, world")
	})

	prefix := normalizePrefix(opts.URLPrefix)
	if prefix == "" {
		app.Controller.Register(server)
	} else {
		app.Controller.Register(server.Group(prefix))
	}

	return server, nil
}

// RunServer serves until ctx is done, then shuts down gracefully.
func RunServer(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Logger.Info("listening on http", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "http server exit")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.Logger.Info("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown http server")
	}

	return nil
}

func normalizePrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return ""
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}

	return prefix
}

// originAllowed matches the origin host against hosts,
// an entry like `.example.com` matches example.com and all its subdomains.
func originAllowed(origin string, hosts []string) bool {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Hostname() == "" {
		return false
	}

	host := strings.ToLower(parsed.Hostname())
	for _, allowed := range hosts {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		switch {
		case allowed == "":
			continue
		case allowed == "*":
			return true
		case strings.HasPrefix(allowed, "."):
			if host == allowed[1:] || strings.HasSuffix(host, allowed) {
				return true
			}
		case host == allowed:
			return true
		}
	}

	return false
}

func allowCORS(hosts []string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		origin := ctx.Request.Header.Get("Origin")
		if origin == "" {
			ctx.Next()
			return
		}

		if !originAllowed(origin, hosts) {
			// deny preflight from disallowed origins
			if ctx.Request.Method == http.MethodOptions {
				ctx.AbortWithStatus(http.StatusForbidden)
				return
			}

			ctx.Next()
			return
		}

		ctx.Header("Access-Control-Allow-Origin", origin)
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS, HEAD")
		ctx.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, Origin, X-Token, X-Requested-With")
		ctx.Header("Access-Control-Max-Age", "86400") // 24 hours
		ctx.Header("Vary", "Origin")

		if ctx.Request.Method == http.MethodOptions {
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}

		ctx.Next()
	}
}
