// Package controller exposes the files service over HTTP.
package controller

import (
	"net/http"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/Laisky/files-manager/internal/web/files/auth"
	"github.com/Laisky/files-manager/internal/web/files/model"
	"github.com/Laisky/files-manager/internal/web/files/service"
)

const (
	// TokenHeader carries the session token.
	TokenHeader = "X-Token"

	ctxKeyUserID = "files_user_id"

	defaultMaxPayloadBytes = 10 << 20
)

// Checker reports the readiness of a backend.
type Checker interface {
	IsAlive() bool
}

// Options tunes the controller.
type Options struct {
	// MaxPayloadBytes caps the body of POST /files
	MaxPayloadBytes int64
	// ConnectRate is the sustained number of logins per second per client ip,
	// zero disables the limit
	ConnectRate  float64
	ConnectBurst int
}

// Controller holds the HTTP handlers.
type Controller struct {
	gate     *auth.Gate
	files    *service.Service
	sessions Checker
	docs     Checker
	opts     Options
	limiter  *ipLimiter
}

// New create new controller
func New(gate *auth.Gate, files *service.Service, sessions, docs Checker, opts Options) (*Controller, error) {
	if gate == nil || files == nil {
		return nil, errors.New("auth gate and files service are required")
	}
	if sessions == nil || docs == nil {
		return nil, errors.New("readiness checkers are required")
	}
	if opts.MaxPayloadBytes <= 0 {
		opts.MaxPayloadBytes = defaultMaxPayloadBytes
	}

	c := &Controller{
		gate:     gate,
		files:    files,
		sessions: sessions,
		docs:     docs,
		opts:     opts,
	}
	if opts.ConnectRate > 0 {
		c.limiter = newIPLimiter(rate.Limit(opts.ConnectRate), max(opts.ConnectBurst, 1))
	}

	return c, nil
}

// Register mounts every route on r.
func (c *Controller) Register(r gin.IRouter) {
	r.GET("/status", c.getStatus)
	r.GET("/stats", c.getStats)

	r.POST("/users", c.postUser)
	r.GET("/connect", c.rateLimit, c.getConnect)
	r.GET("/disconnect", c.getDisconnect)
	r.GET("/users/me", c.requireUser, c.getMe)

	r.POST("/files", c.requireUser, c.postFile)
	r.GET("/files", c.requireUser, c.listFiles)
	r.GET("/files/:id", c.requireUser, c.getFile)
	r.PUT("/files/:id/publish", c.requireUser, c.publishFile)
	r.PUT("/files/:id/unpublish", c.requireUser, c.unpublishFile)
}

// requireUser resolves X-Token and aborts with 401 when it does not name a live session.
func (c *Controller) requireUser(ctx *gin.Context) {
	uid, err := c.gate.RequireUser(ctx, ctx.GetHeader(TokenHeader))
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.Set(ctxKeyUserID, uid)
	ctx.Next()
}

func userID(ctx *gin.Context) model.ID {
	uid, _ := ctx.Get(ctxKeyUserID)
	id, _ := uid.(model.ID)
	return id
}

type errorResponse struct {
	Error string `json:"error"`
}

// statusOf maps an error code to its HTTP status.
func statusOf(code model.ErrorCode) int {
	switch code {
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeValidation, model.ErrCodeInvalidParent:
		return http.StatusBadRequest
	case model.ErrCodeNotFound:
		return http.StatusNotFound
	case model.ErrCodeConflict:
		return http.StatusConflict
	case model.ErrCodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError writes the public message of err, internal details only go to the log.
func abortWithError(ctx *gin.Context, err error) {
	logger := gmw.GetLogger(ctx)

	typed, ok := model.AsError(err)
	if !ok {
		logger.Error("unexpected error", zap.Error(err))
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: "Internal error"})
		return
	}

	status := statusOf(typed.Code)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err), zap.String("code", string(typed.Code)))
	} else {
		logger.Debug("request rejected", zap.Error(err), zap.String("code", string(typed.Code)))
	}

	ctx.AbortWithStatusJSON(status, errorResponse{Error: typed.Message})
}
