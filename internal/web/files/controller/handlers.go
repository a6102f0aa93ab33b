package controller

import (
	"net/http"
	"strconv"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/Laisky/files-manager/internal/web/files/auth"
	"github.com/Laisky/files-manager/internal/web/files/service"
)

func (c *Controller) getStatus(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"redis": c.sessions.IsAlive(),
		"db":    c.docs.IsAlive(),
	})
}

func (c *Controller) getStats(ctx *gin.Context) {
	stats, err := c.files.Stats(ctx)
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"users": stats.Users,
		"files": stats.Files,
	})
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *Controller) postUser(ctx *gin.Context) {
	var req registerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		// an unreadable body is reported as the first missing field
		gmw.GetLogger(ctx).Debug("bind register request", zap.Error(err))
	}

	user, err := c.gate.Register(ctx, req.Email, req.Password)
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	resp, err := newUserResponse(user)
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, resp)
}

func (c *Controller) getConnect(ctx *gin.Context) {
	email, password, err := auth.ParseBasicAuth(ctx.GetHeader("Authorization"))
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	token, err := c.gate.Authenticate(ctx, email, password)
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"token": token})
}

func (c *Controller) getDisconnect(ctx *gin.Context) {
	c.gate.EndSession(ctx, ctx.GetHeader(TokenHeader))
	ctx.Status(http.StatusNoContent)
}

func (c *Controller) getMe(ctx *gin.Context) {
	user, err := c.gate.UserByID(ctx, userID(ctx))
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	resp, err := newUserResponse(user)
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

type createFileRequest struct {
	Name     string    `json:"name"`
	Type     string    `json:"type"`
	ParentID parentRef `json:"parentId"`
	IsPublic bool      `json:"isPublic"`
	Data     string    `json:"data"`
}

func (c *Controller) postFile(ctx *gin.Context) {
	if ctx.Request.ContentLength > c.opts.MaxPayloadBytes {
		ctx.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, errorResponse{Error: "Payload too large"})
		return
	}
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, c.opts.MaxPayloadBytes)

	var req createFileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ctx.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, errorResponse{Error: "Payload too large"})
			return
		}

		gmw.GetLogger(ctx).Debug("bind create file request", zap.Error(err))
		ctx.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "Invalid request"})
		return
	}

	rec, err := c.files.Create(ctx, userID(ctx), service.CreateInput{
		Name:     req.Name,
		Kind:     req.Type,
		ParentID: string(req.ParentID),
		IsPublic: req.IsPublic,
		Data:     req.Data,
	})
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	resp, err := newFileResponse(rec)
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, resp)
}

func (c *Controller) getFile(ctx *gin.Context) {
	rec, err := c.files.Get(ctx, userID(ctx), ctx.Param("id"))
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	resp, err := newFileResponse(rec)
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

func (c *Controller) listFiles(ctx *gin.Context) {
	// a malformed page falls back to the first page
	page, err := strconv.Atoi(ctx.DefaultQuery("page", "0"))
	if err != nil {
		page = 0
	}

	records, err := c.files.ListChildren(ctx, userID(ctx), ctx.Query("parentId"), page)
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	resp, err := newFileResponses(records)
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

func (c *Controller) publishFile(ctx *gin.Context) {
	c.setVisibility(ctx, true)
}

func (c *Controller) unpublishFile(ctx *gin.Context) {
	c.setVisibility(ctx, false)
}

func (c *Controller) setVisibility(ctx *gin.Context, public bool) {
	rec, err := c.files.SetVisibility(ctx, userID(ctx), ctx.Param("id"), public)
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	resp, err := newFileResponse(rec)
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}
