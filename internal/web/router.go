// Package web serves channel logs to holders of an access token.
package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rcliao/logbot/internal/model"
	"github.com/rcliao/logbot/internal/render"
)

// Logs reads channel logs, newest first.
type Logs interface {
	GetLog(ctx context.Context, channel string) ([]model.Event, bool, error)
}

// Tokens resolves access tokens to the channel they grant.
type Tokens interface {
	Resolve(ctx context.Context, tok string) (string, bool, error)
}

type Options struct {
	Environment string
	// Location renders timestamps in text output; nil means local time.
	Location *time.Location
	Logger   *zap.Logger
}

// NewRouter returns the log reader's handler: /health and /readlog.
func NewRouter(logs Logs, tokens Tokens, opts Options) (*gin.Engine, error) {
	if logs == nil || tokens == nil {
		return nil, errors.New("log reader and token resolver are required")
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	gin.SetMode(ginMode(opts.Environment))

	router := gin.New()
	router.Use(gin.Recovery())
	if err := router.SetTrustedProxies(nil); err != nil {
		return nil, fmt.Errorf("set trusted proxies: %w", err)
	}
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := readHandler{logs: logs, tokens: tokens, loc: opts.Location, logger: opts.Logger}
	router.GET("/readlog", h.read)

	return router, nil
}

func ginMode(environment string) string {
	switch environment {
	case "development":
		return gin.DebugMode
	case "test":
		return gin.TestMode
	default:
		return gin.ReleaseMode
	}
}

// readRequest carries the query. The token alone names the channel; ch
// is checked when present. An unescaped "#channel" in a link ends the
// query at the '#', so ch often arrives empty.
type readRequest struct {
	Channel string `form:"ch"`
	Token   string `form:"tk" binding:"required"`
	Format  string `form:"format"`
}

type readHandler struct {
	logs   Logs
	tokens Tokens
	loc    *time.Location
	logger *zap.Logger
}

func (h readHandler) read(c *gin.Context) {
	var req readRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		writeError(c, http.StatusBadRequest, "tk is required")
		return
	}

	ctx := c.Request.Context()
	granted, ok, err := h.tokens.Resolve(ctx, req.Token)
	if err != nil {
		h.internalError(c, "resolve token", err)
		return
	}
	if !ok {
		writeError(c, http.StatusForbidden, "invalid or expired token")
		return
	}
	if req.Channel != "" && !model.SameName(granted, req.Channel) {
		writeError(c, http.StatusForbidden, "token is not valid for this channel")
		return
	}

	events, ok, err := h.logs.GetLog(ctx, granted)
	if err != nil {
		h.internalError(c, "get log", err)
		return
	}
	if !ok {
		writeError(c, http.StatusNotFound, "no log for this channel")
		return
	}

	if req.Format == "json" {
		oldestFirst := make([]model.Event, len(events))
		for i, ev := range events {
			oldestFirst[len(events)-1-i] = ev
		}
		c.JSON(http.StatusOK, gin.H{"channel": granted, "events": oldestFirst})
		return
	}

	var buf bytes.Buffer
	if err := render.Log(&buf, events, h.loc); err != nil {
		h.internalError(c, "render log", err)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", buf.Bytes())
}

func (h readHandler) internalError(c *gin.Context, op string, err error) {
	h.logger.Error(op, zap.Error(err))
	writeError(c, http.StatusInternalServerError, "internal error")
}

func writeError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
