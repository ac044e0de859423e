package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/codegen-backend/internal/logger"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/projects/domain"
)

// stream sends project changes as Server-Sent Events until the project
// reaches a terminal status or the client goes away. Updates come from the
// subscriber when one is configured, otherwise from polling the store.
func (h *Handler) stream(c *gin.Context) {
	id := c.Param("id")
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	log := logger.NewLogger(ctx).WithProject(id)

	// subscribe before the first read so no change falls in between
	var updates <-chan *domain.Project
	if h.events != nil {
		ch, err := h.events.Subscribe(ctx, id)
		if err != nil {
			log.LogWarnf("projects.stream", "subscribe failed, polling instead: %v", err)
		} else {
			updates = ch
		}
	}

	p, err := h.svc.Get(ctx, id)
	if err != nil {
		writeError(c, "projects.stream", err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // nginx: disable buffering

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "streaming unsupported"})
		return
	}

	send := func(event string, payload gin.H) {
		data, _ := json.Marshal(payload)
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, string(data))
		flusher.Flush()
	}

	send("initial", gin.H{"project": p})
	if p.Status.IsTerminal() {
		return
	}

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	var (
		pollTicker *time.Ticker
		poll       <-chan time.Time
	)
	defer func() {
		if pollTicker != nil {
			pollTicker.Stop()
		}
	}()
	startPolling := func() {
		pollTicker = time.NewTicker(h.pollInterval)
		poll = pollTicker.C
	}
	if updates == nil {
		startPolling()
	}

	lastUpdatedAt := p.UpdatedAt
	// emit reports whether the stream is finished.
	emit := func(u *domain.Project) bool {
		if !u.UpdatedAt.After(lastUpdatedAt) {
			return false
		}
		lastUpdatedAt = u.UpdatedAt
		send("update", gin.H{"project": u})
		return u.Status.IsTerminal()
	}

	for {
		select {
		case <-ctx.Done():
			return

		case <-keepAlive.C:
			fmt.Fprint(c.Writer, ": keep-alive\n\n")
			flusher.Flush()

		case u, ok := <-updates:
			if !ok {
				updates = nil
				if ctx.Err() != nil {
					return
				}
				log.LogWarn("projects.stream", "subscription closed, polling instead")
				startPolling()
				continue
			}
			if emit(u) {
				return
			}

		case <-poll:
			u, err := h.svc.Get(ctx, id)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					send("deleted", gin.H{"event": "deleted", "project_id": id})
					return
				}
				continue
			}
			if emit(u) {
				return
			}
		}
	}
}
