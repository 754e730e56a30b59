package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"cherrycake/internal/logging"
	"cherrycake/internal/loop"
	"cherrycake/internal/scene"
	"cherrycake/internal/view"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 1024
)

// StreamMessage is one WebSocket message sent to a viewer.
type StreamMessage struct {
	Type      string        `json:"type"`
	Viz       string        `json:"viz,omitempty"`
	Progress  float64       `json:"progress"`
	ElapsedMS float64       `json:"elapsedMs"`
	LoopMS    float64       `json:"loopMs,omitempty"`
	FPS       int           `json:"fps,omitempty"`
	Status    *scene.Status `json:"status,omitempty"`
	SVG       string        `json:"svg,omitempty"`
	Error     string        `json:"error,omitempty"`
}

type streamConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *streamConn) send(msg StreamMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

func (c *streamConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (c *streamConn) close(code int, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(writeWait))
	_ = c.conn.Close()
}

// handleStream mounts a fresh view for this connection and pushes every
// accepted frame until the client goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	def, ok := s.deps.Library.Lookup(r.PathValue("name"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown visualization")
		return
	}
	if !s.trackStream() {
		s.writeError(w, http.StatusServiceUnavailable, "server shutting down")
		return
	}
	defer s.streams.Done()
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client.
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	logger := logging.WithContext(logging.WithViz(ctx, def.Name), s.logger)

	opts := view.Presentation(s.cfg, queryBool(r, "embed"))
	v := view.Mount(ctx, s.deps.Library.Loader(), def, opts, s.logger)
	sc := &streamConn{conn: conn}

	go s.readPump(conn, func() {
		cancel()
		v.Unmount()
	})
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				cancel()
				v.Unmount()
				return
			case <-ticker.C:
				if err := sc.ping(); err != nil {
					cancel()
					v.Unmount()
					return
				}
			}
		}
	}()

	_ = sc.send(StreamMessage{
		Type:   "mounted",
		Viz:    def.Name,
		LoopMS: float64(def.LoopDuration) / float64(time.Millisecond),
		FPS:    opts.FPS,
	})
	logger.Debug("stream mounted", logging.Int("target_fps", opts.FPS))

	var buf bytes.Buffer
	sched := loop.NewTickerScheduler(s.cfg.Loop.DisplayHz)
	err = v.Run(ctx, sched, func(renderer scene.Renderer, f scene.Frame) error {
		buf.Reset()
		if err := renderer.Render(&buf, f); err != nil {
			return err
		}
		st := renderer.Status(f)
		return sc.send(StreamMessage{
			Type:      "frame",
			Progress:  f.Tick.Progress,
			ElapsedMS: float64(f.Tick.Elapsed) / float64(time.Millisecond),
			Status:    &st,
			SVG:       buf.String(),
		})
	})
	stats := v.Stats()
	switch {
	case err == nil, errors.Is(err, loop.ErrCancelled), errors.Is(err, context.Canceled):
		sc.close(websocket.CloseNormalClosure, "")
	default:
		_ = sc.send(StreamMessage{Type: "error", Viz: def.Name, Error: err.Error()})
		sc.close(websocket.CloseInternalServerErr, "visualization unavailable")
	}
	logger.Debug("stream unmounted",
		logging.Int64("accepted", stats.Accepted),
		logging.Int64("skipped", stats.Skipped),
	)
}

// readPump consumes client frames so pongs and close messages are
// processed. onClose runs once the connection is gone.
func (s *Server) readPump(conn *websocket.Conn, onClose func()) {
	defer onClose()
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				s.logger.Debug("stream read error", logging.Error(err))
			}
			return
		}
	}
}
