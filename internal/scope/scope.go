// Package scope streams batches to browser oscilloscope views over
// websockets. A Hub is both a handoff task and an http.Handler.
//
// Each frame is one batch encoded as little-endian float32 X, Y, Z triples.
// Newly connected clients first receive the retained history, then live
// frames. Clients that fall behind lose frames instead of stalling the
// worker.
package scope

import (
	"encoding/binary"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/smallnest/ringbuffer"

	"github.com/osci-render/osci-go/internal/conf"
	"github.com/osci-render/osci-go/internal/errors"
	"github.com/osci-render/osci-go/internal/logger"
	"github.com/osci-render/osci-go/internal/shape"
)

const (
	componentScope = "scope"

	// BytesPerPoint is the encoded size of one sample.
	BytesPerPoint = 12

	writeWait = 5 * time.Second
)

// Metrics receives broadcaster activity. *metrics.ScopeMetrics satisfies it.
type Metrics interface {
	SetClients(n int)
	RecordFrame(sizeBytes, delivered, dropped int)
}

type noopMetrics struct{}

func (noopMetrics) SetClients(int)            {}
func (noopMetrics) RecordFrame(int, int, int) {}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the hub logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) { h.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(h *Hub) {
		if m != nil {
			h.metrics = m
		}
	}
}

// WithCheckOrigin overrides the websocket origin check.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(h *Hub) { h.upgrader.CheckOrigin = fn }
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans frames out to websocket clients.
type Hub struct {
	settings conf.ScopeSettings
	log      logger.Logger
	metrics  Metrics
	upgrader websocket.Upgrader

	mu         sync.Mutex
	clients    map[*client]struct{}
	history    *ringbuffer.RingBuffer
	frameBytes int
	scratch    []byte
	closed     bool
}

// NewHub returns a hub with no clients and empty history.
func NewHub(settings conf.ScopeSettings, opts ...Option) *Hub {
	if settings.FPS < 1 {
		settings.FPS = 1
	}
	if settings.ClientQueue < 1 {
		settings.ClientQueue = 1
	}
	h := &Hub{
		settings: settings,
		log:      logger.Global().Module(componentScope),
		metrics:  noopMetrics{},
		clients:  make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Prepare sizes batches to one frame per display refresh and resets the
// history to the new frame size.
func (h *Hub) Prepare(sampleRate float64, _ int) (int, error) {
	capacity := max(1, int(sampleRate)/h.settings.FPS)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.resetHistoryLocked(capacity * BytesPerPoint)
	return capacity, nil
}

func (h *Hub) resetHistoryLocked(frameBytes int) {
	h.frameBytes = frameBytes
	h.history = nil
	h.scratch = nil
	if h.settings.HistoryFrames > 0 {
		h.history = ringbuffer.New(h.settings.HistoryFrames * frameBytes)
		h.scratch = make([]byte, frameBytes)
	}
}

// EncodeFrame encodes points as little-endian float32 triples.
func EncodeFrame(batch []shape.Point) []byte {
	frame := make([]byte, len(batch)*BytesPerPoint)
	for i, p := range batch {
		off := i * BytesPerPoint
		binary.LittleEndian.PutUint32(frame[off:], math.Float32bits(float32(p.X)))
		binary.LittleEndian.PutUint32(frame[off+4:], math.Float32bits(float32(p.Y)))
		binary.LittleEndian.PutUint32(frame[off+8:], math.Float32bits(float32(p.Z)))
	}
	return frame
}

// Run records batch in the history and queues it for every client.
func (h *Hub) Run(batch []shape.Point) error {
	frame := EncodeFrame(batch)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}

	if err := h.rememberLocked(frame); err != nil {
		return err
	}

	delivered, dropped := 0, 0
	for c := range h.clients {
		select {
		case c.send <- frame:
			delivered++
		default:
			dropped++
		}
	}
	h.metrics.RecordFrame(len(frame), delivered, dropped)
	return nil
}

// rememberLocked appends frame to the history, evicting the oldest frame
// when full.
func (h *Hub) rememberLocked(frame []byte) error {
	if h.history == nil {
		return nil
	}
	if len(frame) != h.frameBytes {
		h.resetHistoryLocked(len(frame))
	}
	if h.history.Free() < len(frame) {
		if _, err := h.history.Read(h.scratch); err != nil {
			return h.historyError(err)
		}
	}
	if _, err := h.history.Write(frame); err != nil {
		return h.historyError(err)
	}
	return nil
}

func (h *Hub) historyError(err error) error {
	h.history.Reset()
	return errors.New(err).
		Component(componentScope).
		Category(errors.CategoryBuffer).
		Context("operation", "history").
		Context("frame_bytes", h.frameBytes).
		Build()
}

// snapshotLocked returns the retained frames, oldest first.
func (h *Hub) snapshotLocked() [][]byte {
	if h.history == nil || h.history.Length() == 0 {
		return nil
	}
	raw := make([]byte, h.history.Length())
	n, err := h.history.Read(raw)
	h.history.Reset()
	if err != nil {
		return nil
	}
	raw = raw[:n]
	// reading consumed the history, put it back
	if _, err := h.history.Write(raw); err != nil {
		h.history.Reset()
	}

	frames := make([][]byte, 0, len(raw)/h.frameBytes)
	for off := 0; off+h.frameBytes <= len(raw); off += h.frameBytes {
		frames = append(frames, raw[off:off+h.frameBytes])
	}
	return frames
}

// ServeHTTP upgrades the request and streams frames until either side
// closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", logger.Error(err))
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	history := h.snapshotLocked()
	c := &client{conn: conn, send: make(chan []byte, h.settings.ClientQueue+len(history))}
	for _, frame := range history {
		c.send <- frame
	}
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.metrics.SetClients(count)
	h.log.Info("scope client connected",
		logger.String("remote", r.RemoteAddr),
		logger.Int("history_frames", len(history)),
		logger.Int("clients", count))

	go h.writePump(c)
	go h.readPump(c)
}

// writePump drains the client queue until it is closed.
func (h *Hub) writePump(c *client) {
	defer func() { _ = c.conn.Close() }()

	for frame := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			h.log.Debug("scope client write failed", logger.Error(err))
			h.unregister(c)
			for range c.send {
			}
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

// readPump discards client messages and detects disconnects.
func (h *Hub) readPump(c *client) {
	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			h.unregister(c)
			return
		}
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	count := len(h.clients)
	h.mu.Unlock()

	h.metrics.SetClients(count)
	h.log.Info("scope client disconnected", logger.Int("clients", count))
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.metrics.SetClients(0)
	return nil
}
