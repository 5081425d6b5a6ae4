package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/MrWong99/glidekey/internal/glide"
	"github.com/MrWong99/glidekey/internal/observe"
	"github.com/MrWong99/glidekey/pkg/types"
)

// outboxSize bounds the frames queued for one client.
const outboxSize = 64

// clientFrame is a message sent by a glide client.
//
//	{"type":"layout","keys":[{"id":"q","x":20,"y":20,"w":40,"h":40}, ...]}
//	{"type":"start","x":12.5,"y":40,"t":1700000000000,"pressure":0.4}
//	{"type":"move", ...} {"type":"end", ...} {"type":"cancel"}
type clientFrame struct {
	Type     string              `json:"type"`
	X        float64             `json:"x"`
	Y        float64             `json:"y"`
	T        int64               `json:"t"`
	Pressure float64             `json:"pressure"`
	Keys     []types.KeyGeometry `json:"keys,omitempty"`
}

func (f clientFrame) point() types.TouchPoint {
	return types.TouchPoint{X: f.X, Y: f.Y, TimestampMs: f.T, Pressure: f.Pressure}
}

// Frames sent to a glide client.
type (
	helloFrame struct {
		Type    string `json:"type"`
		Session string `json:"session"`
	}
	suggestionsFrame struct {
		Type  string   `json:"type"`
		Words []string `json:"words"`
	}
	commitFrame struct {
		Type string  `json:"type"`
		Word *string `json:"word"`
	}
	errorFrame struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
)

var eventTypes = map[string]types.GestureEventType{
	types.GestureStart.String():  types.GestureStart,
	types.GestureMove.String():   types.GestureMove,
	types.GestureEnd.String():    types.GestureEnd,
	types.GestureCancel.String(): types.GestureCancel,
}

// session is one WebSocket client driving its own orchestrator.
type session struct {
	id     string
	conn   *websocket.Conn
	orch   *glide.Orchestrator
	out    chan any
	ctx    context.Context
	cancel context.CancelFunc
}

// send queues v for the writer. It gives up once the session ends.
func (sess *session) send(v any) {
	select {
	case sess.out <- v:
	case <-sess.ctx.Done():
	}
}

func (sess *session) stop() {
	sess.cancel()
}

// ServeGlide upgrades the request to a WebSocket and runs a glide session
// until the client disconnects or the server closes.
//
// The first frame sent is {"type":"session","session":"<id>"}. Afterwards
// the server sends {"type":"suggestions","words":[...]} for previews and
// alternatives and {"type":"commit","word":"..."} when a gesture ends; the
// word is null when the gesture produced none.
func (s *Server) ServeGlide(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.origins,
	})
	if err != nil {
		observe.Logger(r.Context()).Warn("server: websocket accept", "err", err)
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	sess := &session{
		id:     uuid.NewString(),
		conn:   conn,
		out:    make(chan any, outboxSize),
		ctx:    ctx,
		cancel: cancel,
	}
	log := observe.Logger(r.Context()).With("session", sess.id)

	opts := []glide.Option{
		glide.WithRefiner(s.engine.Refine),
		glide.WithMetrics(s.metrics),
	}
	if s.smoother != nil {
		opts = append(opts, glide.WithSmoother(s.smoother))
	}
	cfg := s.Configuration()
	orch, err := glide.New(s.newRecognizer(cfg), cfg, glide.Callbacks{
		OnSuggestions: func(words []string) {
			sess.send(suggestionsFrame{Type: "suggestions", Words: words})
		},
		OnCommit: func(word string, ok bool) {
			f := commitFrame{Type: "commit"}
			if ok {
				f.Word = &word
			}
			sess.send(f)
		},
	}, opts...)
	if err != nil {
		log.Error("server: create orchestrator", "err", err)
		conn.Close(websocket.StatusInternalError, "glide unavailable")
		return
	}
	sess.orch = orch
	if s.layout != nil {
		orch.SetLayout(s.layout.Clone())
	}

	if !s.add(sess) {
		orch.Close()
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	s.metrics.ActiveSessions.Add(ctx, 1)
	log.Debug("glide session opened")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sess.write()
	}()

	sess.send(helloFrame{Type: "session", Session: sess.id})
	err = sess.read()

	cancel()
	orch.Close()
	wg.Wait()
	s.remove(sess.id)
	s.metrics.ActiveSessions.Add(context.Background(), -1)

	switch status := websocket.CloseStatus(err); {
	case status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway:
		log.Debug("glide session closed")
		conn.Close(websocket.StatusNormalClosure, "")
	case errors.Is(err, context.Canceled):
		log.Debug("glide session stopped")
		conn.Close(websocket.StatusGoingAway, "server shutting down")
	default:
		log.Debug("glide session ended", "err", err)
	}
}

// read consumes client frames until the connection or the session ends.
func (sess *session) read() error {
	for {
		var f clientFrame
		if err := wsjson.Read(sess.ctx, sess.conn, &f); err != nil {
			return err
		}
		if f.Type == "layout" {
			sess.orch.SetLayout(types.LayoutFromKeys(f.Keys))
			continue
		}
		typ, ok := eventTypes[f.Type]
		if !ok {
			sess.send(errorFrame{Type: "error", Message: fmt.Sprintf("unknown frame type %q", f.Type)})
			continue
		}
		sess.orch.Feed(types.GestureEvent{Type: typ, Point: f.point()})
	}
}

// write drains the outbox until the session ends.
func (sess *session) write() {
	for {
		select {
		case v := <-sess.out:
			if err := wsjson.Write(sess.ctx, sess.conn, v); err != nil {
				sess.cancel()
				return
			}
		case <-sess.ctx.Done():
			return
		}
	}
}
