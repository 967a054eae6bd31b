package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/livetemplate/chapterdeck"
	"github.com/livetemplate/chapterdeck/internal/config"
	"github.com/livetemplate/chapterdeck/internal/pager"
)

// Client event names.
const (
	EventPageLoaded       = "pageLoaded"
	EventSlideClicked     = "slideClicked"
	EventIndicatorClicked = "indicatorClicked"
	EventPrevClicked      = "prevClicked"
	EventNextClicked      = "nextClicked"
	EventViewportResized  = "viewportResized"
)

// Error kinds reported to the client.
const (
	KindIndexOutOfRange = "IndexOutOfRange"
	KindUnknownKey      = "UnknownKey"
	KindNotInitialized  = "NotInitialized"
	KindRateLimited     = "RateLimited"
	KindProtocol        = "protocol"
)

const (
	maxMessageSize = 4096
	writeWait      = 10 * time.Second
)

// Event is a frame sent by the browser.
type Event struct {
	Event     string `json:"event"`
	Key       string `json:"key,omitempty"`
	Width     int    `json:"width,omitempty"`
	ItemWidth int    `json:"itemWidth,omitempty"`
}

// CommandFrame carries the display commands one event produced, in order.
type CommandFrame struct {
	Commands []pager.Command `json:"commands"`
}

// ErrorFrame reports an event the session rejected.
type ErrorFrame struct {
	Error FrameError `json:"error"`
}

// FrameError describes why an event was rejected.
type FrameError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ReloadFrame tells the browser the article changed on disk.
type ReloadFrame struct {
	Action string `json:"action"`
}

// Session is one browser connection paging through one article. All pager
// calls happen on the read loop; writes are serialized so reload broadcasts
// can share the connection.
type Session struct {
	ID string

	article  *chapterdeck.Article
	pagerCfg config.PagerConfig
	conn     *websocket.Conn
	logger   *zap.Logger
	limiter  *rate.Limiter

	recorder   pager.Recorder
	controller *pager.Controller

	writeMu sync.Mutex
}

func newSession(conn *websocket.Conn, article *chapterdeck.Article, cfg *config.Config, logger *zap.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		ID:       id,
		article:  article,
		pagerCfg: cfg.Pager,
		conn:     conn,
		logger:   logger.With(zap.String("session", id), zap.String("article", article.Slug)),
		limiter:  rate.NewLimiter(rate.Limit(cfg.Session.GetEventsPerSecond()), cfg.Session.GetBurst()),
	}
}

// serveWebSocket upgrades the request and runs a session for the article
// named by the "article" query parameter.
func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	slug := r.URL.Query().Get("article")
	article, ok := s.library.Get(slug)
	if !ok {
		http.Error(w, fmt.Sprintf("unknown article %q", slug), http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("failed to upgrade connection", zap.Error(err))
		return
	}

	sess := newSession(conn, article, s.config, s.logger)
	s.RegisterSession(sess)
	defer func() {
		s.UnregisterSession(sess)
		conn.Close()
	}()

	sess.run()
}

// run reads events until the connection closes.
func (sess *Session) run() {
	sess.conn.SetReadLimit(maxMessageSize)
	sess.logger.Debug("client connected", zap.String("remote", sess.conn.RemoteAddr().String()))

	for {
		_, message, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				sess.logger.Info("unexpected close", zap.Error(err))
			}
			break
		}

		if !sess.limiter.Allow() {
			sess.sendError(KindRateLimited, "too many events, slow down")
			continue
		}

		var ev Event
		if err := json.Unmarshal(message, &ev); err != nil {
			sess.sendError(KindProtocol, "malformed event: "+err.Error())
			continue
		}

		sess.logger.Debug("event received", zap.String("event", ev.Event), zap.String("key", ev.Key), zap.Int("width", ev.Width))

		if err := sess.handle(ev); err != nil {
			kind, msg := classify(err)
			sess.recorder.Flush()
			sess.sendError(kind, msg)
			continue
		}
		sess.sendCommands(sess.recorder.Flush())
	}

	sess.logger.Debug("client disconnected")
}

// handle applies one event to the pager. Commands accumulate in the
// recorder; the caller sends or drops them.
func (sess *Session) handle(ev Event) error {
	if ev.Event == EventPageLoaded {
		return sess.pageLoaded(ev)
	}
	if sess.controller == nil {
		if !isKnownEvent(ev.Event) {
			return protocolError{fmt.Sprintf("unknown event %q", ev.Event)}
		}
		return pager.ErrNotInitialized
	}

	switch ev.Event {
	case EventSlideClicked, EventIndicatorClicked:
		return sess.controller.SelectByKey(ev.Key)
	case EventPrevClicked:
		return sess.controller.Step(pager.EdgePrevious)
	case EventNextClicked:
		return sess.controller.Step(pager.EdgeNext)
	case EventViewportResized:
		return sess.controller.Resize(ev.Width)
	}
	return protocolError{fmt.Sprintf("unknown event %q", ev.Event)}
}

func (sess *Session) pageLoaded(ev Event) error {
	if sess.controller != nil {
		return protocolError{"page already loaded"}
	}

	itemWidth := ev.ItemWidth
	if itemWidth <= 0 {
		itemWidth = sess.article.ItemWidth
	}
	if itemWidth <= 0 {
		itemWidth = sess.pagerCfg.ItemWidth
	}

	ctrl, err := pager.New(sess.article.Keys(), itemWidth, sess.pagerCfg.Viewport(), &sess.recorder)
	if err != nil {
		return fmt.Errorf("failed to create pager: %w", err)
	}

	if err := ctrl.Init(ev.Width, ev.Key); err != nil {
		sess.logger.Debug("unknown initial key, starting at the first slide", zap.String("key", ev.Key), zap.Error(err))
	}
	sess.controller = ctrl

	st := ctrl.State()
	sess.logger.Debug("pager initialized",
		zap.Int("selected", st.SelectedIndex),
		zap.String("class", st.Class),
		zap.Int("display_limit", st.DisplayLimit),
		zap.Int("item_width", itemWidth))
	return nil
}

func (sess *Session) sendCommands(cmds []pager.Command) {
	if cmds == nil {
		cmds = []pager.Command{}
	}
	sess.send(CommandFrame{Commands: cmds})
}

func (sess *Session) sendError(kind, message string) {
	sess.send(ErrorFrame{Error: FrameError{Kind: kind, Message: message}})
}

// send writes a frame. Safe for concurrent use.
func (sess *Session) send(frame any) {
	data, err := json.Marshal(frame)
	if err != nil {
		sess.logger.Error("failed to marshal frame", zap.Error(err))
		return
	}

	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()

	_ = sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := sess.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		sess.logger.Debug("failed to send frame", zap.Error(err))
	}
}

type protocolError struct {
	msg string
}

func (e protocolError) Error() string { return e.msg }

func classify(err error) (kind, message string) {
	var perr protocolError
	switch {
	case errors.Is(err, pager.ErrIndexOutOfRange):
		return KindIndexOutOfRange, err.Error()
	case errors.Is(err, pager.ErrUnknownKey):
		return KindUnknownKey, err.Error()
	case errors.Is(err, pager.ErrNotInitialized):
		return KindNotInitialized, "pageLoaded must be the first event"
	case errors.As(err, &perr):
		return KindProtocol, perr.msg
	}
	return KindProtocol, err.Error()
}

func isKnownEvent(name string) bool {
	switch name {
	case EventPageLoaded, EventSlideClicked, EventIndicatorClicked,
		EventPrevClicked, EventNextClicked, EventViewportResized:
		return true
	}
	return false
}
