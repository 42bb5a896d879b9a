package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/conflict"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/domain/session"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/logging"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/operation"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/watchers"
)

var (
	// ErrNoBrowser is returned by prompts while no browser is attached
	ErrNoBrowser = errors.New("no browser attached to session")
	// ErrDetached is returned by prompts whose browser went away
	ErrDetached = errors.New("browser detached before answering")
)

const writeTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	// the local API only listens on loopback
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is a frame exchanged with the browser
type Message struct {
	Type        string              `json:"type"`
	ID          id.PromptID         `json:"id,omitempty"`
	EntryName   string              `json:"entry_name,omitempty"`
	Message     string              `json:"message,omitempty"`
	Choices     []conflict.Choice   `json:"choices,omitempty"`
	Choice      conflict.Choice     `json:"choice,omitempty"`
	Confirmed   bool                `json:"confirmed,omitempty"`
	OperationID operation.ID        `json:"operation_id,omitempty"`
	Kind        types.OperationKind `json:"kind,omitempty"`
	Percent     int                 `json:"percent,omitempty"`
	Status      string              `json:"status,omitempty"`
	InstanceID  id.InstanceID       `json:"instance_id,omitempty"`
	AppMessage  *watchers.Message   `json:"app_message,omitempty"`
}

type reply struct {
	choice    conflict.Choice
	confirmed bool
	err       error
}

// Surface is the browser-facing UI of one session
type Surface struct {
	sid       id.SessionID
	sanitizer *bluemonday.Policy
	metrics   *monitoring.Metrics
	logger    *logging.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	pending  map[id.PromptID]chan reply
	closed   map[id.InstanceID]struct{}
	onCancel func(operation.ID) bool

	writeMu sync.Mutex
}

var _ session.UI = (*Surface)(nil)

// NewSurface creates a surface with no browser attached
func NewSurface(sid id.SessionID, metrics *monitoring.Metrics, logger *logging.Logger) *Surface {
	policy := bluemonday.NewPolicy()
	policy.AllowElements("strong", "em", "b", "i", "br", "code")
	return &Surface{
		sid:       sid,
		sanitizer: policy,
		metrics:   metrics,
		logger:    logger.OrNop().Named("ui").With(zap.String("session_id", sid.String())),
		pending:   make(map[id.PromptID]chan reply),
		closed:    make(map[id.InstanceID]struct{}),
	}
}

// OnCancel sets the handler for cancel_operation messages
func (s *Surface) OnCancel(fn func(operation.ID) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCancel = fn
}

// Attached reports whether a browser is connected
func (s *Surface) Attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// ServeHTTP upgrades the request and serves the browser on it
func (s *Surface) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	s.Serve(r.Context(), conn)
}

// Serve attaches conn and reads browser messages until it closes. A
// newer connection replaces an older one.
func (s *Surface) Serve(ctx context.Context, conn *websocket.Conn) {
	s.mu.Lock()
	previous := s.conn
	s.conn = conn
	s.mu.Unlock()
	if previous != nil {
		_ = previous.Close()
	}
	s.metrics.IncWSConnections()
	defer s.metrics.DecWSConnections()
	defer s.detach(conn)

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	_ = s.send(Message{Type: "system", Message: "connected"})
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("browser read ended", zap.Error(err))
			}
			return
		}
		s.metrics.RecordWSMessage("in", msg.Type)
		s.handle(msg)
	}
}

func (s *Surface) handle(msg Message) {
	switch msg.Type {
	case "prompt_response":
		s.mu.Lock()
		ch, ok := s.pending[msg.ID]
		delete(s.pending, msg.ID)
		s.mu.Unlock()
		if !ok {
			s.logger.Debug("response to unknown prompt", zap.String("prompt_id", msg.ID.String()))
			return
		}
		ch <- reply{choice: msg.Choice, confirmed: msg.Confirmed}
	case "cancel_operation":
		s.mu.Lock()
		fn := s.onCancel
		s.mu.Unlock()
		if fn == nil || !fn(msg.OperationID) {
			s.logger.Debug("cancel for unknown operation", zap.Uint64("operation_id", uint64(msg.OperationID)))
		}
	case "instance_closed":
		s.mu.Lock()
		s.closed[msg.InstanceID] = struct{}{}
		s.mu.Unlock()
	case "ping":
		_ = s.send(Message{Type: "pong"})
	default:
		_ = s.send(Message{Type: "error", Message: "unknown message type"})
	}
}

// detach fails every prompt waiting on conn
func (s *Surface) detach(conn *websocket.Conn) {
	s.mu.Lock()
	if s.conn != conn {
		s.mu.Unlock()
		return
	}
	s.conn = nil
	pending := s.pending
	s.pending = make(map[id.PromptID]chan reply)
	s.mu.Unlock()

	_ = conn.Close()
	for _, ch := range pending {
		ch <- reply{err: ErrDetached}
	}
}

func (s *Surface) send(msg Message) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNoBrowser
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		return err
	}
	s.metrics.RecordWSMessage("out", msg.Type)
	return nil
}

// ask sends msg and waits for its prompt_response
func (s *Surface) ask(ctx context.Context, msg Message) (reply, error) {
	msg.ID = id.NewPromptID()
	ch := make(chan reply, 1)

	s.mu.Lock()
	if s.conn == nil {
		s.mu.Unlock()
		return reply{}, ErrNoBrowser
	}
	s.pending[msg.ID] = ch
	s.mu.Unlock()

	forget := func() {
		s.mu.Lock()
		delete(s.pending, msg.ID)
		s.mu.Unlock()
	}
	if err := s.send(msg); err != nil {
		forget()
		return reply{}, err
	}

	select {
	case r := <-ch:
		return r, r.err
	case <-ctx.Done():
		forget()
		return reply{}, ctx.Err()
	}
}

// Prompt asks the browser to pick one of p.Choices
func (s *Surface) Prompt(ctx context.Context, p conflict.Prompt) (conflict.Choice, error) {
	r, err := s.ask(ctx, Message{
		Type:      "prompt",
		EntryName: p.EntryName,
		Message:   s.sanitizer.Sanitize(p.Message),
		Choices:   p.Choices,
	})
	if err != nil {
		return "", err
	}
	return r.choice, nil
}

// Confirm asks a yes/no question
func (s *Surface) Confirm(ctx context.Context, message string) (bool, error) {
	r, err := s.ask(ctx, Message{Type: "confirm", Message: s.sanitizer.Sanitize(message)})
	if err != nil {
		return false, err
	}
	return r.confirmed, nil
}

// Alert shows an error message. Alerts without a browser are logged.
func (s *Surface) Alert(_ context.Context, message string) {
	if err := s.send(Message{Type: "alert", Message: s.sanitizer.Sanitize(message)}); err != nil {
		s.logger.Warn("alert not delivered", zap.String("message", message), zap.Error(err))
	}
}

// PostMessage forwards an app message. It fails for instances the
// browser reported closed and while no browser is attached.
func (s *Surface) PostMessage(instance id.InstanceID, msg watchers.Message) bool {
	s.mu.Lock()
	_, gone := s.closed[instance]
	s.mu.Unlock()
	if gone {
		return false
	}
	return s.send(Message{Type: "app_message", InstanceID: instance, AppMessage: &msg}) == nil
}

// ShowProgress opens a progress surface in the browser
func (s *Surface) ShowProgress(opID operation.ID, kind types.OperationKind) operation.ProgressHandle {
	h := &progress{s: s, id: opID, kind: kind}
	h.push(Message{Type: "progress", OperationID: opID, Kind: kind})
	return h
}

type progress struct {
	s    *Surface
	id   operation.ID
	kind types.OperationKind

	mu      sync.Mutex
	percent int
	status  string
}

func (p *progress) push(msg Message) {
	if err := p.s.send(msg); err != nil && !errors.Is(err, ErrNoBrowser) {
		p.s.logger.Debug("progress not delivered", zap.Uint64("operation_id", uint64(p.id)), zap.Error(err))
	}
}

func (p *progress) update() {
	p.mu.Lock()
	msg := Message{Type: "progress", OperationID: p.id, Kind: p.kind, Percent: p.percent, Status: p.status}
	p.mu.Unlock()
	p.push(msg)
}

func (p *progress) SetPercent(percent int) {
	p.mu.Lock()
	p.percent = percent
	p.mu.Unlock()
	p.update()
}

func (p *progress) SetStatus(text string) {
	p.mu.Lock()
	p.status = text
	p.mu.Unlock()
	p.update()
}

func (p *progress) Close() {
	p.push(Message{Type: "progress_closed", OperationID: p.id})
}
