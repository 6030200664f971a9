package delivery

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/serene/backend/internal/model/chat"
)

const (
	DefaultRevealInterval = 16 * time.Millisecond
	DefaultGreeting       = "Hi, I’m Serene. What’s on your mind today?"
	ApologyMessage        = "Sorry, I had trouble replying. Please try again."
)

var (
	// ErrEmptyMessage is returned for input that is blank after trimming.
	ErrEmptyMessage = errors.New("delivery: empty message")
	// ErrMessageTooLong is returned for input the gateway would reject.
	ErrMessageTooLong = errors.New("delivery: message too long")
	// ErrBusy is returned while another turn is in flight. The input is dropped.
	ErrBusy = errors.New("delivery: a turn is already in flight")
	// ErrNoResult reports a transport that returned neither a result nor an error.
	ErrNoResult = errors.New("delivery: transport returned no result")
)

// State is the phase of the conversation's single in-flight slot.
type State int32

const (
	Idle State = iota
	Dispatching
	AwaitingGateway
	Revealing
)

func (s State) String() string {
	switch s {
	case Dispatching:
		return "dispatching"
	case AwaitingGateway:
		return "awaiting_gateway"
	case Revealing:
		return "revealing"
	default:
		return "idle"
	}
}

// RenderFunc receives a snapshot of the transcript after every change.
type RenderFunc func(messages []DisplayMessage)

type options struct {
	interval time.Duration
	chunk    int
	now      func() time.Time
	render   RenderFunc
	greeting string
	country  string
	logger   *zap.Logger
}

// Option configures a Conversation.
type Option func(*options)

// WithRevealInterval sets the delay between reveal ticks.
func WithRevealInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithRevealChunk sets how many characters each tick reveals.
func WithRevealChunk(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.chunk = n
		}
	}
}

// WithClock overrides the timestamp source for new messages.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithRenderer registers a callback invoked after every transcript change.
func WithRenderer(fn RenderFunc) Option {
	return func(o *options) {
		o.render = fn
	}
}

// WithGreeting replaces the opening assistant message. Empty disables it.
func WithGreeting(text string) Option {
	return func(o *options) {
		o.greeting = text
	}
}

// WithCountry attaches a locale hint to every turn.
func WithCountry(country string) Option {
	return func(o *options) {
		o.country = strings.TrimSpace(country)
	}
}

// WithLogger sets the logger used for transport failures.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Turn tracks one dispatched message until its reply is fully revealed or
// the apology has been appended.
type Turn struct {
	id     string
	done   chan struct{}
	result chat.Result
	err    error
}

// ID is the DisplayMessage ID of the user message that started the turn.
func (t *Turn) ID() string { return t.id }

// Done is closed once the conversation accepts a new Send.
func (t *Turn) Done() <-chan struct{} { return t.done }

// Err reports the transport failure, if any. Valid after Done.
func (t *Turn) Err() error {
	<-t.done
	return t.err
}

// Result is the gateway result, nil on failure. Valid after Done.
func (t *Turn) Result() chat.Result {
	<-t.done
	return t.result
}

// Wait blocks until the turn finishes or ctx ends.
func (t *Turn) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Conversation owns a transcript and allows exactly one turn in flight.
type Conversation struct {
	transport Transport
	opts      options

	busy  atomic.Bool
	state atomic.Int32

	mu       sync.Mutex
	messages []DisplayMessage
	banner   string
}

// New creates a Conversation that sends turns through transport.
func New(transport Transport, opts ...Option) *Conversation {
	o := options{
		interval: DefaultRevealInterval,
		chunk:    1,
		now:      time.Now,
		greeting: DefaultGreeting,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Conversation{transport: transport, opts: o}
	if o.greeting != "" {
		c.messages = append(c.messages, DisplayMessage{
			ID:      uuid.NewString(),
			Role:    chat.RoleAssistant,
			Content: o.greeting,
			SentAt:  o.now(),
		})
	}
	return c
}

// Send dispatches text as a new user turn. It returns immediately; the
// exchange and reveal run in the background until the returned Turn is Done.
func (c *Conversation) Send(ctx context.Context, text string) (*Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > chat.MaxContentLength {
		return nil, ErrMessageTooLong
	}
	if !c.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	c.setState(Dispatching)

	msg := DisplayMessage{
		ID:      uuid.NewString(),
		Role:    chat.RoleUser,
		Content: text,
		SentAt:  c.opts.now(),
		Status:  StatusSending,
	}

	c.mu.Lock()
	c.messages = append(c.messages, msg)
	index := len(c.messages) - 1
	payload := c.payloadLocked()
	c.mu.Unlock()
	c.emit()

	turn := &Turn{id: msg.ID, done: make(chan struct{})}
	go c.run(ctx, turn, index, payload)
	return turn, nil
}

func (c *Conversation) run(ctx context.Context, turn *Turn, index int, payload chat.Turn) {
	defer func() {
		c.setState(Idle)
		c.busy.Store(false)
		close(turn.done)
	}()

	// sent means the message left the client, not that it was acknowledged.
	c.advance(index, StatusSent)
	c.setState(AwaitingGateway)

	result, err := c.transport.Exchange(ctx, payload)
	if err == nil && result == nil {
		err = ErrNoResult
	}
	if err != nil {
		c.opts.logger.Warn("turn failed", zap.String("turn_id", turn.id), zap.Error(err))
		turn.err = err
		c.appendAssistant(ApologyMessage)
		return
	}

	c.advance(index, StatusSeen)
	c.mu.Lock()
	switch r := result.(type) {
	case chat.Crisis:
		c.banner = r.Content
	case chat.Normal:
		c.banner = ""
	}
	c.mu.Unlock()

	c.setState(Revealing)
	c.reveal(result.Text())
	turn.result = result
}

// reveal appends an empty assistant message and fills it one chunk per tick.
// The revealed index is owned by this loop alone.
func (c *Conversation) reveal(content string) {
	index := c.appendAssistant("")

	runes := []rune(content)
	if len(runes) == 0 {
		return
	}

	ticker := time.NewTicker(c.opts.interval)
	defer ticker.Stop()

	revealed := 0
	for revealed < len(runes) {
		<-ticker.C
		revealed = min(revealed+c.opts.chunk, len(runes))

		c.mu.Lock()
		c.messages[index].Content = string(runes[:revealed])
		c.mu.Unlock()
		c.emit()
	}
}

func (c *Conversation) appendAssistant(content string) int {
	c.mu.Lock()
	c.messages = append(c.messages, DisplayMessage{
		ID:      uuid.NewString(),
		Role:    chat.RoleAssistant,
		Content: content,
		SentAt:  c.opts.now(),
	})
	index := len(c.messages) - 1
	c.mu.Unlock()
	c.emit()
	return index
}

func (c *Conversation) advance(index int, next Status) {
	c.mu.Lock()
	c.messages[index].Status = c.messages[index].Status.advance(next)
	c.mu.Unlock()
	c.emit()
}

// payloadLocked builds the wire turn from the transcript: every non-empty
// message in order, bounded to the newest MaxMessagesPerTurn.
func (c *Conversation) payloadLocked() chat.Turn {
	msgs := make([]chat.Message, 0, len(c.messages))
	for _, m := range c.messages {
		if m.Content == "" {
			continue
		}
		msgs = append(msgs, chat.Message{Role: m.Role, Content: m.Content})
	}
	if len(msgs) > chat.MaxMessagesPerTurn {
		msgs = msgs[len(msgs)-chat.MaxMessagesPerTurn:]
	}
	return chat.Turn{Messages: msgs, Country: c.opts.country}
}

func (c *Conversation) emit() {
	if c.opts.render == nil {
		return
	}
	c.opts.render(c.Messages())
}

func (c *Conversation) setState(s State) {
	c.state.Store(int32(s))
}

// State reports the current phase.
func (c *Conversation) State() State {
	return State(c.state.Load())
}

// Messages returns a copy of the transcript.
func (c *Conversation) Messages() []DisplayMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]DisplayMessage(nil), c.messages...)
}

// Banner is the persistent safety banner, set by the latest crisis result
// and cleared by the next normal one.
func (c *Conversation) Banner() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.banner
}

// GroupByDay buckets the current transcript for rendering.
func (c *Conversation) GroupByDay(now time.Time) []DayGroup {
	return GroupByDay(c.Messages(), now)
}
