// Package chat orchestrates one conversation with the recommendation server: the start
// handshake, chat messages, image uploads and the delivery of normalized results to an
// event sink.
package chat

import (
	"bytes"
	"context"
	stderrors "errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	apperrors "github.com/xperiencelabs/archat/internal/errors"
	"github.com/xperiencelabs/archat/internal/interfaces"
	"github.com/xperiencelabs/archat/internal/logging"
	"github.com/xperiencelabs/archat/internal/normalizer"
	"github.com/xperiencelabs/archat/internal/protocol"
	"github.com/xperiencelabs/archat/internal/session"
)

const (
	component      = "chat"
	archiveTimeout = 5 * time.Second
)

// Options configures a Client
type Options struct {
	Endpoints      protocol.Endpoints
	RequestTimeout time.Duration
	// Store archives every emitted message. Nil disables archiving.
	Store  interfaces.TranscriptStore
	Logger *logging.Logger
	// ConversationID names the archived transcript. A random id is used when empty.
	ConversationID string
}

// Client drives a single conversation. Calls are serialized; concurrent callers queue.
type Client struct {
	transport      interfaces.Transport
	sink           interfaces.EventSink
	endpoints      protocol.Endpoints
	timeout        time.Duration
	archive        interfaces.TranscriptStore
	logger         *logging.Logger
	conversationID string

	session *session.Store
	calls   *semaphore.Weighted

	lifecycle context.Context
	cancel    context.CancelFunc

	mu            sync.Mutex
	state         State
	transcript    []interfaces.ChatMessage
	visual        Visualization
	vizAnnounced  bool
	lastRaw       string
	archiveErrors *apperrors.ErrorChain

	// deliverMu orders sink calls and fences them against Close
	deliverMu sync.Mutex
	closed    bool
}

// NewClient creates a client in the Uninitialized state. sink may be nil.
func NewClient(transport interfaces.Transport, sink interfaces.EventSink, opts Options) *Client {
	if sink == nil {
		sink = interfaces.SinkFuncs{}
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = protocol.DefaultRequestTimeout
	}
	if opts.ConversationID == "" {
		opts.ConversationID = uuid.NewString()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetSessionLogger()
	}
	logger = logger.WithField("conversation_id", opts.ConversationID)

	lifecycle, cancel := context.WithCancel(context.Background())
	return &Client{
		transport:      transport,
		sink:           sink,
		endpoints:      opts.Endpoints,
		timeout:        opts.RequestTimeout,
		archive:        opts.Store,
		logger:         logger,
		conversationID: opts.ConversationID,
		session:        session.NewStore(),
		calls:          semaphore.NewWeighted(1),
		lifecycle:      lifecycle,
		cancel:         cancel,
		state:          StateUninitialized,
		archiveErrors:  apperrors.NewErrorChain(logger),
	}
}

// Start performs the session handshake. Any failure is fatal: the client moves to
// Failed and must be replaced.
func (c *Client) Start(ctx context.Context) error {
	if err := c.acquire(ctx); err != nil {
		return err
	}
	defer c.calls.Release(1)

	c.mu.Lock()
	current := c.state
	if current == StateUninitialized {
		c.state = StateStarting
	}
	c.mu.Unlock()
	if current != StateUninitialized {
		return stateError("start", "client already started", current)
	}

	raw, err := c.roundTrip(ctx, func(reqCtx context.Context) (string, error) {
		return c.transport.PostJSON(reqCtx, c.endpoints.Start, nil)
	})
	if err != nil {
		return c.failStart(err)
	}
	c.recordRaw(raw)

	id, err := sessionFromStart(normalizer.Normalize(raw))
	if err == nil {
		err = c.session.Set(id)
	}
	c.logger.LogSessionStart(c.endpoints.Start, id, err)
	if err != nil {
		return c.failStart(err)
	}

	if !c.transition(StateReady) {
		return closedError("start")
	}
	c.bindSession(id)
	c.deliver(func(sink interfaces.EventSink) { sink.OnSessionReady() })
	return nil
}

// sessionFromStart accepts exactly one SessionUpdated event and nothing else
func sessionFromStart(events normalizer.Events) (string, error) {
	if failures := events.Failures(); len(failures) > 0 {
		return "", apperrors.NewProtocolError(component).
			WithMessage("start handshake returned an unusable response").
			WithUserMessage(failures[0]).
			WithOperation("start").
			WithRecoverable(false).
			Build()
	}

	ids := events.SessionIDs()
	if len(ids) == 0 {
		return "", apperrors.NewStateError(component).
			WithMessage("start handshake returned no session id").
			WithUserMessage(apperrors.ReasonEmptySessionID).
			WithOperation("start").
			WithRecoverable(false).
			Build()
	}
	if len(ids) > 1 || len(events) != len(ids) {
		return "", apperrors.NewProtocolError(component).
			WithMessagef("start handshake returned unexpected events: %v", events.Without(normalizer.KindSessionUpdated)).
			WithUserMessage("unexpected start response").
			WithOperation("start").
			WithRecoverable(false).
			Build()
	}
	return ids[0], nil
}

func (c *Client) failStart(err error) error {
	fatal := markFatal(err)
	if c.transition(StateFailed) {
		c.deliverError(fatal)
	}
	return fatal
}

// markFatal wraps err so callers see a non-recoverable start failure
func markFatal(err error) error {
	var ce *apperrors.ContextualError
	if stderrors.As(err, &ce) {
		ce.Recoverable = false
		return ce
	}
	return apperrors.NewProtocolError(component).
		WithMessage("start handshake failed").
		WithUserMessage(apperrors.ReasonOf(err)).
		WithOperation("start").
		WithCause(err).
		WithRecoverable(false).
		Build()
}

// SendMessage sends user text. Blank text is ignored with a validation error and
// no network traffic.
func (c *Client) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return apperrors.NewValidationError(component).
			WithMessage("message is empty").
			WithUserMessage("message is empty").
			WithOperation("send").
			Silent().
			Build()
	}

	if err := c.precheck("send"); err != nil {
		return err
	}
	if err := c.acquire(ctx); err != nil {
		return err
	}
	defer c.calls.Release(1)

	sessionID, err := c.beginCall("send")
	if err != nil {
		return err
	}
	defer c.endCall()

	c.emit(interfaces.ChatMessage{
		Text:      text,
		Direction: interfaces.DirectionSent,
		Kind:      interfaces.KindPlain,
		Timestamp: time.Now(),
	})

	raw, err := c.roundTrip(ctx, func(reqCtx context.Context) (string, error) {
		return c.transport.PostJSON(reqCtx, c.endpoints.Chat, protocol.ChatRequest{
			SessionID: sessionID,
			Message:   text,
		})
	})
	if err != nil {
		return c.failCall(err)
	}
	c.recordRaw(raw)

	return c.apply("send", normalizer.Normalize(raw))
}

// UploadImage sends image bytes for a visual recommendation. An empty filename
// falls back to uploaded_image.jpg.
func (c *Client) UploadImage(ctx context.Context, data []byte, filename string) error {
	if len(data) == 0 {
		return apperrors.NewValidationError(component).
			WithMessage("image is empty").
			WithUserMessage("image is empty").
			WithOperation("upload").
			Silent().
			Build()
	}
	if filename == "" {
		filename = protocol.DefaultUploadFilename
	}

	if err := c.precheck("upload"); err != nil {
		return err
	}
	if err := c.acquire(ctx); err != nil {
		return err
	}
	defer c.calls.Release(1)

	if _, err := c.beginCall("upload"); err != nil {
		return err
	}
	defer c.endCall()

	c.emit(interfaces.ChatMessage{
		ImageRef:  filename,
		Direction: interfaces.DirectionSent,
		Kind:      interfaces.KindPlain,
		Timestamp: time.Now(),
	})

	raw, err := c.roundTrip(ctx, func(reqCtx context.Context) (string, error) {
		return c.transport.PostMultipart(reqCtx, c.endpoints.Recommend, interfaces.MultipartFile{
			FieldName:   protocol.UploadFieldName,
			Filename:    filename,
			ContentType: sniffImageType(data),
			Body:        bytes.NewReader(data),
		})
	})
	if err != nil {
		return c.failCall(err)
	}
	c.recordRaw(raw)

	return c.apply("upload", normalizer.NormalizeRecommendation(raw))
}

func sniffImageType(data []byte) string {
	contentType := http.DetectContentType(data)
	if strings.HasPrefix(contentType, "image/") {
		return contentType
	}
	return protocol.DefaultImageType
}

// precheck rejects calls that cannot succeed before they queue behind another call.
// A client whose handshake has not completed reports "session not initialized".
func (c *Client) precheck(operation string) error {
	c.mu.Lock()
	current := c.state
	c.mu.Unlock()

	switch current {
	case StateReady, StateSending:
		return nil
	case StateClosed:
		return closedError(operation)
	}
	err := notInitialized(operation, current)
	c.deliverError(err)
	return err
}

// beginCall moves Ready to Sending and returns the session id to use
func (c *Client) beginCall(operation string) (string, error) {
	c.mu.Lock()
	current := c.state
	sessionID, ok := c.session.Get()
	if current == StateReady && ok {
		c.state = StateSending
	}
	c.mu.Unlock()

	if current == StateClosed {
		return "", closedError(operation)
	}
	if current != StateReady || !ok {
		err := notInitialized(operation, current)
		c.deliverError(err)
		return "", err
	}
	return sessionID, nil
}

// endCall returns a sending client to Ready. Per-call failures never leave it elsewhere.
func (c *Client) endCall() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateSending {
		c.state = StateReady
	}
}

func (c *Client) failCall(err error) error {
	c.deliverError(err)
	return err
}

// apply routes normalized events: session rotations go to the store, everything
// else reaches the sink in order. The first Failure becomes the call's error.
func (c *Client) apply(operation string, events normalizer.Events) error {
	var failure error
	for _, e := range events {
		switch e.Kind {
		case normalizer.KindSessionUpdated:
			c.rotateSession(e.SessionID)
		case normalizer.KindTextReply, normalizer.KindScrapedTextReply:
			c.emit(interfaces.ChatMessage{
				Text:      e.Text,
				Direction: interfaces.DirectionReceived,
				Kind:      interfaces.KindReply,
				Timestamp: time.Now(),
			})
		case normalizer.KindImageReply:
			c.observeImage(e)
		case normalizer.KindFailure:
			builder := apperrors.NewParseError(component).
				WithMessage("server response could not be interpreted")
			if e.Server {
				builder = apperrors.NewProtocolError(component).
					WithMessage("server rejected the request")
			}
			err := builder.
				WithUserMessage(e.Reason).
				WithOperation(operation).
				Build()
			c.deliverError(err)
			if failure == nil {
				failure = err
			}
		}
	}
	return failure
}

func (c *Client) rotateSession(id string) {
	previous, _ := c.session.Get()
	if err := c.session.Set(id); err != nil {
		return
	}
	if previous != id {
		c.logger.LogSessionRotated(previous, id)
		c.bindSession(id)
	}
}

func (c *Client) observeImage(e normalizer.Event) {
	c.mu.Lock()
	c.visual.observe(e)
	announce := !c.vizAnnounced
	c.vizAnnounced = true
	c.mu.Unlock()

	if e.Image2D != "" {
		c.emit(interfaces.ChatMessage{
			ImageRef:  e.Image2D,
			Direction: interfaces.DirectionReceived,
			Kind:      interfaces.KindReply,
			Timestamp: time.Now(),
		})
	}
	if announce {
		c.deliver(func(sink interfaces.EventSink) { sink.OnVisualizationAvailable() })
	}
}

// emit appends msg to the transcript, archives it and hands it to the sink
func (c *Client) emit(msg interfaces.ChatMessage) {
	if msg.IsEmpty() {
		return
	}

	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()
	if c.closed {
		return
	}

	c.mu.Lock()
	c.transcript = append(c.transcript, msg)
	c.mu.Unlock()

	c.archiveMessage(msg)
	c.sink.OnMessage(msg)
}

func (c *Client) deliverError(err error) {
	reason := apperrors.ReasonOf(err)
	c.deliver(func(sink interfaces.EventSink) { sink.OnError(reason) })
}

// deliver invokes fn on the sink unless the client has been closed
func (c *Client) deliver(fn func(interfaces.EventSink)) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()
	if c.closed {
		return
	}
	fn(c.sink)
}

// roundTrip runs one network call bounded by the request timeout, the caller's
// context and the client's lifetime
func (c *Client) roundTrip(ctx context.Context, call func(context.Context) (string, error)) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	stop := context.AfterFunc(c.lifecycle, cancel)
	defer stop()

	raw, err := call(reqCtx)
	if c.isClosed() {
		return "", closedError("request")
	}
	if stderrors.Is(reqCtx.Err(), context.DeadlineExceeded) && !apperrors.IsType(err, apperrors.ErrorTypeTimeout) {
		return "", apperrors.NewTimeoutError(component).
			WithMessage("request deadline exceeded").
			WithUserMessage(apperrors.ReasonTimeout).
			WithContext("timeout", c.timeout.String()).
			WithCause(err).
			Build()
	}
	if err != nil {
		return "", err
	}
	return raw, nil
}

func (c *Client) acquire(ctx context.Context) error {
	if err := c.calls.Acquire(ctx, 1); err != nil {
		return apperrors.NewCanceledError(component).
			WithMessage("gave up waiting for the previous call").
			WithUserMessage(apperrors.ReasonOf(err)).
			WithCause(err).
			Build()
	}
	if c.isClosed() {
		c.calls.Release(1)
		return closedError("acquire")
	}
	return nil
}

// transition moves to next unless the client was closed meanwhile
func (c *Client) transition(next State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return false
	}
	c.state = next
	return true
}

func (c *Client) recordRaw(raw string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastRaw = raw
}

func (c *Client) isClosed() bool {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()
	return c.closed
}

func (c *Client) archiveMessage(msg interfaces.ChatMessage) {
	if c.archive == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()
	if err := c.archive.Append(ctx, c.conversationID, msg); err != nil {
		c.noteArchiveError(err)
	}
}

func (c *Client) bindSession(id string) {
	if c.archive == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()
	if err := c.archive.BindSession(ctx, c.conversationID, id); err != nil {
		c.noteArchiveError(err)
	}
}

func (c *Client) noteArchiveError(err error) {
	c.logger.Warn("Transcript archive failed", "error", err)
	c.mu.Lock()
	c.archiveErrors.Add(err)
	c.mu.Unlock()
}

// Close stops the client. In-flight requests are aborted and nothing reaches the
// sink once Close returns. Safe to call more than once.
func (c *Client) Close() error {
	c.deliverMu.Lock()
	already := c.closed
	c.closed = true
	c.deliverMu.Unlock()
	if already {
		return nil
	}

	c.mu.Lock()
	c.state = StateClosed
	c.mu.Unlock()

	c.cancel()
	c.session.Reset()
	c.logger.Debug("Chat client closed")
	return nil
}

// State returns the current lifecycle state
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID returns the current server session id
func (c *Client) SessionID() (string, bool) {
	return c.session.Get()
}

// ConversationID returns the id under which the transcript is archived
func (c *Client) ConversationID() string {
	return c.conversationID
}

// Transcript returns a copy of every message emitted so far
func (c *Client) Transcript() []interfaces.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]interfaces.ChatMessage(nil), c.transcript...)
}

// Visualization returns a snapshot of the collected image references
func (c *Client) Visualization() Visualization {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visual.clone()
}

// LastRaw returns the body of the most recent server response
func (c *Client) LastRaw() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRaw
}

// ArchiveError summarizes transcript archive failures, or returns nil
func (c *Client) ArchiveError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.archiveErrors.HasErrors() {
		return nil
	}
	return c.archiveErrors.ToCombinedError(apperrors.ErrorTypeStorage, component)
}

func stateError(operation, message string, current State) error {
	return apperrors.NewStateError(component).
		WithMessage(message).
		WithUserMessage(message).
		WithOperation(operation).
		WithContext("state", current.String()).
		Build()
}

func notInitialized(operation string, current State) error {
	return apperrors.NewStateError(component).
		WithMessage("session not started").
		WithUserMessage(apperrors.ReasonNotInitialized).
		WithOperation(operation).
		WithContext("state", current.String()).
		Build()
}

func closedError(operation string) error {
	return apperrors.NewCanceledError(component).
		WithMessage("client closed").
		WithUserMessage(apperrors.ReasonCanceled).
		WithOperation(operation).
		Silent().
		Build()
}
