package chat

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	apperrors "github.com/xperiencelabs/archat/internal/errors"
	"github.com/xperiencelabs/archat/internal/interfaces"
	"github.com/xperiencelabs/archat/internal/logging"
	"github.com/xperiencelabs/archat/internal/protocol"
	"github.com/xperiencelabs/archat/internal/transcript"
)

var testEndpoints = protocol.Endpoints{
	Start:     "http://server/start",
	Chat:      "http://server/chat",
	Recommend: "http://server/recommend/",
	Static:    "http://server/static/",
}

type recordedCall struct {
	URL  string
	Body any
	File interfaces.MultipartFile
	Data string
}

// fakeTransport answers from per-URL queues, or from handler when set
type fakeTransport struct {
	mu        sync.Mutex
	replies   map[string][]string
	calls     []recordedCall
	handler   func(ctx context.Context, url string) (string, error)
	inFlight  int
	maxFlight int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{replies: make(map[string][]string)}
}

func (f *fakeTransport) reply(url string, bodies ...string) *fakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[url] = append(f.replies[url], bodies...)
	return f
}

func (f *fakeTransport) answer(ctx context.Context, call recordedCall) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.inFlight++
	if f.inFlight > f.maxFlight {
		f.maxFlight = f.inFlight
	}
	handler := f.handler
	var body string
	var ok bool
	if queue := f.replies[call.URL]; len(queue) > 0 {
		body, ok = queue[0], true
		f.replies[call.URL] = queue[1:]
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if handler != nil {
		return handler(ctx, call.URL)
	}
	if !ok {
		return "", fmt.Errorf("no reply queued for %s", call.URL)
	}
	return body, nil
}

func (f *fakeTransport) PostJSON(ctx context.Context, url string, body any) (string, error) {
	return f.answer(ctx, recordedCall{URL: url, Body: body})
}

func (f *fakeTransport) PostMultipart(ctx context.Context, url string, file interfaces.MultipartFile) (string, error) {
	data, _ := io.ReadAll(file.Body)
	return f.answer(ctx, recordedCall{URL: url, File: file, Data: string(data)})
}

func (f *fakeTransport) Calls() []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedCall(nil), f.calls...)
}

func quietLogger() *logging.Logger {
	return logging.NewWriterLogger(io.Discard, logging.Config{Level: logging.ErrorLevel})
}

func newTestClient(transport interfaces.Transport, sink interfaces.EventSink, opts Options) *Client {
	opts.Endpoints = testEndpoints
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	return NewClient(transport, sink, opts)
}

func startedClient(t *testing.T, transport *fakeTransport, opts Options) (*Client, *RecordingSink) {
	t.Helper()
	transport.reply(testEndpoints.Start, `{"session_id":"session-1"}`)
	sink := &RecordingSink{}
	client := newTestClient(transport, sink, opts)
	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client, sink
}

func TestStartStoresSessionID(t *testing.T) {
	for _, id := range []string{"abc", "0f8fad5b-d9cb-469f-a165-70867728950e", "42"} {
		t.Run(id, func(t *testing.T) {
			transport := newFakeTransport().reply(testEndpoints.Start, fmt.Sprintf(`{"session_id":%q}`, id))
			sink := &RecordingSink{}
			client := newTestClient(transport, sink, Options{})
			defer client.Close()

			if err := client.Start(context.Background()); err != nil {
				t.Fatalf("Start() error = %v", err)
			}

			got, ok := client.SessionID()
			if !ok || got != id {
				t.Errorf("SessionID() = (%q, %v), want (%q, true)", got, ok, id)
			}
			if client.State() != StateReady {
				t.Errorf("State() = %v, want ready", client.State())
			}
			if !reflect.DeepEqual(sink.Kinds(), []string{SinkSessionReady}) {
				t.Errorf("sink = %v, want only session_ready", sink.Kinds())
			}
			calls := transport.Calls()
			if len(calls) != 1 || calls[0].URL != testEndpoints.Start || calls[0].Body != nil {
				t.Errorf("calls = %+v, want one empty POST to /start", calls)
			}
		})
	}
}

func TestStartFailuresAreFatal(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		err        error
		wantReason string
	}{
		{"empty session id", `{"session_id":""}`, nil, "empty session id"},
		{"missing session id", `{"assistant_response":"hello"}`, nil, "empty session id"},
		{"no fields", `{}`, nil, "empty session id"},
		{"malformed", `HTTP Error: 500`, nil, "malformed response"},
		{"server rejects start", `{"detail":"service unavailable"}`, nil, "service unavailable"},
		{"extra events", `{"session_id":"s","assistant_response":"hi"}`, nil, "unexpected start response"},
		{"transport failure", "", fmt.Errorf("connection refused"), "connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := newFakeTransport()
			if tt.err != nil {
				transport.handler = func(context.Context, string) (string, error) { return "", tt.err }
			} else {
				transport.reply(testEndpoints.Start, tt.reply)
			}
			sink := &RecordingSink{}
			client := newTestClient(transport, sink, Options{})
			defer client.Close()

			err := client.Start(context.Background())
			if err == nil {
				t.Fatal("Start() should fail")
			}
			var ce *apperrors.ContextualError
			if !stderrors.As(err, &ce) || ce.IsRecoverable() {
				t.Errorf("start failure should be a non-recoverable ContextualError, got %#v", err)
			}
			if client.State() != StateFailed {
				t.Errorf("State() = %v, want failed", client.State())
			}
			if client.session.IsInitialized() {
				t.Error("a failed start must not leave a session behind")
			}
			if got := sink.Errors(); len(got) != 1 || got[0] != tt.wantReason {
				t.Errorf("sink errors = %v, want [%q]", got, tt.wantReason)
			}
			for _, kind := range sink.Kinds() {
				if kind == SinkSessionReady {
					t.Error("OnSessionReady must not fire on failure")
				}
			}

			if err := client.Start(context.Background()); !apperrors.IsType(err, apperrors.ErrorTypeState) {
				t.Errorf("second Start() = %v, want state error", err)
			}
		})
	}
}

func TestSendMessageRejectsBlankText(t *testing.T) {
	transport := newFakeTransport()
	client, sink := startedClient(t, transport, Options{})
	before := len(sink.Events())

	for _, text := range []string{"", "   ", "\n\t"} {
		err := client.SendMessage(context.Background(), text)
		if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
			t.Errorf("SendMessage(%q) = %v, want validation error", text, err)
		}
	}

	if n := len(transport.Calls()); n != 1 {
		t.Errorf("expected only the start call, got %d calls", n)
	}
	if len(sink.Events()) != before {
		t.Errorf("blank messages must not reach the sink: %v", sink.Kinds())
	}
	if client.State() != StateReady {
		t.Errorf("State() = %v, want ready", client.State())
	}
}

func TestSendMessageBeforeStart(t *testing.T) {
	transport := newFakeTransport()
	sink := &RecordingSink{}
	client := newTestClient(transport, sink, Options{})
	defer client.Close()

	err := client.SendMessage(context.Background(), "hello")
	if !apperrors.IsType(err, apperrors.ErrorTypeState) {
		t.Fatalf("SendMessage() = %v, want state error", err)
	}
	if len(transport.Calls()) != 0 {
		t.Error("no network call expected before start")
	}
	if got := sink.Errors(); !reflect.DeepEqual(got, []string{"session not initialized"}) {
		t.Errorf("sink errors = %v", got)
	}
	if err := client.UploadImage(context.Background(), []byte("img"), ""); !apperrors.IsType(err, apperrors.ErrorTypeState) {
		t.Errorf("UploadImage() = %v, want state error", err)
	}
}

func TestSendMessageAppliesEvents(t *testing.T) {
	transport := newFakeTransport()
	client, sink := startedClient(t, transport, Options{})

	transport.reply(testEndpoints.Chat, `{
		"session_id": "session-2",
		"assistant_response": "Here are some chairs",
		"internal_data": {"images": ["static/c1.jpg"]},
		"content": [{"image_2d": "static/t1.jpg", "image_3d": "static/t1.glb"}]
	}`)

	if err := client.SendMessage(context.Background(), "  show me chairs  "); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	calls := transport.Calls()
	request, ok := calls[len(calls)-1].Body.(protocol.ChatRequest)
	if !ok {
		t.Fatalf("chat body = %#v, want protocol.ChatRequest", calls[len(calls)-1].Body)
	}
	if request.SessionID != "session-1" || request.Message != "show me chairs" {
		t.Errorf("request = %+v", request)
	}

	if id, _ := client.SessionID(); id != "session-2" {
		t.Errorf("SessionID() = %q, want rotated session-2", id)
	}

	wantKinds := []string{
		SinkSessionReady,
		SinkMessage, // sent echo
		SinkMessage, // assistant text
		SinkMessage, // internal image
		SinkVisualizationAvailable,
		SinkMessage, // content image
	}
	if got := sink.Kinds(); !reflect.DeepEqual(got, wantKinds) {
		t.Fatalf("sink kinds = %v, want %v", got, wantKinds)
	}

	messages := sink.Messages()
	if messages[0].Direction != interfaces.DirectionSent || messages[0].Text != "show me chairs" {
		t.Errorf("echo = %+v", messages[0])
	}
	if messages[1].Text != "Here are some chairs" || messages[1].Kind != interfaces.KindReply {
		t.Errorf("reply = %+v", messages[1])
	}
	if messages[2].ImageRef != "static/c1.jpg" || messages[3].ImageRef != "static/t1.jpg" {
		t.Errorf("image refs = %q, %q", messages[2].ImageRef, messages[3].ImageRef)
	}
	if !reflect.DeepEqual(client.Transcript(), messages) {
		t.Error("Transcript() should match the messages delivered to the sink")
	}

	viz := client.Visualization()
	if !reflect.DeepEqual(viz.Models3D, []string{"static/c1.glb", "static/t1.glb"}) {
		t.Errorf("Models3D = %v", viz.Models3D)
	}
	if viz.Latest != "static/t1.jpg" {
		t.Errorf("Latest = %q", viz.Latest)
	}

	transport.reply(testEndpoints.Chat, `{"internal_data":{"images":["static/c2.jpg"]}}`)
	if err := client.SendMessage(context.Background(), "more"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	count := 0
	for _, kind := range sink.Kinds() {
		if kind == SinkVisualizationAvailable {
			count++
		}
	}
	if count != 1 {
		t.Errorf("OnVisualizationAvailable fired %d times, want once", count)
	}
	if client.State() != StateReady {
		t.Errorf("State() = %v, want ready", client.State())
	}
}

func TestSendMessageScrapedFallback(t *testing.T) {
	transport := newFakeTransport()
	client, sink := startedClient(t, transport, Options{})
	transport.reply(testEndpoints.Chat, `{"content":[],"content_scrapped":"no results"}`)

	if err := client.SendMessage(context.Background(), "lamps"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	messages := sink.Messages()
	last := messages[len(messages)-1]
	if last.Text != "no results" || last.Direction != interfaces.DirectionReceived {
		t.Errorf("last message = %+v", last)
	}
	if !client.Visualization().Empty() {
		t.Error("scraped text must not enable visualization")
	}
}

func TestPerCallFailuresKeepClientReady(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		err        error
		wantType   apperrors.ErrorType
		wantReason string
	}{
		{"malformed body", `{"detail":`, nil, apperrors.ErrorTypeParse, "malformed response"},
		{"synthesized status", `HTTP Error: 502`, nil, apperrors.ErrorTypeParse, "malformed response"},
		{"server detail", `{"detail":"unknown session"}`, nil, apperrors.ErrorTypeProtocol, "unknown session"},
		{"server error object", `{"error":{"message":"rate limited"}}`, nil, apperrors.ErrorTypeProtocol, "rate limited"},
		{
			"network failure", "",
			apperrors.NewNetworkError("test").WithMessage("dial").WithUserMessage("network error: refused").Silent().Build(),
			apperrors.ErrorTypeNetwork, "network error: refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := newFakeTransport()
			client, sink := startedClient(t, transport, Options{})
			if tt.err != nil {
				transport.handler = func(context.Context, string) (string, error) { return "", tt.err }
			} else {
				transport.reply(testEndpoints.Chat, tt.reply)
			}

			err := client.SendMessage(context.Background(), "hello")
			if !apperrors.IsType(err, tt.wantType) {
				t.Errorf("SendMessage() = %v, want %s error", err, tt.wantType)
			}
			if client.State() != StateReady {
				t.Errorf("State() = %v, want ready", client.State())
			}
			if got := sink.Errors(); !reflect.DeepEqual(got, []string{tt.wantReason}) {
				t.Errorf("sink errors = %v, want [%q]", got, tt.wantReason)
			}
		})
	}
}

func TestRequestTimeout(t *testing.T) {
	transport := newFakeTransport()
	client, sink := startedClient(t, transport, Options{RequestTimeout: 20 * time.Millisecond})
	transport.handler = func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}

	err := client.SendMessage(context.Background(), "slow")
	if apperrors.ReasonOf(err) != apperrors.ReasonTimeout {
		t.Fatalf("SendMessage() = %v, want timeout", err)
	}
	if got := sink.Errors(); !reflect.DeepEqual(got, []string{"timeout"}) {
		t.Errorf("sink errors = %v", got)
	}
	if client.State() != StateReady {
		t.Errorf("State() = %v, want ready", client.State())
	}
}

func TestCloseMidRequestSuppressesEvents(t *testing.T) {
	tests := []struct {
		name        string
		honorCancel bool
	}{
		{"transport honors cancellation", true},
		{"transport completes after close", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := newFakeTransport()
			client, sink := startedClient(t, transport, Options{})

			inFlight := make(chan struct{})
			release := make(chan struct{})
			transport.handler = func(ctx context.Context, _ string) (string, error) {
				close(inFlight)
				if tt.honorCancel {
					<-ctx.Done()
					return "", ctx.Err()
				}
				<-release
				return `{"assistant_response":"too late","internal_data":{"images":["x.jpg"]}}`, nil
			}

			done := make(chan error, 1)
			go func() { done <- client.SendMessage(context.Background(), "hello") }()

			<-inFlight
			before := sink.Events()
			if err := client.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}
			close(release)

			select {
			case err := <-done:
				if err == nil {
					t.Error("SendMessage() should report the aborted call")
				}
			case <-time.After(2 * time.Second):
				t.Fatal("SendMessage() did not return after Close")
			}

			if after := sink.Events(); !reflect.DeepEqual(before, after) {
				t.Errorf("events after Close: %v", after[len(before):])
			}
			if client.State() != StateClosed {
				t.Errorf("State() = %v, want closed", client.State())
			}
			if err := client.Close(); err != nil {
				t.Errorf("second Close() error = %v", err)
			}
		})
	}
}

func TestCallsAreSerialized(t *testing.T) {
	transport := newFakeTransport()
	client, _ := startedClient(t, transport, Options{})
	transport.handler = func(context.Context, string) (string, error) {
		time.Sleep(5 * time.Millisecond)
		return `{"assistant_response":"ok"}`, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := client.SendMessage(context.Background(), fmt.Sprintf("message %d", i)); err != nil {
				t.Errorf("SendMessage() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	transport.mu.Lock()
	defer transport.mu.Unlock()
	if transport.maxFlight != 1 {
		t.Errorf("max concurrent requests = %d, want 1", transport.maxFlight)
	}
	if len(client.Transcript()) != 16 {
		t.Errorf("transcript length = %d, want 16", len(client.Transcript()))
	}
}

func TestUploadImage(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	tests := []struct {
		name         string
		data         []byte
		filename     string
		wantFilename string
		wantType     string
	}{
		{"png keeps name", png, "chair.png", "chair.png", "image/png"},
		{"unknown bytes default", []byte("raw-bytes"), "", "uploaded_image.jpg", "image/jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := newFakeTransport()
			client, sink := startedClient(t, transport, Options{})
			transport.reply(testEndpoints.Recommend, `{"recommendation":"Try the oak table"}`)

			if err := client.UploadImage(context.Background(), tt.data, tt.filename); err != nil {
				t.Fatalf("UploadImage() error = %v", err)
			}

			calls := transport.Calls()
			upload := calls[len(calls)-1]
			if upload.URL != testEndpoints.Recommend {
				t.Errorf("URL = %q", upload.URL)
			}
			if upload.File.FieldName != "file" || upload.File.Filename != tt.wantFilename || upload.File.ContentType != tt.wantType {
				t.Errorf("file = %+v", upload.File)
			}
			if upload.Data != string(tt.data) {
				t.Errorf("uploaded bytes = %q", upload.Data)
			}

			messages := sink.Messages()
			if len(messages) != 2 {
				t.Fatalf("messages = %+v, want echo and recommendation", messages)
			}
			if messages[0].ImageRef != tt.wantFilename || messages[0].Direction != interfaces.DirectionSent {
				t.Errorf("echo = %+v", messages[0])
			}
			if messages[1].Text != "Try the oak table" {
				t.Errorf("recommendation = %+v", messages[1])
			}
		})
	}
}

func TestUploadImageRejectsEmptyData(t *testing.T) {
	transport := newFakeTransport()
	client, _ := startedClient(t, transport, Options{})

	if err := client.UploadImage(context.Background(), nil, "x.jpg"); !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("UploadImage(nil) = %v, want validation error", err)
	}
	if len(transport.Calls()) != 1 {
		t.Error("empty upload must not reach the network")
	}
}

func TestTranscriptIsArchived(t *testing.T) {
	store := transcript.NewMemoryStore()
	transport := newFakeTransport()
	client, _ := startedClient(t, transport, Options{Store: store, ConversationID: "conv-1"})
	transport.reply(testEndpoints.Chat, `{"assistant_response":"hi","session_id":"session-9"}`)

	if err := client.SendMessage(context.Background(), "hello"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	archived, err := store.Load(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(archived, client.Transcript()) {
		t.Errorf("archived = %+v, want %+v", archived, client.Transcript())
	}

	convs, _ := store.List(context.Background())
	if len(convs) != 1 || convs[0].SessionID != "session-9" {
		t.Errorf("conversations = %+v, want bound to the rotated session", convs)
	}
	if client.ArchiveError() != nil {
		t.Errorf("ArchiveError() = %v", client.ArchiveError())
	}
}

type failingStore struct{ *transcript.MemoryStore }

func (failingStore) Append(context.Context, string, interfaces.ChatMessage) error {
	return fmt.Errorf("disk full")
}

func TestArchiveFailureDoesNotBreakChat(t *testing.T) {
	transport := newFakeTransport()
	store := failingStore{MemoryStore: transcript.NewMemoryStore()}
	client, sink := startedClient(t, transport, Options{Store: store})
	transport.reply(testEndpoints.Chat, `{"assistant_response":"hi"}`)

	if err := client.SendMessage(context.Background(), "hello"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if len(sink.Messages()) != 2 {
		t.Errorf("messages = %+v", sink.Messages())
	}
	if len(sink.Errors()) != 0 {
		t.Errorf("archive failures must not reach the sink: %v", sink.Errors())
	}
	if err := client.ArchiveError(); !apperrors.IsType(err, apperrors.ErrorTypeStorage) {
		t.Errorf("ArchiveError() = %v, want storage error", err)
	}
}

func TestClientOverHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case protocol.EndpointStart:
			w.Write([]byte(`{"session_id":"http-session"}`))
		case protocol.EndpointChat:
			var req protocol.ChatRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID != "http-session" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.Write([]byte(`{"assistant_response":"echo: ` + req.Message + `"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	profile := &interfaces.Profile{Host: server.URL}
	sink := &RecordingSink{}
	client := NewClient(protocol.NewClient(protocol.WithLogger(quietLogger())), sink, Options{
		Endpoints: protocol.EndpointsFor(profile),
		Logger:    quietLogger(),
	})
	defer client.Close()

	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := client.SendMessage(context.Background(), "ping"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	messages := sink.Messages()
	if len(messages) != 2 || messages[1].Text != "echo: ping" {
		t.Errorf("messages = %+v", messages)
	}
	if client.LastRaw() != `{"assistant_response":"echo: ping"}` {
		t.Errorf("LastRaw() = %q", client.LastRaw())
	}
}

func TestRejectedRequestsReachTheSink(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case protocol.EndpointStart:
			w.Write([]byte(`{"session_id":"http-session"}`))
		case protocol.EndpointChat:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"detail":"unknown session"}`))
		case protocol.EndpointRecommend:
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			w.Write([]byte(`{"error":"image too large"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	profile := &interfaces.Profile{Host: server.URL}
	sink := &RecordingSink{}
	client := NewClient(protocol.NewClient(protocol.WithLogger(quietLogger())), sink, Options{
		Endpoints: protocol.EndpointsFor(profile),
		Logger:    quietLogger(),
	})
	defer client.Close()

	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	err := client.SendMessage(context.Background(), "hello")
	if !apperrors.IsType(err, apperrors.ErrorTypeProtocol) {
		t.Errorf("SendMessage() = %v, want protocol error", err)
	}
	err = client.UploadImage(context.Background(), []byte("\xff\xd8\xff\xe0big"), "room.jpg")
	if !apperrors.IsType(err, apperrors.ErrorTypeProtocol) {
		t.Errorf("UploadImage() = %v, want protocol error", err)
	}

	if got := sink.Errors(); !reflect.DeepEqual(got, []string{"unknown session", "image too large"}) {
		t.Errorf("sink errors = %v", got)
	}
	if client.State() != StateReady {
		t.Errorf("State() = %v, want ready", client.State())
	}
}
