package health

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/xperiencelabs/archat/internal/interfaces"
	"github.com/xperiencelabs/archat/internal/logging"
	"github.com/xperiencelabs/archat/internal/protocol"
)

func quietMonitor() *Monitor {
	return NewMonitor(logging.NewWriterLogger(io.Discard, logging.Config{Level: logging.ErrorLevel}))
}

func transportFor() *protocol.Client {
	return protocol.NewClient(protocol.WithLogger(logging.NewWriterLogger(io.Discard, logging.Config{Level: logging.ErrorLevel})))
}

func find(report Report, name string) CheckResult {
	for _, check := range report.Checks {
		if check.Name == name {
			return check
		}
	}
	return CheckResult{}
}

func TestCheckHealthyServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"session_id":"s-42"}`)
	}))
	defer server.Close()

	profile := &interfaces.Profile{Host: strings.TrimPrefix(server.URL, "http://")}
	report := quietMonitor().Check(context.Background(), profile, transportFor())

	if !report.Healthy() {
		t.Fatalf("report not healthy: %+v", report)
	}
	if got := find(report, "handshake"); got.Status != StatusReady || !strings.Contains(got.Detail, "s-42") {
		t.Errorf("handshake = %+v", got)
	}
}

func TestCheckRejectsUnusableStart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":"ok"}`)
	}))
	defer server.Close()

	profile := &interfaces.Profile{Host: strings.TrimPrefix(server.URL, "http://")}
	report := quietMonitor().Check(context.Background(), profile, transportFor())

	if report.Healthy() {
		t.Fatal("report should not be healthy")
	}
	if got := find(report, "handshake"); got.Status != StatusError {
		t.Errorf("handshake = %+v", got)
	}
}

func TestCheckOfflineHostSkipsHandshake(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := listener.Addr().String()
	listener.Close()

	report := quietMonitor().Check(context.Background(), &interfaces.Profile{Host: addr}, transportFor())

	connectivity := find(report, "connectivity")
	if connectivity.Status != StatusOffline || connectivity.Kind != "connection_refused" {
		t.Errorf("connectivity = %+v", connectivity)
	}
	if got := find(report, "handshake"); got.Status != StatusSkipped {
		t.Errorf("handshake = %+v", got)
	}
}

func TestCheckWithoutTransport(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	profile := &interfaces.Profile{Host: strings.TrimPrefix(server.URL, "http://")}
	report := quietMonitor().Check(context.Background(), profile, nil)

	if !report.Healthy() || find(report, "handshake").Status != StatusSkipped {
		t.Errorf("report = %+v", report)
	}
}

func TestDialAddress(t *testing.T) {
	tests := []struct {
		name    string
		profile interfaces.Profile
		want    string
		wantErr bool
	}{
		{name: "explicit port", profile: interfaces.Profile{Host: "localhost:8000"}, want: "localhost:8000"},
		{name: "http default", profile: interfaces.Profile{Host: "example.com"}, want: "example.com:80"},
		{name: "https default", profile: interfaces.Profile{Host: "example.com", Scheme: "https"}, want: "example.com:443"},
		{name: "url with path", profile: interfaces.Profile{Host: "http://example.com:9000/api"}, want: "example.com:9000"},
		{name: "empty", profile: interfaces.Profile{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dialAddress(&tt.profile)
			if (err != nil) != tt.wantErr {
				t.Fatalf("dialAddress() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("dialAddress() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassifyNetworkError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&net.DNSError{Err: "no such host", Name: "nowhere.invalid"}, "dns_failure"},
		{context.DeadlineExceeded, "timeout"},
		{errors.New("dial tcp: connection refused"), "connection_refused"},
		{errors.New("connect: network is unreachable"), "network_unreachable"},
		{errors.New("boom"), "unknown_network_error"},
	}
	for _, tt := range tests {
		if got := classifyNetworkError(tt.err); got != tt.want {
			t.Errorf("classifyNetworkError(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
