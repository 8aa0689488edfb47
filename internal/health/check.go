// Package health probes a recommendation server before a conversation is opened.
package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/xperiencelabs/archat/internal/interfaces"
	"github.com/xperiencelabs/archat/internal/logging"
	"github.com/xperiencelabs/archat/internal/normalizer"
	"github.com/xperiencelabs/archat/internal/protocol"
)

// Status of a single check
type Status string

const (
	StatusReady   Status = "ready"
	StatusOffline Status = "offline"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

// CheckResult is the outcome of one probe
type CheckResult struct {
	Name         string        `json:"name" yaml:"name"`
	Status       Status        `json:"status" yaml:"status"`
	ResponseTime time.Duration `json:"response_time" yaml:"response_time"`
	Error        string        `json:"error,omitempty" yaml:"error,omitempty"`
	// Kind classifies network failures, e.g. connection_refused or dns_failure
	Kind   string `json:"kind,omitempty" yaml:"kind,omitempty"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Report collects the checks run against one server
type Report struct {
	Host      string        `json:"host" yaml:"host"`
	CheckedAt time.Time     `json:"checked_at" yaml:"checked_at"`
	Checks    []CheckResult `json:"checks" yaml:"checks"`
}

// Healthy reports whether no check failed. Skipped checks do not count.
func (r Report) Healthy() bool {
	for _, check := range r.Checks {
		if check.Status == StatusOffline || check.Status == StatusError {
			return false
		}
	}
	return true
}

// Monitor runs connectivity and handshake probes
type Monitor struct {
	dialer *net.Dialer
	logger *logging.Logger
	now    func() time.Time
}

// NewMonitor creates a monitor with a five second dial timeout
func NewMonitor(logger *logging.Logger) *Monitor {
	if logger == nil {
		logger = logging.GetGlobalLogger().WithComponent("health")
	}
	return &Monitor{
		dialer: &net.Dialer{Timeout: 5 * time.Second},
		logger: logger,
		now:    time.Now,
	}
}

// Check dials the profile's host and, when transport is non-nil, performs a start
// handshake through it. A handshake opens a real session on the server.
func (m *Monitor) Check(ctx context.Context, profile *interfaces.Profile, transport interfaces.Transport) Report {
	endpoints := protocol.EndpointsFor(profile)
	report := Report{Host: profile.Host, CheckedAt: m.now()}

	connectivity := m.connectivity(ctx, profile)
	report.Checks = append(report.Checks, connectivity)

	switch {
	case transport == nil:
		report.Checks = append(report.Checks, CheckResult{Name: "handshake", Status: StatusSkipped})
	case connectivity.Status != StatusReady:
		report.Checks = append(report.Checks, CheckResult{Name: "handshake", Status: StatusSkipped, Detail: "host unreachable"})
	default:
		report.Checks = append(report.Checks, m.handshake(ctx, endpoints.Start, transport))
	}

	m.logger.Info("Health check completed",
		"host", profile.Host,
		"healthy", report.Healthy(),
	)
	return report
}

func (m *Monitor) connectivity(ctx context.Context, profile *interfaces.Profile) CheckResult {
	result := CheckResult{Name: "connectivity"}

	address, err := dialAddress(profile)
	if err != nil {
		result.Status = StatusError
		result.Error = err.Error()
		return result
	}
	result.Detail = address

	start := time.Now()
	conn, err := m.dialer.DialContext(ctx, "tcp", address)
	result.ResponseTime = time.Since(start)
	if err != nil {
		result.Status = StatusOffline
		result.Error = fmt.Sprintf("connection failed: %v", err)
		result.Kind = classifyNetworkError(err)
		return result
	}
	conn.Close()

	result.Status = StatusReady
	return result
}

func (m *Monitor) handshake(ctx context.Context, startURL string, transport interfaces.Transport) CheckResult {
	result := CheckResult{Name: "handshake", Detail: startURL}

	start := time.Now()
	raw, err := transport.PostJSON(ctx, startURL, nil)
	result.ResponseTime = time.Since(start)
	if err != nil {
		result.Status = StatusError
		result.Error = err.Error()
		result.Kind = classifyNetworkError(err)
		return result
	}

	events := normalizer.Normalize(raw)
	if failures := events.Failures(); len(failures) > 0 {
		result.Status = StatusError
		result.Error = failures[0]
		return result
	}
	ids := events.SessionIDs()
	if len(ids) == 0 {
		result.Status = StatusError
		result.Error = "no session id in start response"
		return result
	}

	result.Status = StatusReady
	result.Detail = fmt.Sprintf("%s (session %s)", startURL, ids[0])
	return result
}

// dialAddress resolves host:port for the profile, filling the port from the scheme
func dialAddress(profile *interfaces.Profile) (string, error) {
	host := strings.TrimSpace(profile.Host)
	if host == "" {
		return "", errors.New("no host configured")
	}
	if strings.Contains(host, "://") {
		u, err := url.Parse(host)
		if err != nil {
			return "", fmt.Errorf("invalid host %q: %w", host, err)
		}
		host = u.Host
	}
	host, _, _ = strings.Cut(host, "/")

	if _, _, err := net.SplitHostPort(host); err == nil {
		return host, nil
	}
	port := "80"
	if strings.EqualFold(profile.Scheme, "https") {
		port = "443"
	}
	return net.JoinHostPort(host, port), nil
}

// classifyNetworkError categorizes network errors for diagnostics
func classifyNetworkError(err error) string {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns_failure"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}

	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "connection refused"):
		return "connection_refused"
	case strings.Contains(errStr, "timeout"):
		return "timeout"
	case strings.Contains(errStr, "no such host"):
		return "dns_failure"
	case strings.Contains(errStr, "network is unreachable"):
		return "network_unreachable"
	}
	return "unknown_network_error"
}
