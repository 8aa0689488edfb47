// Package protocol implements the HTTP exchange with the recommendation server.
// This file defines endpoint paths, timeouts and the wire shapes of the requests.
package protocol

import (
	"fmt"
	"time"
)

// ClientVersion is reported in the User-Agent header
const ClientVersion = "1.0.0"

// HTTP endpoint paths served by the recommendation backend
const (
	EndpointStart     = "/start"
	EndpointChat      = "/chat"
	EndpointRecommend = "/recommend/"
	StaticPath        = "/static/"
)

// HTTP timeout configurations
const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultRequestTimeout = 30 * time.Second
)

// Multipart upload defaults
const (
	UploadFieldName       = "file"
	DefaultUploadFilename = "uploaded_image.jpg"
	DefaultImageType      = "image/jpeg"
	boundaryPrefix        = "Boundary-"
)

// ChatRequest is the body of POST /chat
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// ConnectionStatistics tracks communication metrics for monitoring and debugging
type ConnectionStatistics struct {
	TotalRequests       int           `json:"totalRequests"`
	SuccessfulRequests  int           `json:"successfulRequests"`
	FailedRequests      int           `json:"failedRequests"`
	AverageResponseTime time.Duration `json:"averageResponseTime"`
	LastRequestTime     time.Time     `json:"lastRequestTime"`
	BytesSent           int64         `json:"bytesSent"`
	BytesReceived       int64         `json:"bytesReceived"`
}

// synthesizedStatusText is returned in place of an empty error body
func synthesizedStatusText(statusCode int) string {
	return fmt.Sprintf("HTTP Error: %d", statusCode)
}
