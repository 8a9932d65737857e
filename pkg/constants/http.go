// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

// Constants for the request headers, shared by HTTP and NATS messages
const (
	// RequestIDHeader is the header name for the request ID
	RequestIDHeader string = "X-REQUEST-ID"
)

// contextRequestID is the type for the request ID context key
type contextRequestID string

// RequestIDContextID is the context ID for the request ID
const RequestIDContextID contextRequestID = "X-REQUEST-ID"

// Health check endpoints
const (
	// LivenessPath answers as long as the process is up
	LivenessPath = "/livez"
	// ReadinessPath answers 200 only when the stores and the NATS connection are usable
	ReadinessPath = "/readyz"
)

// IsHealthCheckPath reports whether path is one of the health endpoints.
func IsHealthCheckPath(path string) bool {
	return path == LivenessPath || path == ReadinessPath
}
