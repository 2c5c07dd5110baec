// Package timeouts defines shared timeout constants used across the service.
// Centralizing these values prevents drift between boundaries and makes the
// durations discoverable.
package timeouts

import "time"

// ReadHeader limits how long the HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long the HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// WebsocketWrite caps a single outbound websocket write.
const WebsocketWrite = 10 * time.Second

// SnapshotSave caps a fire-and-forget snapshot persistence attempt.
const SnapshotSave = 5 * time.Second
