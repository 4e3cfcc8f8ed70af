// Package application provides application initialization and dependency wiring.
// It encapsulates the creation of container storage, the result cache,
// Prometheus metrics, the optional NATS result publisher, handlers, routers,
// and the HTTP server, keeping the main package focused on CLI parsing and
// orchestration.
package application
