// Package main runs the desktop daemon.
//
// The daemon signs browser sessions in against the cloud filesystem API,
// runs their file operations and keeps their views consistent with the
// server's realtime event stream.
//
// Configuration:
//   - Environment variables (API_ORIGIN, GUI_ORIGIN, PORT, ...)
//   - An optional YAML or TOML file (-config)
//   - CLI flags override both
//
// Usage:
//
//	./server -config desktop.yaml
//	./server -port 8000 -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown, every session is signed out
package main
