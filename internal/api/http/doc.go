// Package http exposes desktop sessions over a local JSON API.
//
// Every session route lives below /sessions/:id. Operations run
// synchronously: the response carries the undo record the operation
// pushed. Prompts raised while an operation runs are answered over the
// session's UI websocket at /sessions/:id/ws.
package http
