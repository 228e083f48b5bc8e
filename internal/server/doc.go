// Package server provides the HTTP surface for the VaultCode session core.
//
// The server exposes a small REST API over a Chi router plus a Server-Sent
// Events stream. UI collaborators (the editor plugin, a CLI) talk to the
// core exclusively through this surface:
//
//   - /session/*: session lifecycle, message submission, abort, queue
//   - /permission/{requestID}: operator decisions for suspended tool calls
//   - /question/{requestID}: answers for agent-initiated questions
//   - /settings: read and update persisted settings
//   - /event: real-time event streaming via SSE
//
// # Sessions
//
// Each session runs at most one turn at a time. Submitting a message while
// a turn is active queues it; the queue drains in order as turns complete.
// Handlers never block on turn execution: submission returns immediately
// and progress arrives over the event stream.
//
// # Event System
//
// The /event endpoint bridges the in-process event bus to SSE. Every bus
// event is forwarded as {"type": ..., "properties": ...}; clients filter
// by sessionID with the sessionID query parameter. The stream includes
// heartbeat comments so proxies keep idle connections open.
//
// # Usage Example
//
//	cfg := server.DefaultConfig()
//	cfg.Addr = "127.0.0.1:4517"
//
//	srv := server.New(cfg, server.Deps{
//		Controller: controller,
//		Responder:  responder,
//		Asker:      asker,
//		Settings:   settings,
//	})
//
//	if err := srv.Start(); err != nil {
//		log.Fatal(err)
//	}
package server
