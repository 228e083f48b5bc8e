package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	r := s.router

	// Session routes
	r.Route("/session", func(r chi.Router) {
		r.Get("/", s.listSessions)
		r.Post("/", s.createSession)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.deleteSession)

			r.Post("/message", s.submitMessage)
			r.Post("/abort", s.abortSession)
			r.Get("/status", s.getSessionStatus)
			r.Get("/toolcalls", s.getToolCalls)

			// Queued messages
			r.Get("/queue", s.getQueue)
			r.Delete("/queue/{messageID}", s.removeQueued)

			// Budget and turn-limit guard
			r.Post("/guard", s.respondGuard)
		})
	})

	// Operator decisions for suspended tool calls
	r.Route("/permission", func(r chi.Router) {
		r.Get("/", s.listPendingPermissions)
		r.Post("/{requestID}", s.respondPermission)
	})

	// Answers for agent-initiated questions
	r.Route("/question", func(r chi.Router) {
		r.Get("/", s.listPendingQuestions)
		r.Post("/{requestID}", s.respondQuestion)
	})

	// Settings
	r.Route("/settings", func(r chi.Router) {
		r.Get("/", s.getSettings)
		r.Patch("/", s.updateSettings)
	})

	// Event streaming (SSE)
	r.Get("/event", s.events)
}
