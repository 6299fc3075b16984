package routers

import (
	"peerprep/interview/internal/handlers"
	"peerprep/interview/internal/middleware"

	"github.com/go-chi/chi/v5"
)

// LiveRoutes registers the voice interview socket and the transcript archive.
// transcriptHandler is nil when no archive is configured.
func LiveRoutes(router *chi.Mux, jwtSecret string, liveHandler *handlers.LiveHandler, transcriptHandler *handlers.TranscriptHandler) {
	router.Route("/api/v1/live", func(r chi.Router) {
		r.Use(middleware.Authenticate(jwtSecret))
		r.Get("/ws", liveHandler.LiveWS)
		if transcriptHandler != nil {
			r.Get("/transcripts", transcriptHandler.ListHandler)
			r.Get("/transcripts/{conversation_id}", transcriptHandler.GetHandler)
		}
	})
}
