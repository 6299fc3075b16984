package routers

import (
	"peerprep/interview/internal/handlers"
	"peerprep/interview/internal/middleware"
	"peerprep/interview/internal/models"

	"github.com/go-chi/chi/v5"
)

func InterviewRoutes(router *chi.Mux, jwtSecret string, interviewHandler *handlers.InterviewHandler) {
	router.Route("/api/v1/interview", func(r chi.Router) {
		r.Use(middleware.Authenticate(jwtSecret))
		r.With(middleware.ValidateRequest[*models.StartRequest]()).Post("/start", interviewHandler.StartHandler)
		r.Get("/question", interviewHandler.NextQuestionHandler)
		r.With(middleware.ValidateRequest[*models.AnswerRequest]()).Post("/answer", interviewHandler.AnswerHandler)
		r.Get("/feedback", interviewHandler.FeedbackHandler)
		r.Post("/cancel", interviewHandler.CancelHandler)
		r.Get("/session", interviewHandler.SessionHandler)
	})
}
