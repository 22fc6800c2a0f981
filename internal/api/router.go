// internal/api/router.go
package api

import "net/http"

func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	// Direct grading
	mux.HandleFunc("POST /evaluate", h.evaluate)

	// Cards
	mux.HandleFunc("POST /cards", h.createCard)
	mux.HandleFunc("GET /cards/{cardID}", h.getCard)
	mux.HandleFunc("GET /cards/{cardID}/reviews", h.listReviews)

	// Reviews
	mux.HandleFunc("POST /cards/{cardID}/reviews", h.submitReview)
	mux.HandleFunc("GET /reviews/{reviewID}", h.getReview)
	mux.HandleFunc("POST /reviews/{reviewID}/rate", h.rateReview)
}
