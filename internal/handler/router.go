package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/mmeshcher/library-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware библиотечного сервиса.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.RequestID)
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(custommiddleware.NewRateLimiter(h.rps, rateLimitBurst(h.rps)).Middleware)
	r.Use(custommiddleware.GzipMiddleware)

	r.Get("/", h.Index)
	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)

	r.Route("/members", func(r chi.Router) {
		r.Get("/", h.ListMembers)
		r.Post("/new", h.CreateMember)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetMember)
			r.Put("/", h.UpdateMember)
			r.Delete("/delete", h.DeleteMember)
			r.Get("/balance", h.MemberBalance)
			r.Get("/transactions", h.MemberTransactions)
			r.Post("/borrow", h.Borrow)
			r.Post("/return", h.Return)
		})
	})

	r.Route("/books", func(r chi.Router) {
		r.Get("/", h.ListBooks)
		r.Post("/", h.CreateBook)
		r.Get("/{id}", h.GetBook)
		r.Put("/{id}", h.UpdateBook)
		r.Delete("/{id}", h.DeleteBook)
	})

	r.Post("/filter", h.Search)
	r.Get("/balances/all", h.AllBalances)

	r.Route("/analytics", func(r chi.Router) {
		r.Get("/pending-returns", h.PendingReturns)
		r.Get("/book-status", h.BookStatus)
		r.Get("/balances-series", h.BalancesSeries)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}

func rateLimitBurst(rps float64) int {
	if b := int(rps * 2); b > 1 {
		return b
	}
	return 1
}
