package handler

import (
	"net/http"

	"go.uber.org/zap"
)

// AllBalances возвращает последний баланс каждого читателя.
func (h *Handler) AllBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.service.AllBalances(r.Context())
	if err != nil {
		h.logger.Error("all balances error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	writeList(w, balances)
}

// PendingReturns возвращает читателей с непогашенным долгом.
func (h *Handler) PendingReturns(w http.ResponseWriter, r *http.Request) {
	pending, err := h.service.PendingReturns(r.Context())
	if err != nil {
		h.logger.Error("pending returns error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	writeList(w, pending)
}

// BookStatus возвращает распределение книг по статусам.
func (h *Handler) BookStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.BookStatusCounts(r.Context())
	if err != nil {
		h.logger.Error("book status error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	writeList(w, counts)
}

// BalancesSeries возвращает дневные суммы записей баланса.
func (h *Handler) BalancesSeries(w http.ResponseWriter, r *http.Request) {
	series, err := h.service.BalanceSeries(r.Context())
	if err != nil {
		h.logger.Error("balances series error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	writeList(w, series)
}
