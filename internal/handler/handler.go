// Package handler содержит HTTP-обработчики API библиотечного сервиса.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/mmeshcher/library-system/internal/model"
	"github.com/mmeshcher/library-system/internal/validation"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Ping(ctx context.Context) error

	Borrow(ctx context.Context, memberID, bookID int64) (*model.Receipt, error)
	ReturnBook(ctx context.Context, memberID, bookID int64) (*model.Receipt, error)

	CreateMember(ctx context.Context, m *model.Member) error
	GetMember(ctx context.Context, id int64) (*model.Member, error)
	ListMembers(ctx context.Context) ([]model.Member, error)
	UpdateMember(ctx context.Context, m *model.Member) error
	DeleteMember(ctx context.Context, id int64) error

	CreateBook(ctx context.Context, b *model.Book) error
	GetBook(ctx context.Context, id int64) (*model.Book, error)
	ListBooks(ctx context.Context) ([]model.Book, error)
	SearchBooks(ctx context.Context, query string) ([]model.Book, error)
	UpdateBook(ctx context.Context, b *model.Book) error
	DeleteBook(ctx context.Context, id int64) error

	CurrentBalance(ctx context.Context, memberID int64) (*model.BalanceEntry, error)
	MemberTransactions(ctx context.Context, memberID int64) ([]model.Transaction, error)
	AllBalances(ctx context.Context) ([]model.MemberBalance, error)
	PendingReturns(ctx context.Context) ([]model.MemberBalance, error)
	BookStatusCounts(ctx context.Context) ([]model.StatusCount, error)
	BalanceSeries(ctx context.Context) ([]model.BalancePoint, error)
}

// Handler реализует HTTP-обработчики API библиотечного сервиса.
type Handler struct {
	service  Service
	logger   *zap.Logger
	validate *validator.Validate
	rps      float64
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
// rateLimitRPS ограничивает частоту запросов с одного адреса; 0 отключает ограничение.
func NewHandler(s Service, logger *zap.Logger, rateLimitRPS float64) *Handler {
	return &Handler{
		service:  s,
		logger:   logger,
		validate: validation.NewValidator(),
		rps:      rateLimitRPS,
	}
}

type detailsResponse struct {
	Details string `json:"details"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetails(w http.ResponseWriter, status int, details string) {
	writeJSON(w, status, detailsResponse{Details: details})
}

func (h *Handler) decode(r *http.Request, v any) error {
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	if err := h.validate.Struct(v); err != nil {
		return err
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Index отвечает приветствием.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	writeDetails(w, http.StatusOK, "Welcome to the library")
}

// Healthz сообщает, что процесс жив.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Readyz проверяет доступность хранилища.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.logger.Warn("readiness check failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type rentalRequest struct {
	BookID int64 `json:"book_id" validate:"required,gt=0"`
}

type receiptResponse struct {
	Details string `json:"details"`
	model.Receipt
}

// Borrow выдаёт книгу читателю.
func (h *Handler) Borrow(w http.ResponseWriter, r *http.Request) {
	h.rental(w, r, "borrow", h.service.Borrow)
}

// Return принимает книгу у читателя.
func (h *Handler) Return(w http.ResponseWriter, r *http.Request) {
	h.rental(w, r, "return", h.service.ReturnBook)
}

func (h *Handler) rental(w http.ResponseWriter, r *http.Request, op string, call func(ctx context.Context, memberID, bookID int64) (*model.Receipt, error)) {
	memberID, ok := pathID(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req rentalRequest
	if err := h.decode(r, &req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	receipt, err := call(r.Context(), memberID, req.BookID)
	if err != nil {
		h.writeRentalError(w, op, memberID, req.BookID, err)
		return
	}

	writeJSON(w, http.StatusOK, receiptResponse{
		Details: receiptDetails(receipt),
		Receipt: *receipt,
	})
}

func receiptDetails(rc *model.Receipt) string {
	switch rc.Outcome {
	case model.OutcomeBorrowInitiated:
		return "Borrow Initiated"
	case model.OutcomeLateReturnNoted:
		return fmt.Sprintf("Late return noted. Fee of %d applied", rc.Fee)
	default:
		return "Return Initiated"
	}
}

func (h *Handler) writeRentalError(w http.ResponseWriter, op string, memberID, bookID int64, err error) {
	switch {
	case errors.Is(err, model.ErrMemberNotRegistered):
		writeDetails(w, http.StatusNotFound, "The user is not registered. Please register")
	case errors.Is(err, model.ErrBookUnavailable):
		writeDetails(w, http.StatusNotFound, "The book is not available for renting")
	case errors.Is(err, model.ErrBookNotRented):
		writeDetails(w, http.StatusNotFound, "The book has not been rented out")
	case errors.Is(err, model.ErrCreditLimitExceeded):
		writeDetails(w, http.StatusNotAcceptable, "Outstanding balance would exceed the credit limit")
	default:
		h.logger.Error(op+" error", zap.Error(err), zap.Int64("memberID", memberID), zap.Int64("bookID", bookID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func writeList[T any](w http.ResponseWriter, items []T) {
	if len(items) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, items)
}
