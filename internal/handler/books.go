package handler

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/library-system/internal/model"
	"github.com/mmeshcher/library-system/internal/repository"
	"github.com/mmeshcher/library-system/internal/validation"
)

const dateLayout = "2006-01-02"

type bookRequest struct {
	Title             string `json:"title" validate:"required,max=100"`
	Author            string `json:"author" validate:"required,max=120"`
	ISBN              string `json:"isbn" validate:"required,isbn"`
	DateOfPublication string `json:"date_of_publication" validate:"omitempty,datetime=2006-01-02"`
	RentFee           int64  `json:"rent_fee" validate:"gte=0"`
	LatePenaltyFee    int64  `json:"late_penalty_fee" validate:"gte=0"`
}

func (req bookRequest) toModel(id int64, now time.Time) *model.Book {
	published := now.UTC().Truncate(24 * time.Hour)
	if req.DateOfPublication != "" {
		// формат уже проверен тегом datetime
		published, _ = time.Parse(dateLayout, req.DateOfPublication)
	}

	return &model.Book{
		ID:             id,
		Title:          req.Title,
		Author:         req.Author,
		ISBN:           validation.NormalizeISBN(req.ISBN),
		PublishedAt:    published,
		RentFee:        req.RentFee,
		LatePenaltyFee: req.LatePenaltyFee,
	}
}

type filterRequest struct {
	Parameters string `json:"parameters" validate:"max=100"`
}

// ListBooks возвращает каталог.
func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.ListBooks(r.Context())
	if err != nil {
		h.logger.Error("list books error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	writeList(w, books)
}

// CreateBook добавляет книгу в каталог.
func (h *Handler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := h.decode(r, &req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	b := req.toModel(0, time.Now())
	if err := h.service.CreateBook(r.Context(), b); err != nil {
		if errors.Is(err, repository.ErrBookExists) {
			writeDetails(w, http.StatusConflict, "Book already exists")
			return
		}
		h.logger.Error("create book error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, b)
}

// GetBook возвращает книгу по идентификатору.
func (h *Handler) GetBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	b, err := h.service.GetBook(r.Context(), id)
	if err != nil {
		h.writeBookError(w, "get book", id, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// UpdateBook обновляет описание и тарифы книги.
func (h *Handler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req bookRequest
	if err := h.decode(r, &req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.UpdateBook(r.Context(), req.toModel(id, time.Now())); err != nil {
		h.writeBookError(w, "update book", id, err)
		return
	}
	writeDetails(w, http.StatusAccepted, "Book updated successfully")
}

// DeleteBook удаляет книгу из каталога.
func (h *Handler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteBook(r.Context(), id); err != nil {
		h.writeBookError(w, "delete book", id, err)
		return
	}
	writeDetails(w, http.StatusAccepted, "Book deleted successfully")
}

// Search ищет книги по подстроке в названии или имени автора.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := h.decode(r, &req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	books, err := h.service.SearchBooks(r.Context(), req.Parameters)
	if err != nil {
		h.logger.Error("search books error", zap.Error(err), zap.String("query", req.Parameters))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	writeList(w, books)
}

func (h *Handler) writeBookError(w http.ResponseWriter, op string, id int64, err error) {
	switch {
	case errors.Is(err, repository.ErrBookNotFound):
		writeDetails(w, http.StatusNotFound, "Book not Found")
	case errors.Is(err, repository.ErrBookExists):
		writeDetails(w, http.StatusConflict, "Book already exists")
	case errors.Is(err, repository.ErrBookInUse):
		writeDetails(w, http.StatusConflict, "Book has rental history")
	default:
		h.logger.Error(op+" error", zap.Error(err), zap.Int64("bookID", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
