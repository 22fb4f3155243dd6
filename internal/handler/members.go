package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/library-system/internal/model"
	"github.com/mmeshcher/library-system/internal/repository"
)

type memberRequest struct {
	Username    string `json:"username" validate:"required,max=20"`
	Email       string `json:"email" validate:"required,email,max=120"`
	PhoneNumber string `json:"phone_number" validate:"required,max=20"`
	Address     string `json:"address" validate:"required,max=100"`
	IsAdmin     bool   `json:"is_admin"`
}

func (req memberRequest) toModel(id int64) *model.Member {
	return &model.Member{
		ID:          id,
		Username:    req.Username,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Address:     req.Address,
		IsAdmin:     req.IsAdmin,
	}
}

// ListMembers возвращает всех читателей.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.ListMembers(r.Context())
	if err != nil {
		h.logger.Error("list members error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	writeList(w, members)
}

// CreateMember регистрирует читателя.
func (h *Handler) CreateMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := h.decode(r, &req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	m := req.toModel(0)
	if err := h.service.CreateMember(r.Context(), m); err != nil {
		if errors.Is(err, repository.ErrMemberExists) {
			writeDetails(w, http.StatusConflict, "User already exists")
			return
		}
		h.logger.Error("create member error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, m)
}

// GetMember возвращает читателя по идентификатору.
func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	m, err := h.service.GetMember(r.Context(), id)
	if err != nil {
		h.writeMemberError(w, "get member", id, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// UpdateMember обновляет данные читателя.
func (h *Handler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req memberRequest
	if err := h.decode(r, &req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.UpdateMember(r.Context(), req.toModel(id)); err != nil {
		h.writeMemberError(w, "update member", id, err)
		return
	}
	writeDetails(w, http.StatusAccepted, "User details updated successfully")
}

// DeleteMember удаляет читателя.
func (h *Handler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteMember(r.Context(), id); err != nil {
		h.writeMemberError(w, "delete member", id, err)
		return
	}
	writeDetails(w, http.StatusAccepted, "User deleted successfully")
}

// MemberBalance возвращает текущий баланс читателя.
func (h *Handler) MemberBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	entry, err := h.service.CurrentBalance(r.Context(), id)
	if err != nil {
		h.writeMemberError(w, "get balance", id, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// MemberTransactions возвращает историю выдач и возвратов читателя.
func (h *Handler) MemberTransactions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	history, err := h.service.MemberTransactions(r.Context(), id)
	if err != nil {
		h.writeMemberError(w, "get transactions", id, err)
		return
	}
	writeList(w, history)
}

func (h *Handler) writeMemberError(w http.ResponseWriter, op string, id int64, err error) {
	switch {
	case errors.Is(err, repository.ErrMemberNotFound):
		writeDetails(w, http.StatusNotFound, "User not found")
	case errors.Is(err, repository.ErrMemberExists):
		writeDetails(w, http.StatusConflict, "User already exists")
	case errors.Is(err, repository.ErrMemberHasLoans):
		writeDetails(w, http.StatusConflict, "User has unreturned books")
	default:
		h.logger.Error(op+" error", zap.Error(err), zap.Int64("memberID", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
