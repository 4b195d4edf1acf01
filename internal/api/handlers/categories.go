package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fobos-app/ledger/internal/api/httpx"
	"github.com/fobos-app/ledger/internal/services"
)

type CategoryHandler struct {
	Svc *services.CategoryService
}

func NewCategoryHandler(s *services.CategoryService) *CategoryHandler {
	return &CategoryHandler{Svc: s}
}

type categoryReq struct {
	Name     string  `json:"name"`
	ColorHex *string `json:"color_hex,omitempty"`
}

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	cs, err := h.Svc.List(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, cs)
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, "", http.StatusCreated)
}

func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, chi.URLParam(r, "id"), http.StatusOK)
}

func (h *CategoryHandler) save(w http.ResponseWriter, r *http.Request, id string, code int) {
	var req categoryReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	res, err := h.Svc.Upsert(r.Context(), services.CategoryInput{ID: id, Name: req.Name, ColorHex: req.ColorHex})
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, code, res)
}

func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	res, err := h.Svc.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}
