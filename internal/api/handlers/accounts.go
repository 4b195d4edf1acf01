package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/fobos-app/ledger/internal/api/httpx"
	"github.com/fobos-app/ledger/internal/models"
	"github.com/fobos-app/ledger/internal/services"
)

type AccountHandler struct {
	Svc *services.AccountService
}

func NewAccountHandler(s *services.AccountService) *AccountHandler { return &AccountHandler{Svc: s} }

// accountReq takes the balance in major units, as a JSON string or number.
type accountReq struct {
	Name        string          `json:"name"`
	ColorHex    string          `json:"color_hex"`
	Description *string         `json:"description,omitempty"`
	Balance     decimal.Decimal `json:"balance"`
}

type accountResp struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	ColorHex     string     `json:"color_hex"`
	Description  *string    `json:"description,omitempty"`
	Balance      string     `json:"balance"`
	BalanceCents int64      `json:"balance_cents"`
	Watermark    *time.Time `json:"watermark,omitempty"`
	Version      int64      `json:"version"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func toAccountResp(a models.Account) accountResp {
	return accountResp{
		ID:           a.ID,
		Name:         a.Name,
		ColorHex:     a.ColorHex,
		Description:  a.Description,
		Balance:      services.FromCents(a.BalanceCents).StringFixed(2),
		BalanceCents: a.BalanceCents,
		Watermark:    a.Watermark,
		Version:      a.Version,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	as, err := h.Svc.List(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	out := make([]accountResp, 0, len(as))
	for _, a := range as {
		out = append(out, toAccountResp(a))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAccountResp(a))
}

func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, "", http.StatusCreated)
}

func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, chi.URLParam(r, "id"), http.StatusOK)
}

func (h *AccountHandler) save(w http.ResponseWriter, r *http.Request, id string, code int) {
	var req accountReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	res, err := h.Svc.Upsert(r.Context(), services.AccountInput{
		ID:          id,
		Name:        req.Name,
		ColorHex:    req.ColorHex,
		Description: req.Description,
		Balance:     req.Balance,
	})
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, code, res)
}

func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	res, err := h.Svc.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}
