package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fobos-app/ledger/internal/api/httpx"
	"github.com/fobos-app/ledger/internal/models"
	"github.com/fobos-app/ledger/internal/services"
)

type EntryHandler struct {
	Svc *services.LedgerService
}

func NewEntryHandler(s *services.LedgerService) *EntryHandler { return &EntryHandler{Svc: s} }

type entryReq struct {
	AccountID   string  `json:"account_id"`
	Kind        string  `json:"kind"`
	AmountCents int64   `json:"amount_cents"`
	Date        string  `json:"date"`
	Title       string  `json:"title"`
	CategoryID  *string `json:"category_id,omitempty"`
	Note        *string `json:"note,omitempty"`
}

type entryResp struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"account_id"`
	Kind        string    `json:"kind"`
	AmountCents int64     `json:"amount_cents"`
	Date        string    `json:"date"`
	Title       string    `json:"title"`
	CategoryID  *string   `json:"category_id,omitempty"`
	Note        *string   `json:"note,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toEntryResp(e models.Entry) entryResp {
	return entryResp{
		ID:          e.ID,
		AccountID:   e.AccountID,
		Kind:        string(e.Kind),
		AmountCents: e.AmountCents,
		Date:        e.Date.Format(models.DateLayout),
		Title:       e.Title,
		CategoryID:  e.CategoryID,
		Note:        e.Note,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// parseKind resolves aliases; an unknown kind is passed through for the
// service to reject with the other field errors.
func parseKind(s string) models.EntryKind {
	if k, err := models.ParseEntryKind(s); err == nil {
		return k
	}
	return models.EntryKind(strings.TrimSpace(s))
}

func (req entryReq) input() services.EntryInput {
	return services.EntryInput{
		AccountID:   req.AccountID,
		Kind:        parseKind(req.Kind),
		AmountCents: req.AmountCents,
		DateText:    req.Date,
		Title:       req.Title,
		CategoryID:  req.CategoryID,
		Note:        req.Note,
	}
}

func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := httpx.QueryInt(r, "limit", 50, 1, 500)
	if err != nil {
		badRequest(w, err)
		return
	}
	offset, err := httpx.QueryInt(r, "offset", 0, 0, 1<<30)
	if err != nil {
		badRequest(w, err)
		return
	}
	es, err := h.Svc.ListEntries(r.Context(), r.URL.Query().Get("account_id"), limit, offset)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	out := make([]entryResp, 0, len(es))
	for _, e := range es {
		out = append(out, toEntryResp(e))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.Svc.GetEntry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toEntryResp(e))
}

func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req entryReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	res, err := h.Svc.CreateEntry(r.Context(), req.input())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, res)
}

func (h *EntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req entryReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	res, err := h.Svc.UpdateEntry(r.Context(), chi.URLParam(r, "id"), req.input())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	res, err := h.Svc.DeleteEntry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

type importItemReq struct {
	Kind        string  `json:"kind"`
	CategoryID  string  `json:"category_id"`
	AmountCents int64   `json:"amount_cents"`
	Date        string  `json:"date"`
	Title       string  `json:"title"`
	Note        *string `json:"note,omitempty"`
}

type importReq struct {
	Items []importItemReq `json:"items"`
}

// Import commits a parsed statement to the account in the URL.
func (h *EntryHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req importReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	items := make([]services.ImportItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, services.ImportItem{
			Kind:        parseKind(it.Kind),
			CategoryID:  it.CategoryID,
			AmountCents: it.AmountCents,
			DateText:    it.Date,
			Title:       it.Title,
			Note:        it.Note,
		})
	}
	res, err := h.Svc.ImportBatch(r.Context(), chi.URLParam(r, "id"), items)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

type reconcileReq struct {
	EntryIDs []string              `json:"entry_ids"`
	Pending  []services.Adjustment `json:"pending"`
}

// Reconcile reapplies the adjustments a consistency_error response reported
// as still owed.
func (h *EntryHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	var req reconcileReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	err := h.Svc.RetryAdjustments(r.Context(), &services.ConsistencyError{EntryIDs: req.EntryIDs, Pending: req.Pending})
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, services.Result{OK: true})
}
