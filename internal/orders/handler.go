// Package orders serves the order-ticket endpoints: preview, preset,
// submission and the submission journal.
package orders

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"perpdesk/internal/httputil"
	"perpdesk/internal/journal"
	"perpdesk/internal/model"
	"perpdesk/internal/submission"
	"perpdesk/internal/tradeerr"
	"perpdesk/internal/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const FormIDHeader = "X-Form-ID"

type Submitter interface {
	Submit(ctx context.Context, req submission.Request) (model.OrderResult, error)
	Preview(ctx context.Context, account string, intent model.OrderIntent) (model.RiskSummary, model.MarketParams, error)
	Preset(ctx context.Context, account string, req submission.PresetRequest) (decimal.Decimal, error)
	FormState(formID string) submission.FormStatus
}

type Catalogue interface {
	List() []model.Market
	Effective(m model.Market) model.MarketParams
}

// Journal lists recorded submissions.
type Journal interface {
	Recent(ctx context.Context, account string, limit int) ([]journal.Entry, error)
	Get(ctx context.Context, account, id string) (journal.Entry, error)
}

type Handler struct {
	svc     Submitter
	markets Catalogue
	journal Journal
}

// NewHandler builds the handler. j may be nil when no database is configured.
func NewHandler(svc Submitter, markets Catalogue, j Journal) *Handler {
	return &Handler{svc: svc, markets: markets, journal: j}
}

type previewResponse struct {
	Summary model.RiskSummary  `json:"summary"`
	Params  model.MarketParams `json:"params"`
}

type previewErrorResponse struct {
	httputil.ErrorResponse
	Summary *model.RiskSummary `json:"summary,omitempty"`
}

func (h *Handler) Preview(w http.ResponseWriter, r *http.Request, userID string) {
	var intent model.OrderIntent
	if err := httputil.ReadJSON(r, &intent); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	summary, params, err := h.svc.Preview(r.Context(), userID, intent)
	if err != nil {
		body := previewErrorResponse{ErrorResponse: httputil.ErrorBody(err)}
		if !summary.SizeBase.IsZero() {
			body.Summary = &summary
		}
		httputil.WriteJSON(w, httputil.StatusFor(tradeerr.KindOf(err)), body)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, previewResponse{Summary: summary, Params: params})
}

type submitErrorResponse struct {
	httputil.ErrorResponse
	Result *model.OrderResult `json:"result,omitempty"`
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request, userID string) {
	formID := strings.TrimSpace(r.Header.Get(FormIDHeader))
	if formID == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: FormIDHeader + " header is required"})
		return
	}
	var intent model.OrderIntent
	if err := httputil.ReadJSON(r, &intent); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	res, err := h.svc.Submit(r.Context(), submission.Request{FormID: formID, Account: userID, Intent: intent})
	if errors.Is(err, submission.ErrForeignAccount) {
		httputil.WriteJSON(w, http.StatusForbidden, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		body := submitErrorResponse{ErrorResponse: httputil.ErrorBody(err)}
		if res.SubmissionID != "" {
			body.Result = &res
		}
		httputil.WriteJSON(w, httputil.StatusFor(tradeerr.KindOf(err)), body)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, res)
}

type presetRequest struct {
	Market         string `json:"market"`
	Tab            string `json:"tab"`
	AmountCurrency string `json:"amount_currency"`
	Percent        string `json:"percent"`
	Price          string `json:"price"`
	Leverage       int64  `json:"leverage"`
}

func (h *Handler) Preset(w http.ResponseWriter, r *http.Request, userID string) {
	var req presetRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	pct, err := decimal.NewFromString(strings.TrimSpace(req.Percent))
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid percent"})
		return
	}
	amount, err := h.svc.Preset(r.Context(), userID, submission.PresetRequest{
		Market:   req.Market,
		Tab:      types.Tab(req.Tab),
		Currency: types.AmountCurrency(req.AmountCurrency),
		Percent:  pct,
		Price:    req.Price,
		Leverage: req.Leverage,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"amount": amount.String()})
}

func (h *Handler) FormState(w http.ResponseWriter, r *http.Request, formID string) {
	httputil.WriteJSON(w, http.StatusOK, h.svc.FormState(formID))
}

type marketResponse struct {
	model.Market
	Params model.MarketParams `json:"params"`
}

func (h *Handler) Markets(w http.ResponseWriter, r *http.Request) {
	list := h.markets.List()
	out := make([]marketResponse, 0, len(list))
	for _, m := range list {
		out = append(out, marketResponse{Market: m, Params: h.markets.Effective(m)})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) Submissions(w http.ResponseWriter, r *http.Request, userID string) {
	if h.journal == nil {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, httputil.ErrorResponse{Error: "submission journal is disabled"})
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = n
	}
	entries, err := h.journal.Recent(r.Context(), userID, limit)
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

func (h *Handler) Submission(w http.ResponseWriter, r *http.Request, userID, id string) {
	if h.journal == nil {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, httputil.ErrorResponse{Error: "submission journal is disabled"})
		return
	}
	if _, err := uuid.Parse(id); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid submission id"})
		return
	}
	entry, err := h.journal.Get(r.Context(), userID, id)
	if errors.Is(err, journal.ErrNotFound) {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}
