package accounts

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"perpdesk/internal/events"
	"perpdesk/internal/httputil"
	"perpdesk/internal/model"
	"perpdesk/internal/tradeerr"
	"perpdesk/internal/xyra"

	json "github.com/goccy/go-json"
)

// History serves the positions and history tabs.
type History interface {
	ProfileAddress(ctx context.Context, userAddress string) (string, error)
	OpenOrders(ctx context.Context, address string) ([]json.RawMessage, error)
	OrderHistory(ctx context.Context, address string) ([]json.RawMessage, error)
	TradeHistory(ctx context.Context, address string) ([]json.RawMessage, error)
	Fills(ctx context.Context, q xyra.FillsQuery) ([]json.RawMessage, error)
}

type MarketLookup interface {
	Lookup(symbol string) (model.Market, error)
}

type Publisher interface {
	Publish(evt events.Event)
}

type Handler struct {
	svc     *Service
	history History
	markets MarketLookup
	events  Publisher
}

func NewHandler(svc *Service, history History, markets MarketLookup, pub Publisher) *Handler {
	return &Handler{svc: svc, history: history, markets: markets, events: pub}
}

func (h *Handler) Account(w http.ResponseWriter, r *http.Request, userID string) {
	st, err := h.svc.Snapshot(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, st)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request, userID string) {
	st, err := h.svc.Refresh(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if h.events != nil {
		h.events.Publish(events.Event{Type: events.TypeAccountSnapshot, Account: st.Account, Data: st})
	}
	httputil.WriteJSON(w, http.StatusOK, st)
}

// Positions lists the snapshot's positions ordered by market id.
func (h *Handler) Positions(w http.ResponseWriter, r *http.Request, userID string) {
	st, err := h.svc.Snapshot(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]model.Position, 0, len(st.Positions))
	for _, p := range st.Positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MarketID < out[j].MarketID })
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request, userID string) {
	addr, err := h.history.ProfileAddress(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, tradeerr.Transport("fetch profile address", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"account": userID, "profile_address": addr})
}

func (h *Handler) OpenOrders(w http.ResponseWriter, r *http.Request, userID string) {
	h.writeRows(w, "fetch open orders")(h.history.OpenOrders(r.Context(), userID))
}

func (h *Handler) OrderHistory(w http.ResponseWriter, r *http.Request, userID string) {
	h.writeRows(w, "fetch order history")(h.history.OrderHistory(r.Context(), userID))
}

func (h *Handler) Trades(w http.ResponseWriter, r *http.Request, userID string) {
	h.writeRows(w, "fetch trade history")(h.history.TradeHistory(r.Context(), userID))
}

func (h *Handler) Fills(w http.ResponseWriter, r *http.Request, userID string) {
	q := r.URL.Query()
	market, err := h.markets.Lookup(q.Get("market"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	fq := xyra.FillsQuery{MarketID: market.ID, Address: userID}
	for key, dst := range map[string]*time.Time{"from": &fq.From, "to": &fq.To} {
		raw := strings.TrimSpace(q.Get(key))
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid " + key + " time"})
			return
		}
		*dst = t
	}
	if !fq.From.IsZero() && !fq.To.IsZero() && fq.From.After(fq.To) {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "from is after to"})
		return
	}
	h.writeRows(w, "fetch fills")(h.history.Fills(r.Context(), fq))
}

func (h *Handler) writeRows(w http.ResponseWriter, op string) func([]json.RawMessage, error) {
	return func(rows []json.RawMessage, err error) {
		if err != nil {
			httputil.WriteError(w, tradeerr.Transport(op, err))
			return
		}
		if rows == nil {
			rows = []json.RawMessage{}
		}
		httputil.WriteJSON(w, http.StatusOK, rows)
	}
}
