package httputil

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"perpdesk/internal/tradeerr"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	cases := map[tradeerr.Kind]int{
		tradeerr.KindInsufficientBalance: http.StatusUnprocessableEntity,
		tradeerr.KindInvalidPrice:        http.StatusUnprocessableEntity,
		tradeerr.KindSubmissionInFlight:  http.StatusConflict,
		tradeerr.KindTransport:           http.StatusBadGateway,
		tradeerr.KindOnChainFailure:      http.StatusBadGateway,
		tradeerr.KindTimeout:             http.StatusGatewayTimeout,
		"":                               http.StatusInternalServerError,
	}
	for kind, want := range cases {
		require.Equal(t, want, StatusFor(kind), string(kind))
	}
}

func TestWriteErrorIncludesKindAndContext(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, tradeerr.New(tradeerr.KindInsufficientBalance,
		tradeerr.WithAmount("required", decimal.RequireFromString("100.01")),
		tradeerr.WithAmount("available", decimal.NewFromInt(100))))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	require.Contains(t, body, `"kind":"insufficient_balance"`)
	require.Contains(t, body, `"required":"100.01"`)

	rec = httptest.NewRecorder()
	WriteError(rec, errors.New("boom"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"boom"}`, rec.Body.String())
}

func TestReadJSON(t *testing.T) {
	var v struct {
		Market string `json:"market"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"market":"BTC"}`))
	require.NoError(t, ReadJSON(r, &v))
	require.Equal(t, "BTC", v.Market)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"pair":"BTC"}`))
	require.EqualError(t, ReadJSON(r, &v), "invalid json body")

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	require.Error(t, ReadJSON(r, &v))
}
