package httputil

import (
	"errors"
	"io"
	"net/http"

	"perpdesk/internal/tradeerr"

	json "github.com/goccy/go-json"
)

const maxBodyBytes = 1 << 20

type ErrorResponse struct {
	Error   string            `json:"error"`
	Kind    string            `json:"kind,omitempty"`
	Context map[string]string `json:"context,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func ReadJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return errors.New("invalid json body")
	}
	return nil
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind tradeerr.Kind) int {
	switch kind {
	case "":
		return http.StatusInternalServerError
	case tradeerr.KindSubmissionInFlight:
		return http.StatusConflict
	case tradeerr.KindTransport, tradeerr.KindOnChainFailure:
		return http.StatusBadGateway
	case tradeerr.KindTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusUnprocessableEntity
}

// ErrorBody builds the response body for err, exposing kind and context of
// structured errors.
func ErrorBody(err error) ErrorResponse {
	var te *tradeerr.Error
	if errors.As(err, &te) && te != nil {
		return ErrorResponse{Error: err.Error(), Kind: string(te.Kind), Context: te.Context}
	}
	return ErrorResponse{Error: err.Error()}
}

func WriteError(w http.ResponseWriter, err error) {
	WriteJSON(w, StatusFor(tradeerr.KindOf(err)), ErrorBody(err))
}
