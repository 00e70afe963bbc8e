package auth

import (
	"net/http"
	"strings"

	"perpdesk/internal/httputil"
)

type Handler struct {
	svc    *Service
	signer string
}

// NewHandler serves identity endpoints. signer is the address the server
// can place orders for.
func NewHandler(svc *Service, signer string) *Handler {
	return &Handler{svc: svc, signer: signer}
}

type meResponse struct {
	Account  string `json:"account"`
	CanTrade bool   `json:"can_trade"`
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request, userID string) {
	httputil.WriteJSON(w, http.StatusOK, meResponse{
		Account:  userID,
		CanTrade: strings.EqualFold(userID, h.signer),
	})
}
