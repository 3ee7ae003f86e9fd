package api

import (
	"net/http"
)

type raffleExchangeRequest struct {
	Items []stakeLine `json:"items"`
}

// ExchangeRaffleHandler handles POST /raffles/{raffleId}/exchange.
func (h *HandlerProvider) ExchangeRaffleHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := authUserID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	raffleID, err := parseGameID(r, "raffleId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req raffleExchangeRequest

	err = decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.svc.Raffles.Exchange(r.Context(), userID, raffleID, toLines(req.Items))
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"raffleId":   raffleID.String(),
		"tickets":    res.Tickets,
		"totalValue": formatCents(res.TotalValue),
	})
}

// GetRaffleHandler handles GET /raffles/{raffleId}.
func (h *HandlerProvider) GetRaffleHandler(w http.ResponseWriter, r *http.Request) {
	raffleID, err := parseGameID(r, "raffleId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	raffle, err := h.svc.Raffles.Get(r.Context(), raffleID)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"raffleId":     raffle.ID.String(),
		"name":         raffle.Name,
		"status":       raffle.Status,
		"ticketPrice":  formatCents(raffle.TicketPrice),
		"minItemValue": formatCents(raffle.MinItemValue),
	})
}
