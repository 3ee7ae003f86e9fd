package api

import (
	"net/http"
)

// GetBalanceHandler handles GET /user/{userId}/balance.
func (h *HandlerProvider) GetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	acc, err := h.svc.Ledger.Account(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"userId":       acc.ID,
		"balance":      formatCents(acc.Balance),
		"totalWagered": formatCents(acc.TotalWagered),
		"totalProfits": formatCents(acc.TotalProfits),
		"level":        acc.Level,
	})
}

// GetInventoryHandler handles GET /user/{userId}/inventory.
func (h *HandlerProvider) GetInventoryHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.svc.Inventory.List(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	type invView struct {
		ItemID   int64  `json:"itemId"`
		Name     string `json:"name"`
		Rarity   string `json:"rarity"`
		Value    string `json:"value"`
		Quantity int    `json:"quantity"`
	}

	out := make([]invView, 0, len(entries))

	for _, e := range entries {
		it, err := h.svc.Prices.Item(r.Context(), e.ItemID)
		if err != nil {
			respondError(w, err)
			return
		}

		out = append(out, invView{
			ItemID:   e.ItemID,
			Name:     it.Name,
			Rarity:   it.Rarity,
			Value:    formatCents(it.Value),
			Quantity: e.Quantity,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"userId": userID, "items": out})
}

type depositRequest struct {
	Amount    string `json:"amount"`
	DepositID string `json:"depositId"`
}

// DepositHandler handles POST /user/{userId}/deposit. The deposit id is
// the idempotency key: a replay returns 409 without a second credit.
func (h *HandlerProvider) DepositHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req depositRequest

	err = decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := parseAmountCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.DepositID == "" {
		writeError(w, http.StatusBadRequest, "depositId required")
		return
	}

	err = h.svc.Ledger.Ensure(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	err = h.svc.Ledger.Deposit(r.Context(), userID, amount, "deposit:"+req.DepositID)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetHistoryHandler handles GET /user/{userId}/history.
func (h *HandlerProvider) GetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.svc.Ledger.History(r.Context(), userID, 100)
	if err != nil {
		respondError(w, err)
		return
	}

	type entryView struct {
		Amount      string `json:"amount"`
		Type        string `json:"type"`
		GameType    string `json:"gameType,omitempty"`
		GameID      string `json:"gameId,omitempty"`
		Description string `json:"description"`
		CreatedAt   string `json:"createdAt"`
	}

	out := make([]entryView, 0, len(entries))

	for _, e := range entries {
		v := entryView{
			Amount:      formatCents(e.Amount),
			Type:        e.Type,
			GameType:    e.GameType,
			Description: e.Description,
			CreatedAt:   e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
		if e.GameID != nil {
			v.GameID = e.GameID.String()
		}

		out = append(out, v)
	}

	writeJSON(w, http.StatusOK, map[string]any{"userId": userID, "entries": out})
}
