// Package api exposes the settlement services over HTTP. The caller's
// identity arrives in the X-User-Id header; identity mapping itself is
// the upstream gateway's job.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/callzzzz333/mm2-arena/internal/repos/accounts"
	"github.com/callzzzz333/mm2-arena/internal/repos/games"
	"github.com/callzzzz333/mm2-arena/internal/repos/inventory"
	"github.com/callzzzz333/mm2-arena/internal/repos/items"
	ledgerrepo "github.com/callzzzz333/mm2-arena/internal/repos/ledger"
	"github.com/callzzzz333/mm2-arena/internal/services/battles"
	"github.com/callzzzz333/mm2-arena/internal/services/blackjack"
	"github.com/callzzzz333/mm2-arena/internal/services/chamber"
	"github.com/callzzzz333/mm2-arena/internal/services/coinflip"
	"github.com/callzzzz333/mm2-arena/internal/services/crash"
	"github.com/callzzzz333/mm2-arena/internal/services/giveaways"
	ledgersvc "github.com/callzzzz333/mm2-arena/internal/services/ledger"
	"github.com/callzzzz333/mm2-arena/internal/services/pricing"
	"github.com/callzzzz333/mm2-arena/internal/services/raffles"
	"github.com/callzzzz333/mm2-arena/internal/services/roulette"
	"github.com/callzzzz333/mm2-arena/internal/services/stakes"
)

// Services bundles everything the handlers need.
type Services struct {
	Ledger    *ledgersvc.Service
	Inventory inventory.Inventory
	Prices    *pricing.Cache
	Coinflip  *coinflip.Service
	Roulette  *roulette.Service
	Crash     *crash.Service
	Blackjack *blackjack.Service
	Battles   *battles.Service
	Chamber   *chamber.Service
	Giveaways *giveaways.Service
	Raffles   *raffles.Service
}

// HandlerProvider wraps the services and exposes HTTP handlers.
type HandlerProvider struct {
	svc Services
}

// NewHandler returns a new handler provider.
func NewHandler(svc Services) *HandlerProvider {
	return &HandlerProvider{svc: svc}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// authUserID reads the authenticated user from the X-User-Id header.
func authUserID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if raw == "" {
		return 0, fmt.Errorf("missing X-User-Id")
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid X-User-Id")
	}

	return id, nil
}

func parseUserIDFromPath(r *http.Request) (int64, error) {
	idStr := chi.URLParam(r, "userId")
	if idStr == "" {
		return 0, fmt.Errorf("missing userId")
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid userId")
	}

	return id, nil
}

func parseGameID(r *http.Request, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s", param)
	}

	return id, nil
}

// decodeBody reads a capped JSON body into dst, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB cap
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty body")
		}

		return fmt.Errorf("invalid JSON")
	}

	return nil
}

// parseAmountCents converts a decimal string with up to 2 fractional digits into cents.
func parseAmountCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("amount required")
	}
	neg := false
	if s[0] == '+' {
		s = s[1:]
	}
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, fmt.Errorf("invalid amount")
	}
	intPart := parts[0]
	frac := "00"
	if len(parts) == 2 {
		if len(parts[1]) > 2 {
			return 0, fmt.Errorf("amount supports up to 2 decimals")
		}
		frac = parts[1] + strings.Repeat("0", 2-len(parts[1]))
	}
	ip, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount integer")
	}
	fp, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount fractional")
	}
	total := ip*100 + fp
	if neg {
		total = -total
	}
	if total <= 0 {
		return 0, fmt.Errorf("amount must be > 0")
	}
	return total, nil
}

// formatCents renders cents as a 2-decimal string.
func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}

	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

type stakeLine struct {
	ItemID   int64 `json:"itemId"`
	Quantity int   `json:"quantity"`
}

func toLines(in []stakeLine) []stakes.Line {
	out := make([]stakes.Line, len(in))
	for i, l := range in {
		out[i] = stakes.Line{ItemID: l.ItemID, Quantity: l.Quantity}
	}

	return out
}

type stakedItemView struct {
	ItemID   int64  `json:"itemId"`
	Name     string `json:"name"`
	Value    string `json:"value"`
	Quantity int    `json:"quantity"`
}

func toStakeView(stake []games.StakedItem) []stakedItemView {
	out := make([]stakedItemView, len(stake))
	for i, s := range stake {
		out[i] = stakedItemView{
			ItemID:   s.ItemID,
			Name:     s.Name,
			Value:    formatCents(s.Value),
			Quantity: s.Quantity,
		}
	}

	return out
}

// respondError maps domain sentinels onto HTTP statuses. Anything
// unmapped is a 500 with the detail kept out of the response.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, games.ErrGameNotFound),
		errors.Is(err, accounts.ErrAccountNotFound),
		errors.Is(err, items.ErrItemNotFound):
		writeError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, games.ErrStateConflict),
		errors.Is(err, games.ErrAlreadyEntered),
		errors.Is(err, ledgerrepo.ErrDuplicateEntry),
		errors.Is(err, accounts.ErrInsufficientFunds),
		errors.Is(err, inventory.ErrInsufficientItems),
		errors.Is(err, coinflip.ErrNotJoinable),
		errors.Is(err, roulette.ErrAlreadySpun),
		errors.Is(err, roulette.ErrNoBetsPlaced),
		errors.Is(err, crash.ErrNoCashout),
		errors.Is(err, crash.ErrNotResolvable),
		errors.Is(err, battles.ErrRoundPlayed):
		writeError(w, http.StatusConflict, err.Error())

	case errors.Is(err, coinflip.ErrSelfJoin),
		errors.Is(err, giveaways.ErrOwnGiveaway),
		errors.Is(err, blackjack.ErrNotYourTurn),
		errors.Is(err, chamber.ErrNotYours):
		writeError(w, http.StatusForbidden, err.Error())

	case errors.Is(err, coinflip.ErrBadSide),
		errors.Is(err, coinflip.ErrOutOfTolerance),
		errors.Is(err, roulette.ErrBadColor),
		errors.Is(err, roulette.ErrBadAmount),
		errors.Is(err, roulette.ErrBettingOver),
		errors.Is(err, crash.ErrBadAmount),
		errors.Is(err, crash.ErrBadMultiplier),
		errors.Is(err, crash.ErrBettingOver),
		errors.Is(err, crash.ErrNotFlying),
		errors.Is(err, blackjack.ErrBadAmount),
		errors.Is(err, blackjack.ErrNotJoinable),
		errors.Is(err, blackjack.ErrAlreadySeated),
		errors.Is(err, blackjack.ErrNoPlayers),
		errors.Is(err, blackjack.ErrNotInProgress),
		errors.Is(err, battles.ErrBadConfig),
		errors.Is(err, battles.ErrBadAmount),
		errors.Is(err, battles.ErrNotJoinable),
		errors.Is(err, battles.ErrNotActive),
		errors.Is(err, chamber.ErrBadAmount),
		errors.Is(err, chamber.ErrNotPlaying),
		errors.Is(err, giveaways.ErrBadAmount),
		errors.Is(err, giveaways.ErrBadDeadline),
		errors.Is(err, giveaways.ErrNotOpen),
		errors.Is(err, raffles.ErrNotOpen),
		errors.Is(err, raffles.ErrItemBelowMin),
		errors.Is(err, raffles.ErrTooLittle),
		errors.Is(err, stakes.ErrEmptyStake):
		writeError(w, http.StatusBadRequest, err.Error())

	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
