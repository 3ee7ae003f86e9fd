// Package stakes moves item bundles between inventories and game sessions.
// A stake is always snapshotted with its value at capture time; payouts and
// refunds work off the snapshot so later price moves cannot change what a
// session owes.
package stakes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/callzzzz333/mm2-arena/internal/repos/games"
	"github.com/callzzzz333/mm2-arena/internal/repos/inventory"
	"github.com/callzzzz333/mm2-arena/internal/services/pricing"
)

var ErrEmptyStake = errors.New("stake has no items")

// Line is one requested stake line as submitted by a client. Only the item
// id and quantity are trusted; names and values come from the catalog.
type Line struct {
	ItemID   int64 `json:"item_id"`
	Quantity int   `json:"quantity"`
}

type Mover struct {
	inv    inventory.Inventory
	prices *pricing.Cache
}

func NewMover(inv inventory.Inventory, prices *pricing.Cache) *Mover {
	return &Mover{inv: inv, prices: prices}
}

// Price validates the requested lines and returns the priced snapshot.
// It performs no writes, so callers can value a stake before placing the
// claiming update of their settlement path.
func (m *Mover) Price(ctx context.Context, lines []Line) ([]games.StakedItem, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyStake
	}

	stake := make([]games.StakedItem, 0, len(lines))

	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("item %d: quantity must be positive", l.ItemID)
		}

		it, err := m.prices.Item(ctx, l.ItemID)
		if err != nil {
			return nil, fmt.Errorf("price item %d: %w", l.ItemID, err)
		}

		stake = append(stake, games.StakedItem{
			ItemID:   it.ID,
			Name:     it.Name,
			Value:    it.Value,
			Quantity: l.Quantity,
		})
	}

	return stake, nil
}

// Covered checks the live inventory against a priced snapshot without
// writing anything. Settlement paths run it before cheaper preconditions
// like stake tolerance, so an unaffordable stake surfaces as the
// shortfall it is. The conditional decrement in Debit stays the
// authoritative check.
func (m *Mover) Covered(ctx context.Context, userID int64, stake []games.StakedItem) error {
	for _, s := range stake {
		have, err := m.inv.Quantity(ctx, userID, s.ItemID)
		if err != nil {
			return fmt.Errorf("check item %d: %w", s.ItemID, err)
		}

		if have < s.Quantity {
			return fmt.Errorf("item %d: %w", s.ItemID, inventory.ErrInsufficientItems)
		}
	}

	return nil
}

// Debit removes a priced snapshot from the user's inventory. The
// conditional decrement inside Remove is the live quantity check: a stale
// client-declared stake fails here with inventory.ErrInsufficientItems and
// the surrounding transaction rolls back.
func (m *Mover) Debit(tx *sql.Tx, userID int64, stake []games.StakedItem) error {
	for _, s := range stake {
		err := m.inv.Remove(tx, userID, s.ItemID, s.Quantity)
		if err != nil {
			return fmt.Errorf("take item %d: %w", s.ItemID, err)
		}
	}

	return nil
}

// Take prices and debits in one step, for paths with no session to claim.
func (m *Mover) Take(ctx context.Context, tx *sql.Tx, userID int64, lines []Line) ([]games.StakedItem, error) {
	stake, err := m.Price(ctx, lines)
	if err != nil {
		return nil, err
	}

	err = m.Debit(tx, userID, stake)
	if err != nil {
		return nil, err
	}

	return stake, nil
}

// Award moves one or more stake snapshots into the winner's inventory.
func (m *Mover) Award(tx *sql.Tx, userID int64, snapshots ...[]games.StakedItem) error {
	for _, stake := range snapshots {
		for _, s := range stake {
			err := m.inv.Add(tx, userID, s.ItemID, s.Quantity)
			if err != nil {
				return fmt.Errorf("award item %d: %w", s.ItemID, err)
			}
		}
	}

	return nil
}

// Return is Award under its refund name, kept separate so call sites read
// as what they do.
func (m *Mover) Return(tx *sql.Tx, userID int64, stake []games.StakedItem) error {
	return m.Award(tx, userID, stake)
}
