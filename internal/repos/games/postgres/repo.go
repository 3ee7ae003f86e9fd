// Package games implements the game session repositories on Postgres.
// Hands, stake snapshots and drop lists are stored as JSONB.
package games

import (
	"encoding/json"
	"fmt"

	"github.com/callzzzz333/mm2-arena/internal/repos/games"
	"github.com/callzzzz333/mm2-arena/internal/services/outcome"
)

func marshalStake(stake []games.StakedItem) ([]byte, error) {
	if stake == nil {
		stake = []games.StakedItem{}
	}

	b, err := json.Marshal(stake)
	if err != nil {
		return nil, fmt.Errorf("marshal stake: %w", err)
	}

	return b, nil
}

func unmarshalStake(raw []byte, dst *[]games.StakedItem) error {
	if len(raw) == 0 {
		return nil
	}

	err := json.Unmarshal(raw, dst)
	if err != nil {
		return fmt.Errorf("unmarshal stake: %w", err)
	}

	return nil
}

func marshalHand(hand []outcome.Card) ([]byte, error) {
	if hand == nil {
		hand = []outcome.Card{}
	}

	b, err := json.Marshal(hand)
	if err != nil {
		return nil, fmt.Errorf("marshal hand: %w", err)
	}

	return b, nil
}

func unmarshalHand(raw []byte, dst *[]outcome.Card) error {
	if len(raw) == 0 {
		return nil
	}

	err := json.Unmarshal(raw, dst)
	if err != nil {
		return fmt.Errorf("unmarshal hand: %w", err)
	}

	return nil
}
