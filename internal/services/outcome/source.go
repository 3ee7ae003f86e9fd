// Package outcome produces game results. Every draw goes through a Source
// so settlement code can be driven deterministically in tests while
// production uses crypto/rand. Client-supplied results are never accepted
// anywhere in this package.
package outcome

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Source yields uniform draws in [0, n). Implementations must be safe for
// concurrent use.
type Source interface {
	Intn(n int) int
}

type cryptoSource struct{}

// Crypto returns the production Source, backed by crypto/rand. Draws are
// not predictable or replayable by a client.
func Crypto() Source {
	return cryptoSource{}
}

func (cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic(fmt.Sprintf("outcome: Intn with non-positive bound %d", n))
	}

	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// No usable entropy means no fair game; refusing to continue is
		// the only safe behavior.
		panic(fmt.Sprintf("outcome: crypto rand failed: %v", err))
	}

	return int(v.Int64())
}
