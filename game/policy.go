// game/policy.go
package game

import (
	"math/rand"
)

// Policy 选择电脑玩家的落子列
// Implementations must only return columns that are currently legal; callers
// must not invoke ChooseMove on a full board.
type Policy interface {
	ChooseMove(b *Board) int
}

// RandomPolicy picks uniformly among the non-full columns.
type RandomPolicy struct {
	rng *rand.Rand
}

// NewRandomPolicy creates a policy seeded from the given source. A nil source
// falls back to the shared global generator.
func NewRandomPolicy(src rand.Source) *RandomPolicy {
	p := &RandomPolicy{}
	if src != nil {
		p.rng = rand.New(src)
	}
	return p
}

func (p *RandomPolicy) ChooseMove(b *Board) int {
	moves := b.LegalMoves()
	if p.rng != nil {
		return moves[p.rng.Intn(len(moves))]
	}
	return moves[rand.Intn(len(moves))]
}
