package board

// Predecessor generation inverts the forward move rule locally instead of
// storing edges. For a state s reached by the opponent moving piece k to
// cell f, the bounces of that move (if any) happened on consecutive cells
// ending at f-1: the first bounce at cell b retargets the mover to b+1, so
// the move only continues while it keeps bouncing. A candidate predecessor
// is therefore fully determined by (k, origin o, first bounce cell c0):
// piece k goes back to o, and for every run cell the crossed piece of the
// side to move at s is restored from its bounce target (0 or 6) to the
// crossing cell of the mover's lane (k+1 outbound, 11-k on the return leg).
// Candidates are validated by replaying the forward move, which discards
// every false positive, so the enumeration only has to be a superset.

// Predecessors returns all states from which s is reachable in one move.
func (s State) Predecessors() []State {
	mover := 1 - s.Player()
	opp := s.Player()
	var preds []State

	for k := 0; k < NumPieces; k++ {
		f := s.PiecePosition(mover, k)
		if f == 0 {
			continue
		}
		for o := 0; o < f; o++ {
			if !ValidPosition(mover, k, o) {
				continue
			}
			base := s.switchPlayer().withPiecePosition(mover, k, o)
			for c0 := o + 1; c0 <= f; c0++ {
				cand, ok := base.restoreBounceRun(opp, k, c0, f)
				if !ok || cand.Ended() {
					continue
				}
				if next, moved := cand.Apply(k); moved && next.id == s.id {
					preds = append(preds, cand)
				}
			}
		}
	}
	return preds
}

// restoreBounceRun undoes the bounces of run cells [c0, f) for the mover's
// piece k. Returns false when some run cell cannot have bounced anything
// (turn-around cell, or the crossed piece is not sitting on a bounce
// target, or the restored cell is unreachable for that piece).
func (s State) restoreBounceRun(opp, k, c0, f int) (State, bool) {
	cand := s
	for c := c0; c < f; c++ {
		if c%TurnAround == 0 {
			return State{}, false
		}
		var j int
		if c < TurnAround {
			j = c - 1
		} else {
			j = 11 - c
		}
		var prior int
		switch cand.PiecePosition(opp, j) {
		case 0:
			prior = k + 1
		case TurnAround:
			prior = 11 - k
		default:
			return State{}, false
		}
		if !ValidPosition(opp, j, prior) {
			return State{}, false
		}
		cand = cand.withPiecePosition(opp, j, prior)
	}
	return cand, true
}
