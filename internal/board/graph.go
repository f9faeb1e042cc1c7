package board

// Graph adapts the game to the solver's view of an implicit state graph
// addressed by raw ids. It is stateless and safe for concurrent use.
type Graph struct {
	roots []uint64
}

// NewGraph returns a graph rooted at the given states. Reachability during
// solving is defined as reachable from at least one root.
func NewGraph(roots ...State) *Graph {
	ids := make([]uint64, len(roots))
	for i, r := range roots {
		ids[i] = r.ID()
	}
	return &Graph{roots: ids}
}

// FullGame returns the graph rooted at both initial positions (either
// player moving first), covering the complete reachable state space.
func FullGame() *Graph {
	return NewGraph(New(PlayerTop), New(PlayerLeft))
}

// IndexSpace returns the size of the raw id space.
func (g *Graph) IndexSpace() uint64 {
	return IDSpace
}

// Roots returns the root ids for reachability enumeration.
func (g *Graph) Roots() []uint64 {
	return g.roots
}

// Mover returns the side to move for an id. The side to move is the lowest
// id digit, so this never needs a full decode.
func (g *Graph) Mover(id uint64) int {
	return int(id & 1)
}

// Terminal reports whether the id is a finished game.
func (g *Graph) Terminal(id uint64) (bool, error) {
	s, err := FromID(id)
	if err != nil {
		return false, err
	}
	return s.Ended(), nil
}

// Moves returns the ids of all forward successors.
func (g *Graph) Moves(id uint64) ([]uint64, error) {
	s, err := FromID(id)
	if err != nil {
		return nil, err
	}
	moves := s.Moves()
	ids := make([]uint64, len(moves))
	for i, m := range moves {
		ids[i] = m.Next.ID()
	}
	return ids, nil
}

// Predecessors returns the ids of all states one move before id.
func (g *Graph) Predecessors(id uint64) ([]uint64, error) {
	s, err := FromID(id)
	if err != nil {
		return nil, err
	}
	preds := s.Predecessors()
	ids := make([]uint64, len(preds))
	for i, p := range preds {
		ids[i] = p.ID()
	}
	return ids, nil
}
