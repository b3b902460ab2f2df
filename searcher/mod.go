package searcher

// Level tags whose move a tree depth plays: Max nodes add popped cells to the
// searching player's score, Min nodes to the opponent's.
type Level int

const (
	Max Level = iota
	Min
)

func (l Level) Next() Level {
	if l == Max {
		return Min
	}
	return Max
}

func (l Level) String() string {
	if l == Max {
		return "max"
	}
	return "min"
}

// prefers reports whether candidate should replace current as the
// representative score of a node at this level.
func (l Level) prefers(candidate, current Score) bool {
	if l == Max {
		return candidate.Value() > current.Value()
	}
	return candidate.Value() < current.Value()
}

type Score struct {
	Own      int
	Opponent int
}

// Value is the heuristic the search optimises: own minus opponent score.
func (s Score) Value() int {
	return s.Own - s.Opponent
}

func (s Score) add(level Level, popped int) Score {
	if level == Max {
		s.Own += popped
	} else {
		s.Opponent += popped
	}
	return s
}
