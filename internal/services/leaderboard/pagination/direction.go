package pagination

// Direction classifies a page request relative to recent navigation, so the
// planner can pick the cheaper scan strategy.
type Direction int

const (
	// DirectionForward moves toward later pages; also the cold-context default.
	DirectionForward Direction = iota
	// DirectionBackward moves toward earlier pages.
	DirectionBackward
	// DirectionJumpToStart targets page 1.
	DirectionJumpToStart
	// DirectionJumpToEnd targets the final page.
	DirectionJumpToEnd
)

// String returns the direction name for logs and span attributes.
func (d Direction) String() string {
	switch d {
	case DirectionBackward:
		return "backward"
	case DirectionJumpToStart:
		return "jump_to_start"
	case DirectionJumpToEnd:
		return "jump_to_end"
	default:
		return "forward"
	}
}

// DetectDirection classifies a page request. lastAccessed is 0 when no prior
// access is recorded for the context. Rules apply in order: the first and
// last pages win over history, an unknown history defaults to forward, and a
// repeated page counts as forward (no movement).
func DetectDirection(currentPage, lastAccessed, totalPages int) Direction {
	switch {
	case currentPage == 1:
		return DirectionJumpToStart
	case currentPage == totalPages:
		return DirectionJumpToEnd
	case lastAccessed == 0:
		return DirectionForward
	case currentPage > lastAccessed:
		return DirectionForward
	case currentPage < lastAccessed:
		return DirectionBackward
	default:
		return DirectionForward
	}
}
