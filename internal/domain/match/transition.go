package match

var allowedTransitions = map[Status]map[Status]struct{}{
	StatusScheduled: {StatusInPlay: {}, StatusPaused: {}, StatusFinished: {}},
	StatusInPlay:    {StatusPaused: {}, StatusFinished: {}},
	StatusPaused:    {StatusInPlay: {}, StatusFinished: {}},
}

// CanTransition reports whether automatic reconciliation may move a match
// from one status to another. FINISHED has no outgoing edges here; leaving it
// is handled separately as an auto-correction.
func CanTransition(from, to Status) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}
