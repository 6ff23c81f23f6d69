package internal

import "slices"

// SortParticipants orders a scoreboard for display: score descending, ties
// broken by earliest join so the ordering is deterministic.
func SortParticipants(participants []Participant) {
	slices.SortFunc(participants, func(a, b Participant) int {
		if a.Score != b.Score {
			return b.Score - a.Score
		}
		switch {
		case a.JoinedAt.Before(b.JoinedAt):
			return -1
		case b.JoinedAt.Before(a.JoinedAt):
			return 1
		default:
			return 0
		}
	})
}

// EarliestJoiner returns the participant that joined first, or nil for an
// empty slice. Used for host reassignment when the host leaves.
func EarliestJoiner(participants []Participant) *Participant {
	var earliest *Participant
	for i := range participants {
		p := &participants[i]
		if earliest == nil || p.JoinedAt.Before(earliest.JoinedAt) {
			earliest = p
		}
	}
	return earliest
}
