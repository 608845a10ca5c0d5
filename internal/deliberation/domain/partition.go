package domain

import "math/rand/v2"

// targetGroupSize drives the partition count: groups hold 2-3 members.
const targetGroupSize = 3

// GroupAssignment is one computed partition cell before persistence.
type GroupAssignment struct {
	MemberIDs []string
	LeaderID  string
}

// PartitionParticipants distributes the given participants into
// ceil(n/3) groups round-robin and picks a leader uniformly at random from
// each group. Every participant lands in exactly one group and no group is
// empty. The rng is injected so callers control reproducibility; a nil rng
// panics by design of math/rand/v2, so callers must always provide one.
//
// An empty participant list yields no assignments.
func PartitionParticipants(participantIDs []string, rng *rand.Rand) []GroupAssignment {
	n := len(participantIDs)
	if n == 0 {
		return nil
	}

	groupCount := (n + targetGroupSize - 1) / targetGroupSize
	assignments := make([]GroupAssignment, groupCount)
	for i, participantID := range participantIDs {
		cell := &assignments[i%groupCount]
		cell.MemberIDs = append(cell.MemberIDs, participantID)
	}

	for i := range assignments {
		members := assignments[i].MemberIDs
		assignments[i].LeaderID = members[rng.IntN(len(members))]
	}
	return assignments
}
