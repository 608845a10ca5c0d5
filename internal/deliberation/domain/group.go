package domain

import "time"

// GroupStatus describes the lifecycle state of a discussion group.
type GroupStatus int

const (
	// GroupStatusUnspecified represents an invalid group status value.
	GroupStatusUnspecified GroupStatus = iota
	// GroupStatusActive indicates the group is discussing.
	GroupStatusActive
	// GroupStatusMerged indicates the group was folded into another group.
	GroupStatusMerged
	// GroupStatusCompleted indicates the group finished its discussion.
	GroupStatusCompleted
)

// Label returns a stable label for a group status.
func (s GroupStatus) Label() string {
	switch s {
	case GroupStatusActive:
		return "active"
	case GroupStatusMerged:
		return "merged"
	case GroupStatusCompleted:
		return "completed"
	default:
		return "unspecified"
	}
}

// GroupStatusFromLabel resolves a stored label back to a status.
func GroupStatusFromLabel(label string) GroupStatus {
	switch label {
	case "active":
		return GroupStatusActive
	case "merged":
		return GroupStatusMerged
	case "completed":
		return GroupStatusCompleted
	default:
		return GroupStatusUnspecified
	}
}

// Group is one partition cell of a round's eligible participants. The leader
// is always a member of the group.
type Group struct {
	ID      string
	RoundID string
	// Number is the group's 1-based position within its round. Unique per
	// round, so concurrent partition writes collide instead of doubling up.
	Number   int
	LeaderID string
	Status   GroupStatus
	// MergedInto references the surviving group when Status is merged.
	MergedInto string
	CreatedAt  time.Time
}

// GroupMember maps one participant into one group within a round.
type GroupMember struct {
	GroupID       string
	ParticipantID string
}
