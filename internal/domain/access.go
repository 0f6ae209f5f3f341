package domain

import "fmt"

// AccessLevel is the strength of a grant. Every level confers read visibility;
// write and admin are supersets of read for retrieval purposes.
type AccessLevel string

const (
	AccessRead  AccessLevel = "read"
	AccessWrite AccessLevel = "write"
	AccessAdmin AccessLevel = "admin"
)

var levelRank = map[AccessLevel]int{
	AccessRead:  1,
	AccessWrite: 2,
	AccessAdmin: 3,
}

// AtLeast reports whether the level confers at least the given level.
// Unknown levels rank below everything.
func (l AccessLevel) AtLeast(min AccessLevel) bool {
	return levelRank[l] >= levelRank[min]
}

// ParseAccessLevel validates an access level string.
func ParseAccessLevel(s string) (AccessLevel, error) {
	switch AccessLevel(s) {
	case AccessRead, AccessWrite, AccessAdmin:
		return AccessLevel(s), nil
	default:
		return "", fmt.Errorf("unknown access level %q: %w", s, ErrInvalidGrant)
	}
}

// Grant links an identity to a partition with an access level.
// At most one grant per (identity, partition) pair; re-granting overwrites.
type Grant struct {
	Identity    string
	PartitionID string
	Level       AccessLevel
}

// AuthorizedSet is the resolved visibility of an identity: either every
// partition (admin) or an explicit, possibly empty, subset. The zero value is
// the empty subset — fail closed.
type AuthorizedSet struct {
	all        bool
	partitions map[string]struct{}
}

// AllPartitions marks an identity as seeing every partition.
func AllPartitions() AuthorizedSet {
	return AuthorizedSet{all: true}
}

// PartitionSubset builds an explicit subset from partition ids.
func PartitionSubset(ids ...string) AuthorizedSet {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return AuthorizedSet{partitions: set}
}

// All reports whether the set covers every partition.
func (s AuthorizedSet) All() bool { return s.all }

// Contains reports whether the given partition is visible. An unassigned
// partition (empty id) is visible only to admins.
func (s AuthorizedSet) Contains(partitionID string) bool {
	if s.all {
		return true
	}
	if partitionID == "" {
		return false
	}
	_, ok := s.partitions[partitionID]
	return ok
}

// Empty reports whether nothing is visible.
func (s AuthorizedSet) Empty() bool {
	return !s.all && len(s.partitions) == 0
}

// Partitions returns the explicit subset members. Nil for All.
func (s AuthorizedSet) Partitions() []string {
	if s.all {
		return nil
	}
	out := make([]string, 0, len(s.partitions))
	for id := range s.partitions {
		out = append(out, id)
	}
	return out
}
