package domain

import "github.com/samber/lo"

// Membership is the ordered set of participant identifiers present in the room.
// Order is arrival order; the first occurrence of an identifier wins.
type Membership struct {
	members []string
}

func NewMembership() *Membership {
	return &Membership{}
}

// Reset replaces the whole set with an authoritative snapshot.
func (m *Membership) Reset(snapshot []string) {
	m.members = lo.Uniq(lo.Compact(snapshot))
}

// Add appends id and reports whether it was absent.
func (m *Membership) Add(id string) bool {
	if id == "" || lo.Contains(m.members, id) {
		return false
	}
	m.members = append(m.members, id)
	return true
}

// Remove drops id and reports whether it was present.
func (m *Membership) Remove(id string) bool {
	if !lo.Contains(m.members, id) {
		return false
	}
	m.members = lo.Without(m.members, id)
	return true
}

func (m *Membership) Contains(id string) bool {
	return lo.Contains(m.members, id)
}

func (m *Membership) Len() int {
	return len(m.members)
}

// Members returns a copy.
func (m *Membership) Members() []string {
	out := make([]string, len(m.members))
	copy(out, m.members)
	return out
}
