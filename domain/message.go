// Package domain contains core concepts of the chat client.
// This file defines message groups and the transcript they form.
package domain

import (
	"github.com/google/uuid"
	"time"
)

// MessageGroup is a run of consecutive messages from one sender,
// rendered as several bubbles under a single header.
type MessageGroup struct {
	ID            uuid.UUID
	Sender        string
	IsSelf        bool
	Bubbles       []string
	LastTimestamp time.Time
}

func (g MessageGroup) clone() MessageGroup {
	g.Bubbles = append([]string(nil), g.Bubbles...)
	return g
}

// Transcript is the append-only list of groups for the session.
type Transcript struct {
	groups []MessageGroup
}

func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append extends the trailing group when sender and side both match,
// otherwise starts a new group. It returns a copy of the affected group
// and whether it was created.
func (t *Transcript) Append(sender string, isSelf bool, text string, at time.Time) (MessageGroup, bool) {
	if n := len(t.groups); n > 0 {
		last := &t.groups[n-1]
		if last.Sender == sender && last.IsSelf == isSelf {
			last.Bubbles = append(last.Bubbles, text)
			last.LastTimestamp = at
			return last.clone(), false
		}
	}

	group := MessageGroup{
		ID:            uuid.New(),
		Sender:        sender,
		IsSelf:        isSelf,
		Bubbles:       []string{text},
		LastTimestamp: at,
	}
	t.groups = append(t.groups, group)
	return group.clone(), true
}

func (t *Transcript) Len() int {
	return len(t.groups)
}

// Groups returns a deep copy.
func (t *Transcript) Groups() []MessageGroup {
	out := make([]MessageGroup, len(t.groups))
	for i, g := range t.groups {
		out[i] = g.clone()
	}
	return out
}
