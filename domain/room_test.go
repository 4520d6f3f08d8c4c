package domain

import (
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func TestSessionIdentity_Trims(t *testing.T) {
	req := require.New(t)

	id := NewSessionIdentity("  abc123 ", " alice ")

	req.Equal(RoomID("abc123"), id.RoomID)
	req.Equal("alice", id.ParticipantID)
	req.False(id.IsZero())
	req.True(NewSessionIdentity("room", "  ").IsZero())
}

func TestConnectionState_Status(t *testing.T) {
	req := require.New(t)

	req.Equal(StatusConnecting, StateConnecting.Status())
	req.Equal(StatusConnected, StateOpen.Status())
	req.Equal(StatusDisconnected, StateClosed.Status())
	req.Equal(StatusDisconnected, StateClosing.Status())
	req.Equal(StatusDisconnected, StateIdle.Status())
	req.Equal("closing", StateClosing.String())
}

func TestMembership_SnapshotAndEvents(t *testing.T) {
	req := require.New(t)
	m := NewMembership()

	// Given a snapshot with a duplicate
	m.Reset([]string{"alice", "bob", "alice", ""})

	// Then the first occurrence wins and order is kept
	req.Equal([]string{"alice", "bob"}, m.Members())

	// When the same user joins twice
	req.True(m.Add("carol"))
	req.False(m.Add("carol"))

	// Then it is stored once
	req.Equal(3, m.Len())

	// When someone absent leaves
	req.False(m.Remove("dave"))
	req.True(m.Remove("alice"))
	req.Equal([]string{"bob", "carol"}, m.Members())

	// Then a new snapshot replaces everything
	m.Reset([]string{"zed"})
	req.Equal([]string{"zed"}, m.Members())
}

func TestMembership_MembersIsACopy(t *testing.T) {
	req := require.New(t)
	m := NewMembership()
	m.Reset([]string{"alice"})

	members := m.Members()
	members[0] = "mallory"

	req.True(m.Contains("alice"))
	req.False(m.Contains("mallory"))
}

func TestTranscript_Grouping(t *testing.T) {
	req := require.New(t)
	tr := NewTranscript()
	now := time.Now()

	// Given A, A, B, A
	g1, created := tr.Append("alice", false, "one", now)
	req.True(created)
	g2, created := tr.Append("alice", false, "two", now.Add(time.Second))
	req.False(created)
	_, created = tr.Append("bob", false, "three", now.Add(2*time.Second))
	req.True(created)
	_, created = tr.Append("alice", false, "four", now.Add(3*time.Second))
	req.True(created)

	// Then three groups of 2, 1, 1
	groups := tr.Groups()
	req.Len(groups, 3)
	req.Equal([]string{"one", "two"}, groups[0].Bubbles)
	req.Len(groups[1].Bubbles, 1)
	req.Len(groups[2].Bubbles, 1)
	req.Equal(g1.ID, g2.ID)
	req.Equal(now.Add(time.Second), groups[0].LastTimestamp)
}

func TestTranscript_SelfAndOtherNeverShareAGroup(t *testing.T) {
	req := require.New(t)
	tr := NewTranscript()

	tr.Append("alice", true, "mine", time.Now())
	_, created := tr.Append("alice", false, "echo from elsewhere", time.Now())

	req.True(created)
	req.Equal(2, tr.Len())
}
