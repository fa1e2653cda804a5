package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/roomservice/pkg/domain"
	"github.com/aretw0/roomservice/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_TerminateResetsAndCancels(t *testing.T) {
	s := session.New("s1", domain.NodeGreeting)
	s.Order().SetGuest(domain.Guest{ID: "g1", Name: "Jane"}, "101")
	_, err := s.Order().AddItem(domain.MenuItem{ID: "m1", Name: "Coffee", Price: 450, Available: true}, 1, "")
	require.NoError(t, err)

	turnCtx, done := s.Bind(context.Background())
	defer done()

	s.Terminate(session.ReasonHangUp)
	s.Terminate("ignored")

	assert.True(t, s.Order().IsEmpty())
	assert.Equal(t, session.ReasonHangUp, s.EndReason())

	select {
	case <-turnCtx.Done():
	case <-time.After(time.Second):
		t.Fatal("bound context was not canceled")
	}

	var te *session.TerminatedError
	require.True(t, errors.As(context.Cause(s.Context()), &te))
	assert.Equal(t, "s1", te.SessionID)
}

func TestSession_History(t *testing.T) {
	s := session.New("s1", domain.NodeGreeting)
	s.MoveTo(domain.NodeRequestRoom)
	s.MoveTo(domain.NodeRequestRoom)
	s.MoveTo(domain.NodeInvalidRoom)

	assert.Equal(t, []string{domain.NodeGreeting, domain.NodeRequestRoom, domain.NodeInvalidRoom}, s.History())
}

func TestSession_StateRoundTrip(t *testing.T) {
	s := session.New("s1", domain.NodeGreeting)
	s.MoveTo(domain.NodeWelcomeGuest)
	s.SetValue(session.SlotGuestName, "Jane")
	s.SetValue(session.SlotCategory, "")

	restored := session.Restore(s.State())
	assert.Equal(t, s.NodeID(), restored.NodeID())
	assert.Equal(t, s.History(), restored.History())
	assert.Equal(t, map[string]string{session.SlotGuestName: "Jane"}, restored.Values())
}

func TestRegistry(t *testing.T) {
	r := session.NewRegistry(nil)
	a := session.New("a", domain.NodeGreeting)
	b := session.New("b", domain.NodeGreeting)

	require.NoError(t, r.Add(a))
	require.NoError(t, r.Add(b))
	assert.ErrorIs(t, r.Add(a), session.ErrDuplicateSession)
	assert.Equal(t, []string{"a", "b"}, r.IDs())

	removed, ok := r.Remove("a", session.ReasonDisconnect)
	require.True(t, ok)
	assert.True(t, removed.Terminated())

	_, ok = r.Remove("a", session.ReasonDisconnect)
	assert.False(t, ok)

	assert.True(t, r.Cancel("b", session.ReasonDisconnect))
	assert.True(t, b.Canceled())
	assert.False(t, b.Terminated())
	assert.Equal(t, 1, r.Len())
	assert.False(t, r.Cancel("a", session.ReasonDisconnect))

	assert.Equal(t, 1, r.TerminateAll(session.ReasonShutdown))
	assert.True(t, b.Terminated())
	assert.Equal(t, 0, r.Len())
}
