package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionAppendAssignsMonotonicIDs(t *testing.T) {
	s := NewSession()

	first := s.Append("hello", AuthorAssistant, KindMessage, "")
	second := s.Append("hi", AuthorUser, KindMessage, "")
	third := s.Append("checking", AuthorAssistant, KindAnalysisStep, "classify")

	assert.Less(t, first.ID, second.ID)
	assert.Less(t, second.ID, third.ID)
	assert.Equal(t, "classify", third.Step)
	assert.False(t, third.Timestamp.IsZero())
}

func TestSessionTitleFromFirstUserMessage(t *testing.T) {
	s := NewSession()
	s.Append("Xin chào!", AuthorAssistant, KindMessage, "")
	assert.Equal(t, "New conversation", s.Title())

	s.Append("Tôi muốn ăn món cay", AuthorUser, KindMessage, "")
	assert.Equal(t, "Tôi muốn ăn món cay", s.Title())

	// Later user messages never retitle.
	s.Append("còn món ngọt thì sao", AuthorUser, KindMessage, "")
	assert.Equal(t, "Tôi muốn ăn món cay", s.Title())
}

func TestSessionTitleTruncatesOnRuneBoundary(t *testing.T) {
	s := NewSession()
	long := strings.Repeat("ă", maxTitleLength+20)
	s.Append(long, AuthorUser, KindMessage, "")

	title := s.Title()
	assert.True(t, strings.HasSuffix(title, "..."))
	kept := []rune(strings.TrimSuffix(title, "..."))
	assert.Len(t, kept, maxTitleLength)
	for _, r := range kept {
		assert.Equal(t, 'ă', r)
	}
}

func TestSessionIdentityFieldsSetOnce(t *testing.T) {
	s := NewSession()

	s.SetSessionID("sess-1")
	s.SetSessionID("sess-2")
	assert.Equal(t, "sess-1", s.SessionID())

	s.SetChatID("chat-1")
	s.SetChatID("chat-2")
	assert.Equal(t, "chat-1", s.ChatID())
}

func TestSessionPreferenceSticky(t *testing.T) {
	s := NewSession()
	assert.False(t, s.Preference().Decided())

	s.SetPreference(true)
	require.True(t, s.Preference().Decided())
	assert.True(t, s.Preference().UseAmbient())

	// Re-deciding overwrites; it never un-decides.
	s.SetPreference(false)
	require.True(t, s.Preference().Decided())
	assert.False(t, s.Preference().UseAmbient())
}

func TestSessionTurnsReturnsCopy(t *testing.T) {
	s := NewSession()
	s.Append("one", AuthorUser, KindMessage, "")

	turns := s.Turns()
	turns[0].Text = "mutated"

	assert.Equal(t, "one", s.Turns()[0].Text)
}

func TestSessionSnapshotCarriesIdentity(t *testing.T) {
	s := NewSession()
	s.Append("Tôi muốn ăn món cay", AuthorUser, KindMessage, "")
	s.SetSessionID("sess-9")
	s.SetChatID("chat-9")

	snap := s.Snapshot()
	assert.Equal(t, "chat-9", snap.ChatID)
	assert.Equal(t, "sess-9", snap.SessionID)
	assert.Equal(t, "Tôi muốn ăn món cay", snap.Title)
	require.Len(t, snap.Turns, 1)

	// Snapshot turns detach from the live transcript.
	s.Append("more", AuthorUser, KindMessage, "")
	assert.Len(t, snap.Turns, 1)
}

func TestRestoreContinuesTurnNumbering(t *testing.T) {
	original := NewSession()
	original.Append("a", AuthorUser, KindMessage, "")
	original.Append("b", AuthorAssistant, KindMessage, "")

	restored := Restore("chat-3", "a", original.Turns(), "sess-3")
	assert.Equal(t, "chat-3", restored.ChatID())
	assert.Equal(t, "sess-3", restored.SessionID())
	assert.False(t, restored.Preference().Decided())
	assert.NotEqual(t, original.LocalID(), restored.LocalID())

	next := restored.Append("c", AuthorUser, KindMessage, "")
	for _, turn := range original.Turns() {
		assert.Less(t, turn.ID, next.ID)
	}
}
