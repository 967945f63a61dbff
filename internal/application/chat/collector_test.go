package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/huynhbao103/dietchat/internal/domain/chat"
)

func methodPrompt() domain.PendingPreferencePrompt {
	return domain.PendingPreferencePrompt{
		Message:              "Bạn muốn chế biến theo cách nào?",
		CookingMethodOptions: []string{"Hấp", "Luộc", "Nướng"},
		AllergyOptions:       []string{"Hải sản", "Đậu phộng"},
	}
}

func TestCollectorResolveExplicitSelection(t *testing.T) {
	c := NewCollector()
	c.Open(methodPrompt())

	sel, err := c.Resolve([]string{"Nướng"}, []string{"Hải sản"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Nướng"}, sel.Methods)
	assert.Equal(t, []string{"Hải sản"}, sel.Allergies)
}

func TestCollectorEmptyMethodsFallBackToOfferedSet(t *testing.T) {
	c := NewCollector()
	c.Open(methodPrompt())

	sel, err := c.Resolve(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hấp", "Luộc", "Nướng"}, sel.Methods)
	assert.NotNil(t, sel.Allergies)
	assert.Empty(t, sel.Allergies)
}

func TestCollectorCancelIsDefaultResolution(t *testing.T) {
	c := NewCollector()
	c.Open(methodPrompt())

	sel, err := c.Cancel()
	require.NoError(t, err)
	assert.Equal(t, []string{"Hấp", "Luộc", "Nướng"}, sel.Methods)
	assert.Empty(t, sel.Allergies)
}

func TestCollectorRejectsDoubleResolution(t *testing.T) {
	c := NewCollector()
	c.Open(methodPrompt())

	_, err := c.Resolve([]string{"Hấp"}, nil)
	require.NoError(t, err)

	_, err = c.Resolve([]string{"Luộc"}, nil)
	assert.ErrorIs(t, err, domain.ErrPromptResolved)

	assert.Nil(t, c.Prompt())
}

func TestCollectorRejectsResolveWithoutPrompt(t *testing.T) {
	c := NewCollector()

	_, err := c.Resolve([]string{"Hấp"}, nil)
	assert.ErrorIs(t, err, domain.ErrNoPendingPrompt)
}

func TestCollectorCloseDiscardsPrompt(t *testing.T) {
	c := NewCollector()
	c.Open(methodPrompt())
	c.Close()

	assert.Nil(t, c.Prompt())
	_, err := c.Resolve(nil, nil)
	assert.ErrorIs(t, err, domain.ErrNoPendingPrompt)
}

func TestCollectorReopenAfterResolve(t *testing.T) {
	c := NewCollector()
	c.Open(methodPrompt())
	_, err := c.Cancel()
	require.NoError(t, err)

	c.Open(methodPrompt())
	require.NotNil(t, c.Prompt())

	sel, err := c.Resolve([]string{"Luộc"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Luộc"}, sel.Methods)
}
