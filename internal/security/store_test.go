package security

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Fetch(ctx, "Hop")
	assert.ErrorIs(t, err, ErrNotFound)

	store.Put(&Record{
		Bridge: "Hop",
		Audits: []AuditEvent{{Firm: "Solidified", Result: "passed"}},
	})

	// lookup is case-insensitive
	rec, err := store.Fetch(ctx, "hop")
	require.NoError(t, err)
	assert.Equal(t, "Hop", rec.Bridge)
	assert.True(t, rec.HasPassedAudit())
	assert.False(t, rec.HasExploit())

	bridges, err := store.ListBridges(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hop"}, bridges)
}
