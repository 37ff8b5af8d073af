package quota

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePolicy(t *testing.T) {
	policies := []Policy{
		{Scope: ScopeDefault, MonthlyTokenLimit: 1_000_000},
		{Scope: ScopeGroup, Subject: "engineering", MonthlyTokenLimit: 5_000_000},
		{Scope: ScopeGroup, Subject: "interns", MonthlyTokenLimit: 500_000},
		{Scope: ScopeUser, Subject: "dev@example.com", MonthlyTokenLimit: 10_000_000},
	}

	t.Run("user policy wins", func(t *testing.T) {
		p := ResolvePolicy("dev@example.com", []string{"engineering", "interns"}, policies)
		require.NotNil(t, p)
		assert.Equal(t, ScopeUser, p.Scope)
		assert.Equal(t, int64(10_000_000), p.MonthlyTokenLimit)
	})

	t.Run("most restrictive group wins", func(t *testing.T) {
		p := ResolvePolicy("other@example.com", []string{"engineering", "interns"}, policies)
		require.NotNil(t, p)
		assert.Equal(t, "interns", p.Subject)
	})

	t.Run("default when no group matches", func(t *testing.T) {
		p := ResolvePolicy("other@example.com", []string{"sales"}, policies)
		require.NotNil(t, p)
		assert.Equal(t, ScopeDefault, p.Scope)
	})

	t.Run("nil when nothing matches", func(t *testing.T) {
		p := ResolvePolicy("other@example.com", nil, []Policy{
			{Scope: ScopeGroup, Subject: "engineering", MonthlyTokenLimit: 1},
		})
		assert.Nil(t, p)
	})
}

func TestMoreRestrictive_UnlimitedIsLeastRestrictive(t *testing.T) {
	limited := &Policy{MonthlyTokenLimit: 100}
	unlimited := &Policy{MonthlyTokenLimit: 0}

	assert.True(t, moreRestrictive(limited, unlimited))
	assert.False(t, moreRestrictive(unlimited, limited))
}

func TestMoreRestrictive_TieBreaksOnDaily(t *testing.T) {
	a := &Policy{MonthlyTokenLimit: 100, DailyTokenLimit: 10}
	b := &Policy{MonthlyTokenLimit: 100, DailyTokenLimit: 20}
	assert.True(t, moreRestrictive(a, b))
}

func TestOverrideInEffect(t *testing.T) {
	now := time.Now()

	assert.False(t, (*Override)(nil).InEffect(now))
	assert.False(t, (&Override{Active: false}).InEffect(now))
	assert.True(t, (&Override{Active: true}).InEffect(now))
	assert.True(t, (&Override{Active: true, ExpiresAt: now.Add(time.Hour)}).InEffect(now))
	assert.False(t, (&Override{Active: true, ExpiresAt: now.Add(-time.Hour)}).InEffect(now))
}
