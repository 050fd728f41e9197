package wired_test

import (
	"testing"

	"github.com/junioryono/wired"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collectionRepo struct{}
type collectionCache struct{}
type collectionMailer struct{}

var (
	collectionRepoClass   = wired.Injectable[collectionRepo]()
	collectionCacheClass  = wired.Injectable[collectionCache]()
	collectionMailerClass = wired.Injectable[collectionMailer]()
)

func TestCollection_AccessibleTokens(t *testing.T) {
	t.Run("own providers and the exports of imports", func(t *testing.T) {
		t.Parallel()

		data := wired.NewModule("data",
			wired.Providers(collectionRepoClass, collectionCacheClass),
			wired.Exports(collectionRepoClass),
		)
		users := wired.NewModule("users",
			wired.Imports(data),
			wired.Providers(collectionMailerClass),
		)

		c := wired.NewCollection()
		keys := c.AccessibleTokens(users)

		assert.Contains(t, keys, collectionMailerClass.Key())
		assert.Contains(t, keys, collectionRepoClass.Key())
		assert.NotContains(t, keys, collectionCacheClass.Key())
	})

	t.Run("recomputed after global providers are added", func(t *testing.T) {
		t.Parallel()

		m := wired.NewModule("m")
		c := wired.NewCollection()

		assert.Empty(t, c.AccessibleTokens(m))

		c.AddGlobalProvider(wired.Name("config"))
		assert.Equal(t, []wired.Key{wired.Name("config").Key()}, c.AccessibleTokens(m))
		assert.True(t, c.IsGlobal(wired.Name("config").Key()))
	})

	t.Run("assemble adds global exports and reserved tokens", func(t *testing.T) {
		t.Parallel()

		shared := wired.NewModule("shared",
			wired.Providers(collectionCacheClass),
			wired.Exports(collectionCacheClass),
			wired.IsGlobal(),
		)
		other := wired.NewModule("other")

		c := wired.NewCollection()
		assert.True(t, c.AddGlobalModule(shared))
		assert.False(t, c.AddGlobalModule(shared))
		c.Assemble()

		keys := c.AccessibleTokens(other)
		assert.Contains(t, keys, collectionCacheClass.Key())
		assert.Contains(t, keys, wired.AppLogger.Key())
		assert.Contains(t, keys, wired.AppGuard.Key())
		assert.Equal(t, []*wired.Module{shared}, c.GlobalModules())
		assert.True(t, c.IsGlobalModule(shared))
		assert.False(t, c.IsGlobalModule(other))
	})
}

func TestCollection_ClaimReserved(t *testing.T) {
	t.Parallel()

	c := wired.NewCollection()
	assert.False(t, c.Claimed(wired.AppGuard))

	require.NoError(t, c.ClaimReserved(wired.AppGuard, "auth"))
	assert.True(t, c.Claimed(wired.AppGuard))

	err := c.ClaimReserved(wired.AppGuard, "admin")
	require.Error(t, err)
	assert.ErrorIs(t, err, wired.ErrReservedTokenClaimed)

	var reserved wired.ReservedTokenError
	require.ErrorAs(t, err, &reserved)
	assert.Equal(t, "admin", reserved.Module)
	assert.Same(t, wired.AppGuard, reserved.Token)
}
