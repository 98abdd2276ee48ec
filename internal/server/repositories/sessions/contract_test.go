package sessions

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/authcore/internal/common"
)

// testRepository exercises behaviour every Repository must share.
func testRepository(t *testing.T, repo Repository, accountID string) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		s, err := repo.Create(ctx, accountID, "curl/8.0")
		require.NoError(t, err)
		assert.NotEmpty(t, s.ID)
		assert.True(t, s.Valid)
		assert.Equal(t, accountID, s.AccountID)

		got, err := repo.Get(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, s.ID, got.ID)
		assert.Equal(t, "curl/8.0", got.UserAgent)
		assert.True(t, got.Valid)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := repo.Get(ctx, "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, common.ErrorNotFound)
		assert.ErrorIs(t, repo.Invalidate(ctx, "00000000-0000-0000-0000-000000000000"), common.ErrorNotFound)
	})

	t.Run("invalidate is idempotent", func(t *testing.T) {
		s, err := repo.Create(ctx, accountID, "")
		require.NoError(t, err)

		require.NoError(t, repo.Invalidate(ctx, s.ID))
		require.NoError(t, repo.Invalidate(ctx, s.ID))

		got, err := repo.Get(ctx, s.ID)
		require.NoError(t, err)
		assert.False(t, got.Valid)
	})

	t.Run("concurrent invalidate", func(t *testing.T) {
		s, err := repo.Create(ctx, accountID, "")
		require.NoError(t, err)

		var wg sync.WaitGroup
		errs := make(chan error, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- repo.Invalidate(ctx, s.ID)
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			assert.NoError(t, err)
		}

		got, err := repo.Get(ctx, s.ID)
		require.NoError(t, err)
		assert.False(t, got.Valid)
	})

	t.Run("list and invalidate all", func(t *testing.T) {
		other := accountID + "-other"
		a, err := repo.Create(ctx, other, "a")
		require.NoError(t, err)
		b, err := repo.Create(ctx, other, "b")
		require.NoError(t, err)
		c, err := repo.Create(ctx, other, "c")
		require.NoError(t, err)
		require.NoError(t, repo.Invalidate(ctx, c.ID))

		list, err := repo.ListValid(ctx, other)
		require.NoError(t, err)
		ids := []string{}
		for _, s := range list {
			ids = append(ids, s.ID)
		}
		assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)

		n, err := repo.InvalidateAll(ctx, other)
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		list, err = repo.ListValid(ctx, other)
		require.NoError(t, err)
		assert.Empty(t, list)

		n, err = repo.InvalidateAll(ctx, other)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
