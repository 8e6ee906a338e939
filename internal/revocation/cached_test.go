package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) Revoke(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockStore) PurgeExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

func TestCachedStore_CachesPositiveAnswers(t *testing.T) {
	next := new(mockStore)
	store := NewCachedStore(next, 10, time.Hour)
	ctx := context.Background()

	next.On("IsRevoked", ctx, "tok").Return(true, nil).Once()

	for i := 0; i < 3; i++ {
		revoked, err := store.IsRevoked(ctx, "tok")
		require.NoError(t, err)
		assert.True(t, revoked)
	}
	next.AssertNumberOfCalls(t, "IsRevoked", 1)
}

func TestCachedStore_NeverCachesNegativeAnswers(t *testing.T) {
	next := new(mockStore)
	store := NewCachedStore(next, 10, time.Hour)
	ctx := context.Background()

	next.On("IsRevoked", ctx, "tok").Return(false, nil).Once()
	next.On("IsRevoked", ctx, "tok").Return(true, nil).Once()

	revoked, err := store.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, revoked)

	revoked, err = store.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, revoked)
	next.AssertExpectations(t)
}

func TestCachedStore_RevokeRecordsLocally(t *testing.T) {
	next := new(mockStore)
	store := NewCachedStore(next, 10, time.Hour)
	ctx := context.Background()

	next.On("Revoke", ctx, "tok").Return(nil).Once()
	require.NoError(t, store.Revoke(ctx, "tok"))

	revoked, err := store.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, revoked)
	next.AssertNotCalled(t, "IsRevoked", ctx, "tok")
}

func TestCachedStore_PropagatesErrors(t *testing.T) {
	next := new(mockStore)
	store := NewCachedStore(next, 10, time.Hour)
	ctx := context.Background()

	next.On("Revoke", ctx, "tok").Return(assert.AnError)
	next.On("IsRevoked", ctx, "tok").Return(false, assert.AnError)

	assert.ErrorIs(t, store.Revoke(ctx, "tok"), assert.AnError)
	_, err := store.IsRevoked(ctx, "tok")
	assert.ErrorIs(t, err, assert.AnError)

	// a failed revoke must not be cached as revoked
	_, err = store.IsRevoked(ctx, "tok")
	assert.ErrorIs(t, err, assert.AnError)
	next.AssertNumberOfCalls(t, "IsRevoked", 2)
}

func TestCachedStore_PurgeForwards(t *testing.T) {
	next := new(mockStore)
	store := NewCachedStore(next, 10, time.Hour)
	ctx := context.Background()

	next.On("PurgeExpired", ctx, Retention).Return(int64(4), nil)

	n, err := store.PurgeExpired(ctx, Retention)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}
