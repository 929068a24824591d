package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"console/internal/storage"

	redis2 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis2.StatusCmd {
	args := m.Called(ctx, key, value, expiration)
	cmd := redis2.NewStatusCmd(ctx)
	cmd.SetErr(args.Error(0))
	return cmd
}

func (m *mockClient) Get(ctx context.Context, key string) *redis2.StringCmd {
	args := m.Called(ctx, key)
	cmd := redis2.NewStringCmd(ctx)
	cmd.SetVal(args.String(0))
	cmd.SetErr(args.Error(1))
	return cmd
}

func (m *mockClient) Del(ctx context.Context, keys ...string) *redis2.IntCmd {
	args := m.Called(ctx, keys)
	cmd := redis2.NewIntCmd(ctx)
	cmd.SetErr(args.Error(0))
	return cmd
}

func TestRepositoryRedis_PrefixesKeys(t *testing.T) {
	ctx := context.Background()
	client := &mockClient{}
	repo := NewRepositoryRedis(client, "console")

	client.On("Set", mock.Anything, "console:abc:token", "t1", time.Hour).Return(nil).Once()
	client.On("Get", mock.Anything, "console:abc:token").Return("t1", nil).Once()
	client.On("Del", mock.Anything, []string{"console:abc:token", "console:abc:user"}).Return(nil).Once()

	require.NoError(t, repo.Set(ctx, "abc:token", "t1", time.Hour))

	v, err := repo.Get(ctx, "abc:token")
	require.NoError(t, err)
	assert.Equal(t, "t1", v)

	require.NoError(t, repo.Delete(ctx, "abc:token", "abc:user"))
	client.AssertExpectations(t)
}

func TestRepositoryRedis_MissingKey(t *testing.T) {
	client := &mockClient{}
	repo := NewRepositoryRedis(client, "console")

	client.On("Get", mock.Anything, "console:nope").Return("", redis2.Nil).Once()

	_, err := repo.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRepositoryRedis_Errors(t *testing.T) {
	client := &mockClient{}
	repo := NewRepositoryRedis(client, "console")
	down := errors.New("connection refused")

	client.On("Get", mock.Anything, "console:k").Return("", down).Once()
	client.On("Set", mock.Anything, "console:k", "v", time.Duration(0)).Return(down).Once()

	_, err := repo.Get(context.Background(), "k")
	assert.ErrorIs(t, err, down)
	assert.NotErrorIs(t, err, storage.ErrNotFound)

	err = repo.Set(context.Background(), "k", "v", 0)
	assert.ErrorIs(t, err, down)

	client.AssertNotCalled(t, "Del", mock.Anything, mock.Anything)
	require.NoError(t, repo.Delete(context.Background()))
}
