package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"console/internal/model"
	"console/internal/storage"
	"console/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func manager() *model.Session {
	return &model.Session{UserID: "1", Email: "a@b.com", FirstName: "A", LastName: "B", Role: model.RoleManager}
}

func TestStore_SetAndRead(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	s := NewStore(mem, "visitor-1", time.Hour, discard())

	require.NoError(t, s.Set(ctx, manager(), "t1"))

	sess, ok := s.Session(ctx)
	require.True(t, ok)
	assert.Equal(t, manager(), sess)
	assert.Equal(t, "t1", s.Token(ctx))

	other := NewStore(mem, "visitor-2", time.Hour, discard())
	_, ok = other.Session(ctx)
	assert.False(t, ok)
	assert.Empty(t, other.Token(ctx))
}

func TestStore_RejectsPartialSession(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	s := NewStore(mem, "v", time.Hour, discard())

	partial := manager()
	partial.Role = ""
	assert.ErrorIs(t, s.Set(ctx, partial, "t1"), ErrIncompleteSession)
	assert.ErrorIs(t, s.Set(ctx, manager(), ""), ErrIncompleteSession)
	assert.Equal(t, 0, mem.Len())
}

func TestStore_SetTokenKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	s := NewStore(memory.New(), "v", time.Hour, discard())

	require.NoError(t, s.Set(ctx, manager(), "t1"))
	require.NoError(t, s.SetToken(ctx, "t2"))

	assert.Equal(t, "t2", s.Token(ctx))
	sess, ok := s.Session(ctx)
	require.True(t, ok)
	assert.Equal(t, model.RoleManager, sess.Role)
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	s := NewStore(mem, "v", time.Hour, discard())

	require.NoError(t, s.Set(ctx, manager(), "t1"))
	require.NoError(t, s.Clear(ctx))

	_, ok := s.Session(ctx)
	assert.False(t, ok)
	assert.Empty(t, s.Token(ctx))
	assert.Equal(t, 0, mem.Len())
}

func TestStore_CorruptedRecordReadsAsAbsent(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	s := NewStore(mem, "v", time.Hour, discard())

	for _, raw := range []string{"{not json", `{"id":"1","email":"a@b.com","firstName":"A","lastName":"B","role":"admin"}`, `{}`} {
		require.NoError(t, mem.Set(ctx, "v:user", raw, 0))
		_, ok := s.Session(ctx)
		assert.False(t, ok, raw)
	}
}

type failingStorage struct {
	storage.Storage
	failKey string
}

func (f failingStorage) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if key == f.failKey {
		return errors.New("write failed")
	}
	return f.Storage.Set(ctx, key, value, ttl)
}

func TestStore_SetIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	s := NewStore(failingStorage{Storage: mem, failKey: "v:user"}, "v", time.Hour, discard())

	require.Error(t, s.Set(ctx, manager(), "t1"))
	assert.Empty(t, s.Token(ctx))
	assert.Equal(t, 0, mem.Len())
}

func TestStore_Flash(t *testing.T) {
	ctx := context.Background()
	s := NewStore(memory.New(), "v", time.Hour, discard())

	assert.Empty(t, s.PopFlash(ctx))
	s.SetFlash(ctx, "Term created")
	assert.Equal(t, "Term created", s.PopFlash(ctx))
	assert.Empty(t, s.PopFlash(ctx))
}
