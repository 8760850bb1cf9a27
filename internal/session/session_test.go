package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Moriarty1227/YIR-ApprovalHub/internal/domain/entity"
)

func testUser() *entity.User {
	return &entity.User{UserID: 9, Username: "zhangsan", RealName: "张三", Roles: []string{"employee"}}
}

func TestSession_SetAndClear(t *testing.T) {
	store := NewMemoryStore()
	s := New(store, zap.NewNop())

	require.NoError(t, s.Load())
	assert.False(t, s.Authenticated())
	assert.Nil(t, s.User())

	require.NoError(t, s.Set("tok-1", testUser()))
	assert.True(t, s.Authenticated())
	assert.Equal(t, "tok-1", s.Token())
	assert.Equal(t, "张三", s.User().RealName)

	saved, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", saved.Token)

	require.NoError(t, s.Clear())
	assert.Empty(t, s.Token())
	assert.Nil(t, s.User())

	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSession_UserIsCopied(t *testing.T) {
	s := New(NewMemoryStore(), zap.NewNop())
	require.NoError(t, s.Set("tok", testUser()))

	u := s.User()
	u.RealName = "changed"
	assert.Equal(t, "张三", s.User().RealName)
}

func TestSession_LoadRestores(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save(&State{Token: "persisted", User: testUser()}))

	s := New(store, zap.NewNop())
	require.NoError(t, s.Load())
	assert.Equal(t, "persisted", s.Token())
	assert.Equal(t, int64(9), s.User().UserID)
}

func TestFileStore(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "session.json")
		store := NewFileStore(path, zap.NewNop())

		_, err := store.Load()
		assert.ErrorIs(t, err, ErrNoSession)

		require.NoError(t, store.Save(&State{Token: "abc", User: testUser()}))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

		state, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, "abc", state.Token)
		require.NotNil(t, state.User)
		assert.Equal(t, "zhangsan", state.User.Username)
	})

	t.Run("clear removes token and user", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.json")
		store := NewFileStore(path, zap.NewNop())
		require.NoError(t, store.Save(&State{Token: "abc", User: testUser()}))

		require.NoError(t, store.Clear())
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err))

		require.NoError(t, store.Clear(), "clearing twice is fine")
	})

	t.Run("empty token counts as no session", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"token":"","user":null}`), 0600))

		_, err := NewFileStore(path, zap.NewNop()).Load()
		assert.ErrorIs(t, err, ErrNoSession)
	})

	t.Run("corrupt file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.json")
		require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0600))

		_, err := NewFileStore(path, zap.NewNop()).Load()
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNoSession)
	})

	t.Run("path escape rejected", func(t *testing.T) {
		base := t.TempDir()
		store := NewFileStoreIn(base, "../outside.json", zap.NewNop())

		err := store.Save(&State{Token: "abc"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "escapes base directory")

		_, err = os.Stat(filepath.Join(filepath.Dir(base), "outside.json"))
		assert.True(t, os.IsNotExist(err))
	})
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	store, err := NewSQLiteStore(path, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, store.Save(&State{Token: "first", User: testUser()}))
	require.NoError(t, store.Save(&State{Token: "second", User: testUser()}))

	state, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "second", state.Token)
	require.NotNil(t, state.User)
	assert.Equal(t, []string{"employee"}, state.User.Roles)

	require.NoError(t, store.Clear())
	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNoSession)

	var rows int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM client_state`).Scan(&rows))
	assert.Zero(t, rows, "token and user are removed together")
}

func TestSQLiteStore_ReopenKeepsSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")

	store, err := NewSQLiteStore(path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.Save(&State{Token: "kept"}))
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(path, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	state, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "kept", state.Token)
	assert.Nil(t, state.User)
}
