package sessions

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeUsers(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestAuthenticate(t *testing.T) {
	path := writeUsers(t, `{"users": {"alice": "s3cret", "bob": "hunter2"}}`)

	creds, err := LoadCredentials(path)
	require.NoError(t, err)
	assert.Equal(t, 2, creds.Len())

	assert.True(t, creds.Authenticate("alice", "s3cret"))
	assert.False(t, creds.Authenticate("alice", "wrong"))
	assert.False(t, creds.Authenticate("mallory", "s3cret"))
}

func TestAuthenticate_FailsClosed(t *testing.T) {
	_, err := LoadCredentials(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)

	// Missing or corrupt credential files degrade to an empty table
	// that rejects everything.
	creds := EmptyCredentials()
	assert.False(t, creds.Authenticate("alice", "s3cret"))
	assert.False(t, creds.Authenticate("", ""))
}

func TestLoadCredentials_Malformed(t *testing.T) {
	path := writeUsers(t, `{broken`)
	_, err := LoadCredentials(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse credentials")
}

func TestOpen_FreshSession(t *testing.T) {
	store := NewMemoryStore()

	session, err := store.Open("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", session.Username)
	assert.Equal(t, 0, session.Cursor)
	// 32 random bytes base64url-encoded without padding.
	assert.Len(t, session.Token, 43)
}

func TestOpen_TokensUnique(t *testing.T) {
	store := NewMemoryStore()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		session, err := store.Open("alice")
		require.NoError(t, err)
		assert.False(t, seen[session.Token], "token reused")
		seen[session.Token] = true
	}
	assert.Equal(t, 100, store.Len())
}

func TestResolve(t *testing.T) {
	store := NewMemoryStore()

	session, err := store.Open("alice")
	require.NoError(t, err)

	assert.Same(t, session, store.Resolve(session.Token))
	assert.Nil(t, store.Resolve("unknown-token"))
	assert.Nil(t, store.Resolve(""))
}

func TestWithMaxSessions(t *testing.T) {
	store := NewMemoryStore(WithMaxSessions(2))

	_, err := store.Open("alice")
	require.NoError(t, err)
	_, err = store.Open("bob")
	require.NoError(t, err)
	_, err = store.Open("carol")
	require.NoError(t, err)

	assert.Equal(t, 2, store.Len())
}
