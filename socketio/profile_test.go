package socketio

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-errors/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadInline(t *testing.T) {
	profile, err := Load(`{
		"name": "Chat",
		"url": "ws://127.0.0.1:3000/chat",
		"query": {"token": "abc"},
		"attempts": 0,
		"attempt_after": 2,
		"timeout": 5
	}`, "chat")
	require.NoError(t, err)
	assert.Equal(t, "chat", profile.ID)
	assert.Equal(t, "Chat", profile.Name)
	assert.Equal(t, "abc", profile.Query["token"])
	assert.Equal(t, profile, Select("chat"))

	option := profile.Option()
	assert.Equal(t, 0, option.Attempts)
	assert.Equal(t, 2*time.Second, option.AttemptAfter)
	assert.Equal(t, 5*time.Second, option.Timeout)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "feed.sio.yml")
	err := os.WriteFile(file, []byte(`
url: https://feed.example.com
path: /realtime/
namespace: /feed
headers:
  Authorization: Bearer xyz
`), 0644)
	require.NoError(t, err)

	profile, err := Load("file://"+file, "feed")
	require.NoError(t, err)
	assert.Equal(t, "feed", profile.ID)
	assert.Equal(t, "feed", profile.Name)
	assert.Equal(t, "/feed", profile.Namespace)

	option := profile.Option()
	assert.Equal(t, DefaultAttempts, option.Attempts)
	assert.Equal(t, "/realtime/", option.Path)
	assert.Equal(t, "Bearer xyz", option.Headers["Authorization"])

	_, err = Load("file://"+filepath.Join(dir, "missing.json"), "missing")
	assert.Error(t, err)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(`{"name": "no url"}`, "nourl")
	require.Error(t, err)
	var goErr *errors.Error
	assert.True(t, errors.As(err, &goErr))
	assert.Contains(t, err.Error(), "nourl")

	_, err = Load(`{"url": `, "broken")
	assert.Error(t, err)

	dir := t.TempDir()
	file := filepath.Join(dir, "profile.toml")
	require.NoError(t, os.WriteFile(file, []byte(`url = "ws://host"`), 0644))
	_, err = Load("file://"+file, "toml")
	assert.Error(t, err)

	assert.Panics(t, func() { Select("not-loaded") })
}
