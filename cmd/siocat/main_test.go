package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yaoapp/siobridge/sio/siotest"
	"github.com/yaoapp/siobridge/socketio"
)

func TestParseLine(t *testing.T) {
	name, args, err := parseLine(`  hello "world" 42 true null {"base64":"AQID"}  `)
	require.NoError(t, err)
	assert.Equal(t, "hello", name)
	require.Len(t, args, 5)
	assert.Equal(t, "world", args[0].Str())
	assert.Equal(t, 42.0, args[1].Number())
	assert.True(t, args[2].Bool())
	assert.Equal(t, socketio.KindNull, args[3].Kind())
	assert.Equal(t, []byte{1, 2, 3}, args[4].Bytes())

	name, args, err = parseLine("ping")
	require.NoError(t, err)
	assert.Equal(t, "ping", name)
	assert.Empty(t, args)

	name, _, err = parseLine("   ")
	require.NoError(t, err)
	assert.Empty(t, name)

	_, _, err = parseLine(`hello {"a":1}`)
	assert.Error(t, err)

	_, _, err = parseLine(`hello [1, 2]`)
	assert.Error(t, err)

	_, _, err = parseLine(`hello world`)
	assert.Error(t, err)
}

func TestProfileOf(t *testing.T) {
	p, err := profileOf([]string{"ws://127.0.0.1:3000"}, "", []string{"token=abc", "empty="})
	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:3000", p.URL)
	assert.Equal(t, map[string]string{"token": "abc", "empty": ""}, p.Query)
	assert.Nil(t, p.Attempts)

	_, err = profileOf(nil, "", nil)
	assert.Error(t, err)

	_, err = profileOf([]string{"ws://host"}, "", []string{"novalue"})
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "chat.sio.yml")
	require.NoError(t, os.WriteFile(file, []byte("url: ws://chat\nattempts: 1\nquery:\n  room: lobby\n"), 0644))

	p, err = profileOf(nil, file, []string{"token=abc"})
	require.NoError(t, err)
	assert.Equal(t, "ws://chat", p.URL)
	assert.Equal(t, map[string]string{"room": "lobby", "token": "abc"}, p.Query)
	require.NotNil(t, p.Attempts)
	assert.Equal(t, 1, *p.Attempts)

	p, err = profileOf([]string{"ws://override"}, file, nil)
	require.NoError(t, err)
	assert.Equal(t, "ws://override", p.URL)
}

func TestRootCmdFlags(t *testing.T) {
	cmd := rootCmd()
	assert.Equal(t, "siocat [url]", cmd.Use)
	for _, name := range []string{"query", "attempts", "profile", "on", "verbose"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}

	cmd.SetArgs([]string{"a", "b"})
	assert.Error(t, cmd.Execute())
}

func TestRunDenied(t *testing.T) {
	server := siotest.New()
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	p := &socketio.Profile{URL: server.URL(), Query: map[string]string{"deny": "not allowed"}}
	err := run(ctx, p, nil, strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not allowed")
	assert.NoError(t, ctx.Err())
}

func TestRunServerDisconnect(t *testing.T) {
	server := siotest.New()
	defer server.Close()
	server.On("hello", func(conn *siotest.Conn, args []interface{}) []interface{} { return args })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	go func() {
		if _, err := server.WaitConn(5 * time.Second); err != nil {
			return
		}
		assert.Eventually(t, func() bool { return len(server.Received()) > 0 }, 5*time.Second, 10*time.Millisecond)
		server.DisconnectAll()
	}()

	p := &socketio.Profile{URL: server.URL(), Query: map[string]string{}}
	err := run(ctx, p, []string{"news"}, strings.NewReader("hello \"world\" 1\n"))
	assert.NoError(t, err)
	assert.NoError(t, ctx.Err())

	records := server.Received()
	require.NotEmpty(t, records)
	assert.Equal(t, "hello", records[0].Name)
}
