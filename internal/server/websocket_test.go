package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/toolshed/internal/config"
)

func dialWordCount(t *testing.T, s *Server, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	opts := &websocket.DialOptions{HTTPHeader: http.Header{}}
	if origin != "" {
		opts.HTTPHeader.Set("Origin", origin)
	}
	return websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/wordcount", opts)
}

func TestWordCountSocket(t *testing.T) {
	s := newTestServer(t, nil)
	conn, _, err := dialWordCount(t, s, "")
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("The cat sat. The dog ran.")))
	var reply wordCountReply
	require.NoError(t, wsjson.Read(ctx, conn, &reply))
	require.NotNil(t, reply.Stats)
	assert.Nil(t, reply.Error)
	assert.Equal(t, 6, reply.Stats.Words)
	assert.Equal(t, 2, reply.Stats.Sentences)

	// A second frame on the same connection gets its own answer.
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("One")))
	require.NoError(t, wsjson.Read(ctx, conn, &reply))
	assert.Equal(t, 1, reply.Stats.Words)

	require.NoError(t, conn.Write(ctx, websocket.MessageBinary, []byte{0x1, 0x2}))
	reply = wordCountReply{}
	require.NoError(t, wsjson.Read(ctx, conn, &reply))
	require.NotNil(t, reply.Error)
	assert.Equal(t, "ERR_INVALID_INPUT", reply.Error.Code)
}

func TestWordCountSocketOrigin(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.Server.Environment = "production"
		c.Server.AllowedOrigins = []string{"https://tools.example.com"}
	})

	_, resp, err := dialWordCount(t, s, "https://evil.example.com")
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	}

	conn, _, err := dialWordCount(t, s, "https://tools.example.com")
	require.NoError(t, err)
	conn.Close(websocket.StatusNormalClosure, "")
}

func TestOriginPatterns(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.Server.AllowedOrigins = []string{"https://tools.example.com", "localhost:3000"}
	})
	assert.Equal(t, []string{"tools.example.com", "localhost:3000"}, s.originPatterns())

	s = newTestServer(t, nil)
	assert.Equal(t, []string{"*"}, s.originPatterns())
}
