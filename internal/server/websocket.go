package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/conneroisu/toolshed/internal/errors"
	"github.com/conneroisu/toolshed/internal/textstats"
	"github.com/conneroisu/toolshed/internal/tools"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Connections with no message for this long are closed.
	idleTimeout = 5 * time.Minute
)

// wordCountReply is one frame sent back on /ws/wordcount.
type wordCountReply struct {
	Stats *textstats.Stats     `json:"stats,omitempty"`
	Error *errors.PayloadError `json:"error,omitempty"`
}

// handleWordCountSocket analyses every text frame the client sends and
// answers with its statistics.
func (s *Server) handleWordCountSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns(),
	})
	if err != nil {
		s.logger.Warn(r.Context(), err, "WebSocket upgrade failed", "origin", r.Header.Get("Origin"))
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(tools.MaxTextBytes + 1024)

	ctx := r.Context()
	s.logger.Debug(ctx, "Word count client connected", "client", ClientID(ctx))

	for {
		readCtx, cancel := context.WithTimeout(ctx, idleTimeout)
		typ, data, err := conn.Read(readCtx)
		cancel()
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				s.logger.Debug(ctx, "Word count client gone", "error", err.Error())
			}
			return
		}

		var reply wordCountReply
		if typ != websocket.MessageText {
			reply.Error = &errors.PayloadError{Code: errors.ErrCodeInvalidInput, Message: "only text frames are accepted"}
		} else if st, err := s.tools.WordCount(tools.WordCountRequest{Text: string(data)}); err != nil {
			p := errors.NewPayload(err)
			reply.Error = &p.Error
		} else {
			reply.Stats = st
		}

		writeCtx, cancel := context.WithTimeout(ctx, writeWait)
		err = wsjson.Write(writeCtx, conn, reply)
		cancel()
		if err != nil {
			s.logger.Warn(ctx, err, "Failed to write word count reply")
			return
		}
	}
}

// originPatterns turns the allowed origins into the host patterns the
// websocket handshake checks. Same-host requests are always accepted.
func (s *Server) originPatterns() []string {
	origins := s.config.Server.AllowedOrigins
	if len(origins) == 0 && s.config.Server.Environment != "production" {
		return []string{"*"}
	}
	var patterns []string
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		if strings.Contains(o, "://") {
			if u, err := url.Parse(o); err == nil && u.Host != "" {
				patterns = append(patterns, u.Host)
				continue
			}
		}
		patterns = append(patterns, o)
	}
	return patterns
}
