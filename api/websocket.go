package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/seenimoa/filingwatch/internal/edgar"
	"github.com/seenimoa/filingwatch/internal/stream"
	"github.com/seenimoa/filingwatch/pkg/models"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// WebSocket message types.
const (
	MsgSubscribed = "subscribed"
	MsgFiling     = "filing"
	MsgError      = "error"
	MsgSummary    = "summary"
)

var (
	errMissingIdentifier = errors.New("cik or ticker is required")
	errBadInterval       = errors.New("interval must be a whole number of seconds")
	errBadMaxEvents      = errors.New("max_events must be a number")
)

// WSMessage is a message sent over WebSocket connections.
type WSMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// SubscribedInfo acknowledges a stream subscription.
type SubscribedInfo struct {
	StreamID    string   `json:"stream_id"`
	CIK         string   `json:"cik"`
	Forms       []string `json:"forms,omitempty"`
	IntervalSec int      `json:"interval_sec"`
	MaxEvents   int      `json:"max_events"`
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
}

// checkOrigin admits same-host requests, requests without an Origin, and
// origins listed in the CORS configuration.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.cfg.API.CORSOrigins) == 0 {
		return true
	}
	origins := s.cfg.API.CORSOrigins
	return slices.Contains(origins, "*") || slices.Contains(origins, origin) ||
		origin == "http://"+r.Host || origin == "https://"+r.Host
}

// parseSubscription builds a subscription from the query string. Errors
// are reported as HTTP responses before the connection is upgraded.
func (s *Server) parseSubscription(r *http.Request) (stream.Subscription, int, error) {
	q := r.URL.Query()
	ident := q.Get("cik")
	if ident == "" {
		ident = q.Get("ticker")
	}
	if ident == "" {
		return stream.Subscription{}, http.StatusBadRequest, errMissingIdentifier
	}
	cik, err := s.client.ResolveIdentifier(r.Context(), ident)
	if err != nil {
		return stream.Subscription{}, statusFor(err), err
	}

	sub := stream.Subscription{
		CIK:          cik,
		Forms:        edgar.ParseForms(q.Get("forms")),
		PollInterval: s.cfg.Stream.DefaultInterval(),
		MaxEvents:    s.cfg.Stream.DefaultMaxEvents,
	}
	if v := q.Get("interval"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil {
			return sub, http.StatusBadRequest, errBadInterval
		}
		sub.PollInterval = time.Duration(sec) * time.Second
	}
	if v := q.Get("max_events"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return sub, http.StatusBadRequest, errBadMaxEvents
		}
		sub.MaxEvents = n
	}

	sub, err = s.poller.Validate(sub)
	if err != nil {
		return sub, http.StatusBadRequest, err
	}
	return sub, http.StatusOK, nil
}

// handleFilingStream upgrades to WebSocket and runs one change stream for
// the connection. Closing the connection cancels the stream.
func (s *Server) handleFilingStream(w http.ResponseWriter, r *http.Request) {
	sub, status, err := s.parseSubscription(r)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	st, err := s.poller.Subscribe(ctx, sub)
	if err != nil {
		_ = writeMessage(conn, WSMessage{Type: MsgError, Data: map[string]string{"message": err.Error()}})
		return
	}
	s.streams.Add(1)
	defer s.streams.Add(-1)

	go wsReadPump(conn, cancel)

	live := writeMessage(conn, WSMessage{Type: MsgSubscribed, Data: SubscribedInfo{
		StreamID:    st.ID,
		CIK:         sub.CIK,
		Forms:       sub.Forms,
		IntervalSec: int(sub.PollInterval / time.Second),
		MaxEvents:   sub.MaxEvents,
	}}) == nil
	if !live {
		cancel()
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	events := st.Events()
	for events != nil {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if !live {
				continue
			}
			typ := MsgFiling
			if ev.Type != models.EventFiling {
				typ = MsgError
			}
			if err := writeMessage(conn, WSMessage{Type: typ, Data: ev}); err != nil {
				live = false
				cancel()
			}
		case <-ticker.C:
			if !live {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				live = false
				cancel()
			}
		}
	}

	summary := st.Wait()
	if live {
		_ = writeMessage(conn, WSMessage{Type: MsgSummary, Data: summary})
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(summary.Status)),
			time.Now().Add(writeWait))
	}
}

// wsReadPump reads until the peer goes away, then cancels the stream.
// Clients are not expected to send anything beyond control frames.
func wsReadPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeMessage(conn *websocket.Conn, msg WSMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}
