package server

import (
	"bubbles/communication"
	"bubbles/engine"
	"bubbles/game"
	"bubbles/gamemaster"
	"bubbles/player"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	mu     sync.Mutex
	status engine.Status
	err    error
	calls  []string
	kinds  [2]player.Kind
	tapped game.CellID
}

func (c *fakeController) record(call string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
	return c.err
}

func (c *fakeController) Setup(ctx context.Context) error {
	return c.record("setup")
}

func (c *fakeController) Start(ctx context.Context, kinds [2]player.Kind) error {
	c.mu.Lock()
	c.kinds = kinds
	c.mu.Unlock()
	return c.record("start")
}

func (c *fakeController) Tap(ctx context.Context, cell game.CellID) error {
	c.mu.Lock()
	c.tapped = cell
	c.mu.Unlock()
	return c.record("tap")
}

func (c *fakeController) Finish(ctx context.Context) error {
	return c.record("finish")
}

func (c *fakeController) Status() engine.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func activeStatus(t *testing.T) engine.Status {
	t.Helper()
	b, err := game.NewBoardFromColors(3, [][]game.Color{{1, 2, 1}, {3, 3}})
	require.NoError(t, err)
	return engine.Status{
		Phase:     engine.Active,
		Rows:      b.Rows(),
		Remaining: 12,
		Active:    player.Player2,
		Scores:    [2]int{4, 7},
	}
}

func request(t *testing.T, handler http.Handler, method, path, body string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec.Code, rec.Body.String()
}

func TestRoutes(t *testing.T) {
	t.Run("answering pings", func(t *testing.T) {
		s := NewServer(&fakeController{})

		code, body := request(t, s.Handler(), http.MethodGet, "/api/ping", "")

		require.Equal(t, http.StatusOK, code)
		require.JSONEq(t, `{"ok":true}`, body)
	})

	t.Run("serving the status", func(t *testing.T) {
		status := activeStatus(t)
		s := NewServer(&fakeController{status: status})

		code, body := request(t, s.Handler(), http.MethodGet, "/api/status", "")

		require.Equal(t, http.StatusOK, code)
		var dto communication.StatusDTO
		require.NoError(t, json.Unmarshal([]byte(body), &dto))
		require.Equal(t, "active", dto.Phase)
		require.Equal(t, 12, dto.RemainingSeconds)
		require.Equal(t, 2, dto.ActivePlayer)
		require.Equal(t, [2]int{4, 7}, dto.Scores)
		require.Len(t, dto.Rows, 2)
		require.Equal(t, status.Rows[0][1].ID.String(), dto.Rows[0][1].ID)
		require.Equal(t, 2, dto.Rows[0][1].Color)
	})

	t.Run("forwarding commands", func(t *testing.T) {
		c := &fakeController{}
		s := NewServer(c)
		cell := uuid.New()

		for _, tc := range []struct{ path, body string }{
			{"/api/setup", ""},
			{"/api/start", `{"player1":"interactive","player2":"automated"}`},
			{"/api/tap", fmt.Sprintf(`{"cell":%q}`, cell)},
			{"/api/finish", ""},
		} {
			code, _ := request(t, s.Handler(), http.MethodPost, tc.path, tc.body)
			require.Equal(t, http.StatusOK, code, tc.path)
		}

		require.Equal(t, []string{"setup", "start", "tap", "finish"}, c.calls)
		require.Equal(t, [2]player.Kind{player.KindInteractive, player.KindAutomated}, c.kinds)
		require.Equal(t, cell, c.tapped)
	})

	t.Run("rejecting bad payloads", func(t *testing.T) {
		c := &fakeController{}
		s := NewServer(c)

		for _, tc := range []struct{ path, body string }{
			{"/api/start", `{"player1":"robot","player2":"random"}`},
			{"/api/start", `not json`},
			{"/api/tap", `{"cell":"not-a-uuid"}`},
		} {
			code, body := request(t, s.Handler(), http.MethodPost, tc.path, tc.body)
			require.Equal(t, http.StatusBadRequest, code, tc.body)
			require.Contains(t, body, `"error"`)
		}
		require.Empty(t, c.calls)
	})

	t.Run("mapping controller errors to status codes", func(t *testing.T) {
		for _, tc := range []struct {
			err  error
			code int
		}{
			{fmt.Errorf("%w: cannot setup while active", gamemaster.ErrInvalidTransition), http.StatusConflict},
			{gamemaster.ErrNotAwaitingInput, http.StatusConflict},
			{player.ErrUnknownKind, http.StatusBadRequest},
			{gamemaster.ErrStopped, http.StatusServiceUnavailable},
			{fmt.Errorf("disk on fire"), http.StatusInternalServerError},
		} {
			s := NewServer(&fakeController{err: tc.err})

			code, body := request(t, s.Handler(), http.MethodPost, "/api/setup", "")

			require.Equal(t, tc.code, code, tc.err.Error())
			var resp communication.ErrorResponse
			require.NoError(t, json.Unmarshal([]byte(body), &resp))
			require.Equal(t, tc.err.Error(), resp.Error)
		}
	})
}

func readStatus(t *testing.T, conn *websocket.Conn) communication.StatusDTO {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg communication.Message
	require.NoError(t, json.Unmarshal(data, &msg))
	require.Equal(t, communication.StatusMessage, msg.Type)
	var status communication.StatusDTO
	require.NoError(t, json.Unmarshal(msg.Payload, &status))
	return status
}

func TestWebsocket(t *testing.T) {
	t.Run("streaming published status", func(t *testing.T) {
		s := NewServer(&fakeController{status: engine.Status{Phase: engine.Setup, Remaining: -1}})
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go s.Run(ctx)
		ts := httptest.NewServer(s.Handler())
		defer ts.Close()

		conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
		require.NoError(t, err)
		defer conn.Close()

		require.Equal(t, "setup", readStatus(t, conn).Phase, "First frame should be the current status")
		require.Eventually(t, func() bool { return s.hub.ClientCount() == 1 }, time.Second, time.Millisecond)

		s.Publish(activeStatus(t))

		got := readStatus(t, conn)
		require.Equal(t, "active", got.Phase)
		require.Equal(t, [2]int{4, 7}, got.Scores)
	})

	t.Run("answering status requests", func(t *testing.T) {
		c := &fakeController{status: engine.Status{Phase: engine.Inactive, Remaining: -1}}
		s := NewServer(c)
		ts := httptest.NewServer(s.Handler())
		defer ts.Close()
		conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
		require.NoError(t, err)
		defer conn.Close()
		readStatus(t, conn)

		c.mu.Lock()
		c.status = engine.Status{Phase: engine.Finished, Result: engine.Draw, Remaining: -1}
		c.mu.Unlock()
		require.NoError(t, conn.WriteJSON(communication.Message{Type: "request_status"}))

		got := readStatus(t, conn)
		require.Equal(t, "finished", got.Phase)
		require.Equal(t, "draw", got.Result)
	})

	t.Run("unregistering closed clients", func(t *testing.T) {
		s := NewServer(&fakeController{})
		ts := httptest.NewServer(s.Handler())
		defer ts.Close()
		conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
		require.NoError(t, err)
		readStatus(t, conn)
		require.Eventually(t, func() bool { return s.hub.ClientCount() == 1 }, time.Second, time.Millisecond)

		conn.Close()

		require.Eventually(t, func() bool { return s.hub.ClientCount() == 0 }, 5*time.Second, 5*time.Millisecond)
	})
}
