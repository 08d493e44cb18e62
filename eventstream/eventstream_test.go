package eventstream

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fornellas/slogxt/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/cn5x/grbldecode/broker"
	"github.com/cn5x/grbldecode/grbl"
)

type receivedMessage struct {
	Type  string          `json:"type"`
	Event json.RawMessage `json:"event"`
	State json.RawMessage `json:"state"`
}

type testServer struct {
	ctx      context.Context
	machine  *grbl.Machine
	events   *broker.Broker[grbl.Event]
	server   *Server
	http     *httptest.Server
	response *grbl.ResponseDecoder
	status   *grbl.StatusReportDecoder
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := log.WithLogger(t.Context(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	events := broker.NewBroker[grbl.Event]()
	machine := grbl.NewMachine(grbl.NotifierFunc(func(ctx context.Context, event grbl.Event) {
		_ = events.Publish(event)
	}))
	server := NewServer(ctx, machine, events)
	httpServer := httptest.NewServer(server)
	t.Cleanup(func() {
		server.Close()
		httpServer.Close()
		events.Close()
	})

	return &testServer{
		ctx:      ctx,
		machine:  machine,
		events:   events,
		server:   server,
		http:     httpServer,
		response: grbl.NewResponseDecoder(machine),
		status:   grbl.NewStatusReportDecoder(machine),
	}
}

func (s *testServer) run(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(s.ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- s.server.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-errCh)
	})
	require.Eventually(t, func() bool { return s.events.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
}

func (s *testServer) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(s.http.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestServerState(t *testing.T) {
	s := newTestServer(t)
	s.status.Decode(s.ctx, "<Jog|MPos:1.000,2.000,3.000>")

	resp := s.get(t, "/state")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var message receivedMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&message))
	require.Equal(t, MessageTypeState, message.Type)
	require.Empty(t, message.Event)

	var state grbl.MachineState
	require.NoError(t, json.Unmarshal(message.State, &state))
	require.Equal(t, grbl.StatusJog, state.Status)
	require.Equal(t, grbl.Vector{1, 2, 3}, state.MachinePosition)
	require.Len(t, state.CoordinateSystems, len(grbl.CoordinateSystems))

	resp, err := http.Post(s.http.URL+"/state", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServerSettings(t *testing.T) {
	s := newTestServer(t)
	s.response.Decode(s.ctx, "$110=500.000")
	s.response.Decode(s.ctx, "$0=10")

	resp := s.get(t, "/settings")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var settings []Setting
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&settings))
	require.Len(t, settings, 2)
	require.Equal(t, 0, settings[0].Number)
	require.Equal(t, 110, settings[1].Number)
	require.Equal(t, "500.000", settings[1].Value)

	resp = s.get(t, "/settings/0")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var setting Setting
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&setting))
	require.Equal(t, Setting{
		Number:      0,
		Value:       "10",
		Name:        "Step pulse time",
		Unit:        "microseconds",
		Description: setting.Description,
	}, setting)
	require.NotEmpty(t, setting.Description)

	require.Equal(t, http.StatusNotFound, s.get(t, "/settings/1").StatusCode)
	require.Equal(t, http.StatusNotFound, s.get(t, "/settings/x").StatusCode)
}

func TestServerWebSocket(t *testing.T) {
	s := newTestServer(t)
	s.run(t)

	url := "ws" + strings.TrimPrefix(s.http.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	readMessage := func() receivedMessage {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		messageType, data, err := conn.ReadMessage()
		require.NoError(t, err)
		require.Equal(t, websocket.TextMessage, messageType)
		var message receivedMessage
		require.NoError(t, json.Unmarshal(data, &message))
		return message
	}

	message := readMessage()
	require.Equal(t, MessageTypeState, message.Type)

	s.status.Decode(s.ctx, "<Idle>")
	message = readMessage()
	require.Equal(t, "StatusChanged", message.Type)
	var statusChanged grbl.StatusChanged
	require.NoError(t, json.Unmarshal(message.Event, &statusChanged))
	require.Equal(t, grbl.StatusChanged{Old: grbl.StatusNone, New: grbl.StatusIdle}, statusChanged)

	s.response.Decode(s.ctx, "[MSG:Pgm End]")
	message = readMessage()
	require.Equal(t, "FeedbackMessage", message.Type)
	require.JSONEq(t, `{"Text":"Pgm End"}`, string(message.Event))
}

func TestServerSSE(t *testing.T) {
	s := newTestServer(t)
	s.run(t)

	// Keep publishing until the client is subscribed and receives one.
	doneCh := make(chan struct{})
	defer close(doneCh)
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-doneCh:
				return
			case <-ticker.C:
				_ = s.events.Publish(grbl.FeedbackMessage{Text: "hello"})
			}
		}
	}()

	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.http.URL+EventsPath, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	scanner := bufio.NewScanner(resp.Body)
	var event, data string
	for scanner.Scan() {
		line := scanner.Text()
		if after, ok := strings.CutPrefix(line, "event: "); ok {
			event = after
		}
		if after, ok := strings.CutPrefix(line, "data: "); ok && event != "" {
			data = after
			break
		}
	}
	require.Equal(t, "FeedbackMessage", event)
	var message receivedMessage
	require.NoError(t, json.Unmarshal([]byte(data), &message))
	require.Equal(t, "FeedbackMessage", message.Type)
	require.JSONEq(t, `{"Text":"hello"}`, string(message.Event))
}
