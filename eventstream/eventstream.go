package eventstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	stdlog "log"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"sync/atomic"

	sse "github.com/alexandrevicenzi/go-sse"
	"github.com/fornellas/slogxt/log"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/cn5x/grbldecode/broker"
	"github.com/cn5x/grbldecode/grbl"
)

// EventsPath is the Server-Sent Events channel where all messages are sent to.
const EventsPath = "/events/state"

const (
	eventBufferSize  = 1024
	clientBufferSize = 256
)

// MessageTypeState is the type of messages holding a full state snapshot.
const MessageTypeState = "State"

// Message is what is streamed to clients: either a full state snapshot or a single change event,
// in which case Type is the event name.
type Message struct {
	Type  string             `json:"type"`
	Event grbl.Event         `json:"event,omitempty"`
	State *grbl.MachineState `json:"state,omitempty"`
}

// Setting is a $N setting along with its description.
type Setting struct {
	Number      int    `json:"number"`
	Value       string `json:"value"`
	Name        string `json:"name"`
	Unit        string `json:"unit"`
	Description string `json:"description"`
}

// Server streams machine state changes to remote clients over HTTP. Routes:
//
//	GET /state              current state snapshot
//	GET /settings           all received settings
//	GET /settings/{number}  a single setting
//	GET /events/state       Server-Sent Events stream of messages
//	GET /ws                 WebSocket stream of messages, starting with a state snapshot
type Server struct {
	http.Handler
	logger   *slog.Logger
	machine  *grbl.Machine
	events   *broker.Broker[grbl.Event]
	clients  *broker.Broker[[]byte]
	sse      *sse.Server
	upgrader websocket.Upgrader
	clientID atomic.Uint64
}

// NewServer creates a Server for machine. Events published to events are streamed once Run is
// called.
func NewServer(ctx context.Context, machine *grbl.Machine, events *broker.Broker[grbl.Event]) *Server {
	router := mux.NewRouter()

	s := &Server{
		Handler: router,
		logger:  log.MustLogger(ctx),
		machine: machine,
		events:  events,
		clients: broker.NewBroker[[]byte](),
		sse: sse.NewServer(&sse.Options{
			Logger: stdlog.New(io.Discard, "", 0),
		}),
	}

	router.HandleFunc("/state", s.getState).Methods(http.MethodGet)
	router.HandleFunc("/settings", s.getSettings).Methods(http.MethodGet)
	router.HandleFunc("/settings/{number:[0-9]+}", s.getSetting).Methods(http.MethodGet)
	router.PathPrefix("/events/").Handler(s.sse).Methods(http.MethodGet)
	router.HandleFunc("/ws", s.serveWebSocket).Methods(http.MethodGet)

	return s
}

// Run forwards events to all connected clients until ctx is done or the events broker is closed.
func (s *Server) Run(ctx context.Context) error {
	const name = "eventstream"
	eventCh := s.events.Subscribe(name, eventBufferSize)
	defer s.events.Unsubscribe(name)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-eventCh:
			if !ok {
				return nil
			}
			if err := s.publish(Message{Type: event.Name(), Event: event}); err != nil {
				log.MustLogger(ctx).Error("Failed to publish event", "event", event.Name(), "err", err)
			}
		}
	}
}

func (s *Server) publish(message Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("eventstream: marshal error: %w", err)
	}
	s.sse.SendMessage(EventsPath, sse.NewMessage("", string(data), message.Type))
	if err := s.clients.Publish(data); err != nil && !errors.Is(err, broker.ErrNoSubscribers) {
		return fmt.Errorf("eventstream: %w", err)
	}
	return nil
}

// Close disconnects all streaming clients.
func (s *Server) Close() {
	s.sse.Shutdown()
	s.clients.Close()
}

func (s *Server) stateMessage() ([]byte, error) {
	state := s.machine.Snapshot()
	return json.Marshal(Message{Type: MessageTypeState, State: &state})
}

func (s *Server) writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(value); err != nil {
		s.logger.Error("Failed to write response", "err", err)
	}
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	state := s.machine.Snapshot()
	s.writeJSON(w, Message{Type: MessageTypeState, State: &state})
}

func newSetting(number int, value string) Setting {
	description, _ := grbl.LookupSetting(number)
	return Setting{
		Number:      number,
		Value:       value,
		Name:        description.Name,
		Unit:        description.Unit,
		Description: description.Description,
	}
}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	state := s.machine.Snapshot()
	settings := make([]Setting, 0, len(state.Settings))
	for number, value := range state.Settings {
		settings = append(settings, newSetting(number, value))
	}
	slices.SortFunc(settings, func(a, b Setting) int { return a.Number - b.Number })
	s.writeJSON(w, settings)
}

func (s *Server) getSetting(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(mux.Vars(r)["number"])
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	value, ok := s.machine.Setting(number)
	if !ok {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	s.writeJSON(w, newSetting(number, value))
}

func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	logger := s.logger.With("remote-addr", r.RemoteAddr)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed", "err", err)
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Debug("WebSocket close failed", "err", err)
		}
	}()

	name := fmt.Sprintf("websocket-%d", s.clientID.Add(1))
	dataCh := s.clients.Subscribe(name, clientBufferSize)
	defer s.clients.Unsubscribe(name)
	logger.Info("WebSocket client connected", "name", name)

	data, err := s.stateMessage()
	if err != nil {
		logger.Error("Failed to marshal state", "err", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		logger.Debug("WebSocket write failed", "err", err)
		return
	}

	// Incoming messages are ignored, reading only detects the client going away.
	closedCh := make(chan struct{})
	go func() {
		defer close(closedCh)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closedCh:
			logger.Info("WebSocket client disconnected", "name", name)
			return
		case data, ok := <-dataCh:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Debug("WebSocket write failed", "err", err)
				return
			}
		}
	}
}
