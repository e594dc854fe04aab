package ws

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"tilewalk/client/internal/grid"
	"tilewalk/client/internal/motion"
	"tilewalk/client/internal/movement"
	"tilewalk/client/internal/net/proto"
	"tilewalk/client/internal/telemetry"
)

type recordedMove struct {
	id       string
	mode     motion.Mode
	target   grid.Coordinate
	duration time.Duration
}

type recordingEvents struct {
	moves     chan recordedMove
	turns     chan grid.Direction
	tooEarly  chan struct{}
	locations chan grid.Coordinate
}

func newRecordingEvents() *recordingEvents {
	return &recordingEvents{
		moves:     make(chan recordedMove, 8),
		turns:     make(chan grid.Direction, 8),
		tooEarly:  make(chan struct{}, 8),
		locations: make(chan grid.Coordinate, 8),
	}
}

func (r *recordingEvents) ExecuteServerRespMove(id string, mode motion.Mode, target grid.Coordinate, duration time.Duration) {
	r.moves <- recordedMove{id: id, mode: mode, target: target, duration: duration}
}

func (r *recordingEvents) ExecuteServerRespTurn(dir grid.Direction) { r.turns <- dir }
func (r *recordingEvents) ExecuteServerRespMoveTooEarly() { r.tooEarly <- struct{}{} }
func (r *recordingEvents) ExecuteServerLocation(at grid.Coordinate) { r.locations <- at }

// fakeServer answers moves and turns, and echoes pings with the client time
// shifted back by pingSkew.
func fakeServer(t *testing.T, received chan<- proto.ClientMessage, pingSkew time.Duration) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "p1" {
			http.Error(w, "missing id", http.StatusBadRequest)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		location, _ := proto.EncodeLocation(grid.At(3, 4, 0))
		if err := conn.WriteMessage(websocket.TextMessage, location); err != nil {
			return
		}
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			msg, err := proto.DecodeClientMessage(payload)
			if err != nil {
				continue
			}
			if received != nil {
				received <- msg
			}
			var reply []byte
			switch msg.Type {
			case proto.TypeMove:
				mode, _ := motion.ParseMode(msg.Mode)
				dir, _ := grid.ParseDirection(msg.Direction)
				reply, _ = proto.EncodeMoveResp(msg.ID, mode, msg.From.Coordinate().Add(dir, 1), 400*time.Millisecond)
			case proto.TypeTurn:
				dir, _ := grid.ParseDirection(msg.Direction)
				reply, _ = proto.EncodeTurnResp(dir)
			case proto.TypePing:
				reply, _ = proto.EncodePingEcho(msg.SentAt-pingSkew.Milliseconds(), time.Now())
			}
			if reply != nil {
				if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func websocketURL(serverURL string) string {
	return "ws" + strings.TrimPrefix(serverURL, "http")
}

func dialTest(t *testing.T, srv *httptest.Server, cfg Config, events ServerEvents) *Client {
	t.Helper()
	cfg.URL = websocketURL(srv.URL)
	cfg.PlayerID = "p1"
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	client, err := Dial(ctx, cfg, events)
	if err != nil {
		t.Fatalf("failed to dial test server: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestClientRoundTripsMoveCommand(t *testing.T) {
	received := make(chan proto.ClientMessage, 8)
	srv := fakeServer(t, received, 0)

	events := newRecordingEvents()
	client := dialTest(t, srv, Config{}, events)

	select {
	case at := <-events.locations:
		if at != grid.At(3, 4, 0) {
			t.Fatalf("expected initial location (3,4,0), got %v", at)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for initial location")
	}

	err := client.SendCommand(movement.Command{
		ID:       "cmd-1",
		PlayerID: "p1",
		Type:     movement.CommandMove,
		IssuedAt: time.Now(),
		Move:     &movement.MoveCommand{Mode: motion.ModeWalk, Direction: grid.East, From: grid.At(3, 4, 0)},
	})
	if err != nil {
		t.Fatalf("expected send to succeed, got %v", err)
	}

	select {
	case msg := <-received:
		if msg.ID != "cmd-1" || msg.Type != proto.TypeMove {
			t.Fatalf("expected move cmd-1 on the wire, got %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for server to receive command")
	}

	select {
	case move := <-events.moves:
		if move.target != grid.At(4, 4, 0) || move.duration != 400*time.Millisecond || move.mode != motion.ModeWalk {
			t.Fatalf("unexpected move response %+v", move)
		}
		if move.id != "cmd-1" {
			t.Fatalf("expected response for cmd-1, got %q", move.id)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for move response")
	}
}

func TestClientDispatchesTurnResponse(t *testing.T) {
	srv := fakeServer(t, nil, 0)

	events := newRecordingEvents()
	client := dialTest(t, srv, Config{SendRate: 50, SendBurst: 1}, events)

	err := client.SendCommand(movement.Command{
		ID:   "cmd-2",
		Type: movement.CommandTurn,
		Turn: &movement.TurnCommand{Direction: grid.NorthWest},
	})
	if err != nil {
		t.Fatalf("expected send to succeed, got %v", err)
	}
	select {
	case dir := <-events.turns:
		if dir != grid.NorthWest {
			t.Fatalf("expected northwest, got %s", dir)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for turn response")
	}
}

func TestClientMeasuresPing(t *testing.T) {
	srv := fakeServer(t, nil, 50*time.Millisecond)

	metrics := telemetry.NewCounters()
	client := dialTest(t, srv, Config{PingInterval: time.Hour, Metrics: metrics}, newRecordingEvents())

	deadline := time.Now().Add(2 * time.Second)
	for client.Ping() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for ping measurement")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if client.Ping() < 50*time.Millisecond {
		t.Fatalf("expected ping of at least 50ms, got %s", client.Ping())
	}
	if metrics.Value(telemetry.KeyPingMillis) < 50 {
		t.Fatalf("expected ping metric of at least 50, got %d", metrics.Value(telemetry.KeyPingMillis))
	}
}

func TestSendAfterCloseFails(t *testing.T) {
	srv := fakeServer(t, nil, 0)

	client := dialTest(t, srv, Config{}, newRecordingEvents())
	if err := client.Close(); err != nil {
		t.Fatalf("expected clean close, got %v", err)
	}
	select {
	case <-client.Done():
	default:
		t.Fatalf("expected done channel closed after Close")
	}
	err := client.SendCommand(movement.Command{ID: "late", Type: movement.CommandTurn, Turn: &movement.TurnCommand{Direction: grid.North}})
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestDialRejectsMissingEvents(t *testing.T) {
	if _, err := Dial(context.Background(), Config{URL: "ws://127.0.0.1:1"}, nil); err == nil {
		t.Fatalf("expected error without event sink")
	}
}
