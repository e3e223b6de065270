package network

import (
	"context"
	"fmt"
	"sync"

	"github.com/automoto/fpsync/shared/messages"
	"github.com/automoto/fpsync/shared/protocol"
	"github.com/automoto/fpsync/shared/transport"
	"github.com/coder/websocket"
	"github.com/leap-fish/necs/router"
	"github.com/leap-fish/necs/transports"
	"github.com/rs/zerolog"
)

type ClientState int

const (
	StateDisconnected ClientState = iota
	StateConnecting
	StateConnected
	StateJoinedGame
	StateError
)

func (s ClientState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateJoinedGame:
		return "joined"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Client is the websocket end of the client role. It implements
// transport.Link; every decoded message, join replies included, is handed
// to the OnReceive handler on the necs goroutine.
// All shared fields are protected by mu.
type Client struct {
	mu sync.RWMutex

	state     ClientState
	lastError error
	networkID uint32
	playerUID string
	conn      *websocket.Conn
	handler   func(messages.Message)

	log zerolog.Logger
}

func NewClient(log zerolog.Logger) *Client {
	return &Client{
		state: StateDisconnected,
		log:   log.With().Str("component", "client").Logger(),
	}
}

// Connect dials the server in a background goroutine and sends the join
// request once the socket is up.
func (c *Client) Connect(address, version, playerName string) {
	c.mu.Lock()
	c.state = StateConnecting
	c.lastError = nil
	c.mu.Unlock()

	router.OnConnect(func(_ *router.NetworkClient) {
		c.log.Info().Str("address", address).Msg("connected to server")
		c.mu.Lock()
		c.state = StateConnected
		c.mu.Unlock()

		req := messages.JoinRequest{Version: version, PlayerName: playerName}
		if err := c.Send(transport.Server, req); err != nil {
			c.setError(fmt.Errorf("failed to send join request: %w", err))
		}
	})

	router.On(func(_ *router.NetworkClient, frame messages.Frame) {
		msg, err := protocol.Unmarshal(frame.Data)
		if err != nil {
			c.log.Warn().Err(err).Int("bytes", len(frame.Data)).Msg("dropping undecodable frame")
			return
		}
		c.track(msg)

		c.mu.RLock()
		handler := c.handler
		c.mu.RUnlock()
		if handler != nil {
			handler(msg)
		}
	})

	router.OnDisconnect(func(_ *router.NetworkClient, err error) {
		c.log.Info().Err(err).Msg("disconnected")
		c.mu.Lock()
		if c.state != StateError {
			c.state = StateDisconnected
		}
		c.conn = nil
		c.mu.Unlock()
	})

	router.OnError(func(_ *router.NetworkClient, err error) {
		c.log.Error().Err(err).Msg("transport error")
	})

	go func() {
		t := transports.NewWsClientTransport("ws://" + address)
		err := t.Start(func(conn *websocket.Conn) {
			c.mu.Lock()
			c.conn = conn
			c.mu.Unlock()
		})
		if err != nil {
			c.setError(fmt.Errorf("connection failed: %w", err))
		}
	}()
}

// track updates the connection state from join replies.
func (c *Client) track(msg messages.Message) {
	switch m := msg.(type) {
	case messages.JoinAccepted:
		c.log.Info().
			Uint32("network_id", m.NetworkID).
			Str("server", m.ServerName).
			Uint32("tick_rate", m.TickRate).
			Msg("join accepted")
		c.mu.Lock()
		c.networkID = m.NetworkID
		c.playerUID = m.PlayerUID
		c.state = StateJoinedGame
		c.mu.Unlock()
	case messages.JoinRejected:
		c.log.Warn().Str("reason", m.Reason).Msg("join rejected")
		c.setError(fmt.Errorf("join rejected: %s", m.Reason))
	}
}

func (c *Client) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.state = StateDisconnected
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.CloseNow()
	}

	router.ResetRouter()
}

// OnReceive installs the handler for decoded messages.
func (c *Client) OnReceive(fn func(messages.Message)) {
	c.mu.Lock()
	c.handler = fn
	c.mu.Unlock()
}

// Send encodes msg and writes it to the server. Only the server role is
// reachable from a client.
func (c *Client) Send(to transport.Role, msg messages.Message) error {
	if to != transport.Server {
		return transport.ErrWrongRole
	}

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return transport.ErrNotConnected
	}

	data, err := protocol.Marshal(msg)
	if err != nil {
		return err
	}
	payload, err := router.Serialize(messages.Frame{Data: data})
	if err != nil {
		return fmt.Errorf("serialize: %w", err)
	}
	return conn.Write(context.Background(), websocket.MessageBinary, payload)
}

func (c *Client) State() ClientState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastError
}

func (c *Client) NetworkID() uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.networkID
}

func (c *Client) PlayerUID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerUID
}

func (c *Client) setError(err error) {
	c.mu.Lock()
	c.state = StateError
	c.lastError = err
	c.mu.Unlock()
}
