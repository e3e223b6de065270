// Package transport defines how the two roles exchange typed messages and
// ships an in-memory link with injected latency, jitter and loss.
package transport

import (
	"errors"

	"github.com/automoto/fpsync/shared/messages"
)

// Role is one side of the simulation.
type Role uint8

const (
	Server Role = iota
	Client
)

func (r Role) String() string {
	switch r {
	case Server:
		return "server"
	case Client:
		return "client"
	}
	return "unknown"
}

// Peer returns the opposite role.
func (r Role) Peer() Role {
	if r == Server {
		return Client
	}
	return Server
}

var (
	ErrWrongRole    = errors.New("transport: message addressed to own role")
	ErrNotConnected = errors.New("transport: not connected")
)

// Sender delivers msg to the role to. Sends are fire-and-forget: a nil
// error does not mean the message arrived.
type Sender interface {
	Send(to Role, msg messages.Message) error
}

// Link is one role's end of a connection.
type Link interface {
	Sender
	// OnReceive installs the handler for arriving messages. It may be called
	// from a transport goroutine.
	OnReceive(fn func(messages.Message))
}
