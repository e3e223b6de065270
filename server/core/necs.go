package core

import (
	"fmt"
	"sync"

	"github.com/automoto/fpsync/shared/messages"
	"github.com/automoto/fpsync/shared/protocol"
	"github.com/automoto/fpsync/shared/transport"
	"github.com/leap-fish/necs/router"
	"github.com/leap-fish/necs/transports"
)

// wsPeer sends protocol frames to one websocket client.
type wsPeer struct {
	client *router.NetworkClient
}

func (p wsPeer) Send(to transport.Role, msg messages.Message) error {
	if to != transport.Client {
		return transport.ErrWrongRole
	}
	data, err := protocol.Marshal(msg)
	if err != nil {
		return err
	}
	if err := p.client.SendMessage(messages.Frame{Data: data}); err != nil {
		return fmt.Errorf("send %s: %w", msg.Kind(), err)
	}
	return nil
}

// ServeWebsocket accepts clients on port and blocks until the transport
// stops. The necs router is process-wide, so one process serves one Server.
func (s *Server) ServeWebsocket(port uint) error {
	var mu sync.Mutex
	conns := make(map[*router.NetworkClient]*Conn)

	lookup := func(client *router.NetworkClient) *Conn {
		mu.Lock()
		defer mu.Unlock()
		return conns[client]
	}

	router.OnConnect(func(client *router.NetworkClient) {
		s.log.Info().Str("client", client.Id()).Msg("Client connected")
		c := s.Accept(wsPeer{client: client})
		mu.Lock()
		conns[client] = c
		mu.Unlock()
	})

	router.OnDisconnect(func(client *router.NetworkClient, err error) {
		s.log.Info().Str("client", client.Id()).Err(err).Msg("Client disconnected")
		mu.Lock()
		c := conns[client]
		delete(conns, client)
		mu.Unlock()
		if c != nil {
			c.Close()
		}
	})

	router.On(func(client *router.NetworkClient, frame messages.Frame) {
		c := lookup(client)
		if c == nil {
			return
		}
		msg, err := protocol.Unmarshal(frame.Data)
		if err != nil {
			s.log.Warn().Err(err).Str("client", client.Id()).Msg("dropping undecodable frame")
			return
		}
		c.Handle(msg, s.clock())
	})

	router.OnError(func(client *router.NetworkClient, err error) {
		s.log.Error().Err(err).Msg("Client error")
	})

	t := transports.NewWsServerTransport(port, "", nil)
	return t.Start()
}
