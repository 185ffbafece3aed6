// Package transport wires the coordinator in internal/raft to real
// sockets: peer traffic rides UDP datagrams, client requests ride a
// one-shot TCP stream per request. Both listen on the same host:port a
// node is configured with.
package transport

import (
	"net"
	"strings"

	"go.uber.org/zap"

	"github.com/peachraft/raftkv/internal/raft"
	"github.com/peachraft/raftkv/internal/wire"
)

// PeerChannel is the UDP adapter for inter-node RPCs. A datagram is
// already a complete message, so no length-prefix framing is needed
// here the way it is on the TCP client channel.
type PeerChannel struct {
	conn   *net.UDPConn
	node   *raft.Node
	logger *zap.Logger
}

func NewPeerChannel(address string, node *raft.Node, logger *zap.Logger) (*PeerChannel, error) {
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, err
	}
	return &PeerChannel{conn: conn, node: node, logger: logger}, nil
}

// Serve reads datagrams until the socket is closed. Run it in its own
// goroutine.
func (p *PeerChannel) Serve() {
	buf := make([]byte, 64*1024)
	for {
		n, _, err := p.conn.ReadFromUDP(buf)
		if err != nil {
			if isClosedErr(err) {
				return
			}
			p.logger.Warn("peer channel read failed", zap.Error(err))
			continue
		}
		data := append([]byte(nil), buf[:n]...)
		msg, err := decodePeerDatagram(data)
		if err != nil {
			p.logger.Warn("dropping malformed peer message", zap.Error(err))
			continue
		}
		p.node.DeliverPeerMessage(msg, msg.GetAddress())
	}
}

func decodePeerDatagram(data []byte) (raft.PeerMessage, error) {
	env, err := wire.DecodeEnvelope(data)
	if err != nil {
		return nil, err
	}
	return raft.DecodePeerMessage(env.Kind, env.Payload)
}

// SendTo implements raft.PeerTransport.
func (p *PeerChannel) SendTo(msg raft.PeerMessage, address string) {
	data, err := raft.EncodePeerMessage(msg)
	if err != nil {
		p.logger.Error("failed to encode peer message", zap.String("kind", msg.Kind()), zap.Error(err))
		return
	}
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		p.logger.Error("failed to resolve peer address", zap.String("address", address), zap.Error(err))
		return
	}
	if _, err := p.conn.WriteToUDP(data, addr); err != nil {
		p.logger.Warn("failed to send peer message", zap.String("address", address), zap.Error(err))
	}
}

// Broadcast implements raft.PeerTransport.
func (p *PeerChannel) Broadcast(msg raft.PeerMessage) {
	for _, addr := range p.node.Network {
		p.SendTo(msg, addr)
	}
}

func (p *PeerChannel) Close() error {
	return p.conn.Close()
}

func isClosedErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "use of closed network connection")
}
