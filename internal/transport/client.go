package transport

import (
	"net"

	"go.uber.org/zap"

	"github.com/peachraft/raftkv/internal/raft"
	"github.com/peachraft/raftkv/internal/wire"
)

// ClientChannel is the TCP adapter clients use to send a single request
// and read back a single response. Each connection carries exactly one
// request/response pair and is then closed.
type ClientChannel struct {
	listener net.Listener
	node     *raft.Node
	logger   *zap.Logger
}

func NewClientChannel(address string, node *raft.Node, logger *zap.Logger) (*ClientChannel, error) {
	l, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}
	return &ClientChannel{listener: l, node: node, logger: logger}, nil
}

// Serve accepts connections until the listener is closed. Run it in its
// own goroutine.
func (c *ClientChannel) Serve() {
	for {
		conn, err := c.listener.Accept()
		if err != nil {
			if isClosedErr(err) {
				return
			}
			c.logger.Warn("client channel accept failed", zap.Error(err))
			continue
		}
		go c.handle(conn)
	}
}

func (c *ClientChannel) handle(conn net.Conn) {
	data, err := wire.ReadFramed(conn)
	if err != nil {
		c.logger.Warn("failed to read client request", zap.Error(err))
		conn.Close()
		return
	}
	env, err := wire.DecodeEnvelope(data)
	if err != nil {
		c.logger.Warn("dropping malformed client message", zap.Error(err))
		conn.Close()
		return
	}
	msg, err := raft.DecodeClientMessage(env.Kind, env.Payload)
	if err != nil {
		c.logger.Warn("unknown client message kind", zap.String("kind", env.Kind), zap.Error(err))
		conn.Close()
		return
	}
	c.node.DeliverClientMessage(msg, &clientSession{conn: conn, logger: c.logger})
}

func (c *ClientChannel) Close() error {
	return c.listener.Close()
}

// clientSession implements raft.ClientSession over a single TCP
// connection. Respond always closes the connection afterwards: one
// request, one response.
type clientSession struct {
	conn   net.Conn
	logger *zap.Logger
}

func (s *clientSession) Respond(msg raft.ClientMessage) {
	defer s.conn.Close()
	data, err := raft.EncodeClientMessage(msg)
	if err != nil {
		s.logger.Error("failed to encode client response", zap.String("kind", msg.Kind()), zap.Error(err))
		return
	}
	if err := wire.WriteFramed(s.conn, data); err != nil {
		s.logger.Warn("failed to write client response", zap.Error(err))
	}
}
