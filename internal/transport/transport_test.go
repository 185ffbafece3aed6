package transport

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/peachraft/raftkv/internal/raft"
	"github.com/peachraft/raftkv/internal/wire"
)

// freeAddr binds a throwaway listener just to reserve a free host:port,
// closes it, and hands the address back for a node to bind to next.
func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().String()
}

func TestPeerChannelDeliversRequestVoteOverUDP(t *testing.T) {
	addrA := freeAddr(t)
	addrB := freeAddr(t)

	nodeA, pcA, ccA := startNodeAt(t, addrA, []string{addrB})
	nodeB, _, ccB := startNodeAt(t, addrB, []string{addrA})
	_ = ccA
	_ = ccB

	pcA.SendTo(&raft.RequestVoteRequest{
		Term:         1,
		Address:      addrA,
		LastLogIndex: 0,
		LastLogTerm:  0,
	}, addrB)

	require.Eventually(t, func() bool {
		return nodeB.VotedFor != nil && *nodeB.VotedFor == addrA
	}, 2*time.Second, 10*time.Millisecond)

	_ = nodeA
}

func startNodeAt(t *testing.T, addr string, peers []string) (*raft.Node, *PeerChannel, *ClientChannel) {
	t.Helper()
	logger := zap.NewNop()

	node := raft.NewNode(addr, peers, logger, raft.NewRealClock())

	pc, err := NewPeerChannel(addr, node, logger)
	require.NoError(t, err)
	node.AttachTransport(pc)

	cc, err := NewClientChannel(addr, node, logger)
	require.NoError(t, err)

	go node.Run()
	go pc.Serve()
	go cc.Serve()

	t.Cleanup(func() {
		node.Stop()
		pc.Close()
		cc.Close()
	})
	return node, pc, cc
}

func TestClientChannelRedirectsWhenNotLeader(t *testing.T) {
	addr := freeAddr(t)
	_, _, _ = startNodeAt(t, addr, nil)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	data, err := raft.EncodeClientMessage(&raft.GetRequest{})
	require.NoError(t, err)
	require.NoError(t, wire.WriteFramed(conn, data))

	raw, err := wire.ReadFramed(conn)
	require.NoError(t, err)
	env, err := wire.DecodeEnvelope(raw)
	require.NoError(t, err)
	resp, err := raft.DecodeClientMessage(env.Kind, env.Payload)
	require.NoError(t, err)

	redirect, ok := resp.(*raft.RedirectResponse)
	require.True(t, ok)
	assert.Nil(t, redirect.Leader)
}
