package raftclient

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/peachraft/raftkv/internal/raft"
	"github.com/peachraft/raftkv/internal/wire"
)

// stubServer accepts a single connection and answers it with one canned
// response, so tests can script a redirect chain across multiple stubs.
func stubServer(t *testing.T, respond func(req raft.ClientMessage) raft.ClientMessage) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		data, err := wire.ReadFramed(conn)
		if err != nil {
			return
		}
		env, err := wire.DecodeEnvelope(data)
		if err != nil {
			return
		}
		req, err := raft.DecodeClientMessage(env.Kind, env.Payload)
		if err != nil {
			return
		}
		resp := respond(req)
		out, err := raft.EncodeClientMessage(resp)
		if err != nil {
			return
		}
		wire.WriteFramed(conn, out)
	}()

	return l.Addr().String()
}

func TestClientFollowsRedirectToLeader(t *testing.T) {
	var leaderAddr string

	leader := stubServer(t, func(req raft.ClientMessage) raft.ClientMessage {
		_, ok := req.(*raft.GetRequest)
		require.True(t, ok)
		return &raft.ResultResponse{Success: true, State: map[string]string{"k": "v"}}
	})
	leaderAddr = leader

	follower := stubServer(t, func(req raft.ClientMessage) raft.ClientMessage {
		addr := leaderAddr
		return &raft.RedirectResponse{Leader: &addr}
	})

	c := New([]string{follower})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	state, err := c.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "v", state["k"])
}

func TestClientSetSucceedsOnCommittedResult(t *testing.T) {
	addr := stubServer(t, func(req raft.ClientMessage) raft.ClientMessage {
		replicate, ok := req.(*raft.ReplicateRequest)
		require.True(t, ok)
		require.Equal(t, "set", replicate.Command)
		require.Equal(t, []string{"k", "v"}, replicate.Arguments)
		return &raft.ResultResponse{Success: true}
	})

	c := New([]string{addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, c.Set(ctx, "k", "v"))
}
