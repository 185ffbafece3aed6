// Package raftclient is a small Go client for the replicated key-value
// store: it knows nothing about consensus, only the client wire
// protocol, and follows leader redirects until a request lands on the
// current leader.
package raftclient

import (
	"context"
	"math/rand"
	"net"
	"sync"

	"github.com/pkg/errors"

	"github.com/peachraft/raftkv/internal/raft"
	"github.com/peachraft/raftkv/internal/wire"
)

const maxAttempts = 5

// Client talks to one cluster over TCP. It is safe for concurrent use.
type Client struct {
	network []string

	mu     sync.Mutex
	leader string // cached; empty means "try a random member"
}

// New builds a client that knows about the given cluster members.
func New(network []string) *Client {
	return &Client{network: append([]string(nil), network...)}
}

// Get returns a snapshot of the store's current key-value state. A
// dial failure against a stale cached leader is retried against
// another cluster member rather than surfaced immediately.
func (c *Client) Get(ctx context.Context) (map[string]string, error) {
	result, err := c.withRetry(ctx, &raft.GetRequest{}, "raftclient: get did not succeed")
	if err != nil {
		return nil, err
	}
	return result.State, nil
}

// Set replicates a write of key=value across the cluster and returns
// once it is committed.
func (c *Client) Set(ctx context.Context, key, value string) error {
	return c.replicate(ctx, "set", key, value)
}

// Delete replicates a deletion of key and returns once it is committed.
// Deleting a key that does not exist is not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	return c.replicate(ctx, "delete", key)
}

func (c *Client) replicate(ctx context.Context, command string, args ...string) error {
	req := &raft.ReplicateRequest{Command: command, Arguments: args}
	_, err := c.withRetry(ctx, req, "raftclient: replicate rejected")
	return err
}

// withRetry sends msg, following redirects, making at most maxAttempts
// attempts in total. It retries on transport failure (the cached leader
// is dropped, so the next attempt goes to a random network member) and
// on an unsuccessful result (the cached leader, if any, is kept).
func (c *Client) withRetry(ctx context.Context, msg raft.ClientMessage, failureMsg string) (*raft.ResultResponse, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := c.roundTrip(ctx, msg)
		if err != nil {
			lastErr = err
			continue
		}
		result, ok := resp.(*raft.ResultResponse)
		if ok && result.Success {
			return result, nil
		}
		lastErr = errors.New(failureMsg)
	}
	return nil, lastErr
}

// roundTrip sends msg to the cached (or a random) cluster member,
// following at most one redirect hop per retry attempt and rotating
// the cached leader on any failure.
func (c *Client) roundTrip(ctx context.Context, msg raft.ClientMessage) (raft.ClientMessage, error) {
	address := c.currentTarget()
	resp, err := c.send(ctx, address, msg)
	if err != nil {
		c.forgetLeader()
		return nil, err
	}
	redirect, ok := resp.(*raft.RedirectResponse)
	if !ok {
		return resp, nil
	}
	if redirect.Leader == nil || *redirect.Leader == "" {
		c.forgetLeader()
		return nil, errors.New("raftclient: no leader known cluster-wide")
	}
	c.setLeader(*redirect.Leader)
	resp, err = c.send(ctx, *redirect.Leader, msg)
	if err != nil {
		c.forgetLeader()
		return nil, err
	}
	return resp, nil
}

func (c *Client) send(ctx context.Context, address string, msg raft.ClientMessage) (raft.ClientMessage, error) {
	data, err := raft.EncodeClientMessage(msg)
	if err != nil {
		return nil, errors.Wrap(err, "raftclient: encode request")
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, errors.Wrapf(err, "raftclient: dial %s", address)
	}
	defer conn.Close()

	if err := wire.WriteFramed(conn, data); err != nil {
		return nil, errors.Wrap(err, "raftclient: write request")
	}
	raw, err := wire.ReadFramed(conn)
	if err != nil {
		return nil, errors.Wrap(err, "raftclient: read response")
	}
	env, err := wire.DecodeEnvelope(raw)
	if err != nil {
		return nil, errors.Wrap(err, "raftclient: decode response envelope")
	}
	resp, err := raft.DecodeClientMessage(env.Kind, env.Payload)
	if err != nil {
		return nil, errors.Wrap(err, "raftclient: decode response payload")
	}
	return resp, nil
}

func (c *Client) currentTarget() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.leader != "" {
		return c.leader
	}
	return c.network[rand.Intn(len(c.network))]
}

func (c *Client) setLeader(address string) {
	c.mu.Lock()
	c.leader = address
	c.mu.Unlock()
}

func (c *Client) forgetLeader() {
	c.mu.Lock()
	c.leader = ""
	c.mu.Unlock()
}
