package raft

import "go.uber.org/zap"

// candidateRole composes its own electionTimer rather than embedding
// followerRole: in the original implementation Candidate subclassed
// Follower purely to reuse the timer, which also dragged in Follower's
// AppendEntries/RequestVote handling by accident. Composition keeps the
// timer behavior shared without implying Candidate should inherit
// Follower's message handling.
type candidateRole struct {
	node  *Node
	timer *electionTimer
	votes uint32
}

func newCandidate(n *Node) *candidateRole {
	n.CurrentTerm++
	self := n.Address
	n.VotedFor = &self
	n.Leader = nil

	c := &candidateRole{node: n, votes: 1}
	c.timer = newElectionTimer(n)
	c.requestVotes()
	return c
}

func (c *candidateRole) Name() string { return RoleCandidate }

func (c *candidateRole) Teardown() {
	c.timer.cancel()
}

func (c *candidateRole) requestVotes() {
	n := c.node
	n.Transport.Broadcast(&RequestVoteRequest{
		Term:         n.CurrentTerm,
		Address:      n.Address,
		LastLogIndex: n.Log.LastIndex(),
		LastLogTerm:  n.Log.LastTerm(),
	})
}

func (c *candidateRole) HandlePeerMessage(msg PeerMessage, from string) bool {
	switch m := msg.(type) {
	case *AppendEntriesRequest:
		// A same-term AppendEntries means another node already won this
		// term's election; step down and let the new Follower handle it.
		if m.Term >= c.node.CurrentTerm {
			c.node.transitionTo(newFollower(c.node))
			return true
		}
	case *RequestVoteResponse:
		c.handleVoteResponse(m)
	default:
		c.node.logger.Debug("candidate ignoring peer message", zap.String("kind", msg.Kind()), zap.String("from", from))
	}
	return false
}

func (c *candidateRole) handleVoteResponse(m *RequestVoteResponse) {
	if m.Term < c.node.CurrentTerm || !m.VoteGranted {
		return
	}
	c.votes++
	majority := (len(c.node.Network) + 1) / 2
	if int(c.votes) > majority {
		c.node.transitionTo(newLeader(c.node))
	}
}

func (c *candidateRole) HandleClientMessage(msg ClientMessage, session ClientSession) {
	redirectClient(c.node, session)
}
