package raft

import "go.uber.org/zap"

type followerRole struct {
	node  *Node
	timer *electionTimer
}

func newFollower(n *Node) *followerRole {
	return &followerRole{node: n, timer: newElectionTimer(n)}
}

func (f *followerRole) Name() string { return RoleFollower }

func (f *followerRole) Teardown() {
	f.timer.cancel()
}

func (f *followerRole) HandlePeerMessage(msg PeerMessage, from string) bool {
	switch m := msg.(type) {
	case *AppendEntriesRequest:
		f.handleAppendEntries(m, from)
	case *RequestVoteRequest:
		f.handleRequestVote(m)
	default:
		f.node.logger.Debug("follower ignoring peer message", zap.String("kind", msg.Kind()), zap.String("from", from))
	}
	return false
}

func (f *followerRole) handleAppendEntries(m *AppendEntriesRequest, from string) {
	n := f.node
	termCurrent := m.Term >= n.CurrentTerm
	logMatches := n.Log.LastIndex() >= m.PrevLogIndex && n.Log.Get(m.PrevLogIndex).Term == m.PrevLogTerm
	success := termCurrent && logMatches

	if termCurrent {
		f.timer.reset()
		leader := m.Address
		n.Leader = &leader
	}
	if success {
		n.Log.AppendEntries(m.Entries, m.PrevLogIndex)
		n.Log.Commit(m.LeaderCommit)
	}

	n.Transport.SendTo(&AppendEntriesResponse{
		Term:      n.CurrentTerm,
		Address:   n.Address,
		Success:   success,
		LastIndex: n.Log.LastIndex(),
	}, from)
}

func (f *followerRole) handleRequestVote(m *RequestVoteRequest) {
	n := f.node
	termCurrent := m.Term >= n.CurrentTerm
	canVote := n.VotedFor == nil || *n.VotedFor == m.Address
	logUpToDate := m.LastLogTerm > n.Log.LastTerm() ||
		(m.LastLogTerm == n.Log.LastTerm() && m.LastLogIndex >= n.Log.LastIndex())
	granted := termCurrent && canVote && logUpToDate

	if granted {
		candidate := m.Address
		n.VotedFor = &candidate
		f.timer.reset()
	}

	n.Transport.SendTo(&RequestVoteResponse{
		Term:        n.CurrentTerm,
		Address:     n.Address,
		VoteGranted: granted,
	}, m.Address)
}

func (f *followerRole) HandleClientMessage(msg ClientMessage, session ClientSession) {
	redirectClient(f.node, session)
}
