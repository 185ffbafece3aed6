package raft

import (
	"sort"

	"go.uber.org/zap"
)

// appendEntriesBatchSize caps how many entries a single AppendEntries
// carries, so a far-behind follower is backfilled gradually rather than
// in one unbounded message.
const appendEntriesBatchSize = 100

// leaderRole tracks per-peer replication progress and the clients
// blocked waiting for their command to commit.
type leaderRole struct {
	node *Node

	nextIndex      map[string]uint64
	matchIndex     map[string]uint64
	waitingClients map[uint64]ClientSession

	heartbeat *heartbeatTimer
}

func newLeader(n *Node) *leaderRole {
	leader := n.Address
	n.Leader = &leader

	l := &leaderRole{
		node:           n,
		nextIndex:      make(map[string]uint64, len(n.Network)+1),
		matchIndex:     make(map[string]uint64, len(n.Network)+1),
		waitingClients: make(map[uint64]ClientSession),
	}
	for _, peer := range n.Network {
		l.nextIndex[peer] = n.Log.LastIndex() + 1
		l.matchIndex[peer] = 0
	}

	// A fresh no_op entry pins commit eligibility to this leader's own
	// term immediately, rather than waiting on the first client write.
	n.Log.AppendEntries([]LogEntry{{Term: n.CurrentTerm, Command: Command{Kind: CommandNoOp}}}, n.Log.LastIndex())

	l.nextIndex[n.Address] = n.Log.LastIndex() + 1
	l.matchIndex[n.Address] = n.Log.LastIndex()

	l.broadcastAppendEntries()
	l.heartbeat = newHeartbeatTimer(n, l.broadcastAppendEntries)
	return l
}

func (l *leaderRole) Name() string { return RoleLeader }

func (l *leaderRole) Teardown() {
	l.heartbeat.cancel()
	for _, session := range l.waitingClients {
		session.Respond(&ResultResponse{Success: false})
	}
	l.waitingClients = nil
}

func (l *leaderRole) broadcastAppendEntries() {
	n := l.node
	for _, peer := range n.Network {
		next := l.nextIndex[peer]
		var prevIndex uint64
		if next > 0 {
			prevIndex = next - 1
		}
		if prevIndex > n.Log.LastIndex() {
			prevIndex = n.Log.LastIndex()
		}
		n.Transport.SendTo(&AppendEntriesRequest{
			Term:         n.CurrentTerm,
			Address:      n.Address,
			PrevLogIndex: prevIndex,
			PrevLogTerm:  n.Log.Get(prevIndex).Term,
			Entries:      n.Log.Slice(prevIndex+1, prevIndex+1+appendEntriesBatchSize),
			LeaderCommit: n.Log.CommitIndex(),
		}, peer)
	}
}

func (l *leaderRole) HandlePeerMessage(msg PeerMessage, from string) bool {
	switch m := msg.(type) {
	case *AppendEntriesResponse:
		l.handleAppendEntriesResponse(m, from)
	default:
		l.node.logger.Debug("leader ignoring peer message", zap.String("kind", msg.Kind()), zap.String("from", from))
	}
	return false
}

func (l *leaderRole) handleAppendEntriesResponse(m *AppendEntriesResponse, from string) {
	if m.Success {
		l.matchIndex[from] = m.LastIndex
		l.nextIndex[from] = m.LastIndex + 1
		l.advanceCommitIndex()
		l.notifyWaitingClients()
		return
	}
	if l.nextIndex[from] > 0 {
		l.nextIndex[from]--
	}
}

// advanceCommitIndex applies the lower-median-of-match-index rule: an
// index is committed once a majority of the cluster (the leader counts
// itself) has replicated it, but only if that index belongs to the
// leader's own term. Without that guard a leader could "commit" an
// entry from an earlier term purely by replicating it, then lose it
// again if it fails before committing anything from its own term.
func (l *leaderRole) advanceCommitIndex() {
	n := l.node
	indices := make([]uint64, 0, len(l.matchIndex))
	for _, idx := range l.matchIndex {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	candidate := indices[(len(indices)-1)/2]

	if candidate <= n.Log.CommitIndex() {
		return
	}
	if n.Log.Get(candidate).Term != n.CurrentTerm {
		return
	}
	n.Log.Commit(candidate)
}

func (l *leaderRole) notifyWaitingClients() {
	committed := l.node.Log.CommitIndex()
	for idx, session := range l.waitingClients {
		if idx > committed {
			continue
		}
		session.Respond(&ResultResponse{Success: true})
		delete(l.waitingClients, idx)
	}
}

func (l *leaderRole) HandleClientMessage(msg ClientMessage, session ClientSession) {
	n := l.node
	switch m := msg.(type) {
	case *GetRequest:
		session.Respond(&ResultResponse{Success: true, State: n.Log.StateMachineSnapshot()})
	case *ReplicateRequest:
		entry := LogEntry{Term: n.CurrentTerm, Command: commandFromReplicate(m)}
		n.Log.AppendEntries([]LogEntry{entry}, n.Log.LastIndex())
		idx := n.Log.LastIndex()
		l.matchIndex[n.Address] = idx
		l.nextIndex[n.Address] = idx + 1
		l.waitingClients[idx] = session
		l.advanceCommitIndex()
		l.notifyWaitingClients()
		l.broadcastAppendEntries()
	default:
		l.node.logger.Debug("leader ignoring client message", zap.String("kind", msg.Kind()))
	}
}
