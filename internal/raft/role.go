package raft

// Role names, also used as the Name() return values and in log fields.
const (
	RoleFollower  = "follower"
	RoleCandidate = "candidate"
	RoleLeader    = "leader"
)

// Role is the behavior attached to a Node for as long as it holds a
// given position in the cluster. Node owns the state that must survive
// a role change (term, vote, log); a Role only holds the state specific
// to its position (timers, vote tallies, replication progress).
//
// HandlePeerMessage returns redeliver=true when it installed a new role
// on the node and wants the message re-run against that role instead of
// the coordinator reaching back in re-entrantly.
type Role interface {
	Name() string
	HandlePeerMessage(msg PeerMessage, from string) (redeliver bool)
	HandleClientMessage(msg ClientMessage, session ClientSession)
	Teardown()
}

// redirectClient answers a client with the node's current best guess at
// the leader. Follower and Candidate share this; Leader does not.
func redirectClient(n *Node, session ClientSession) {
	session.Respond(&RedirectResponse{Leader: n.Leader})
}
