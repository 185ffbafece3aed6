package raft

import (
	"math/rand"
	"time"
)

var electionTimeoutChoices = []time.Duration{5 * time.Second, 10 * time.Second, 15 * time.Second}
var heartbeatIntervalChoices = []time.Duration{1 * time.Second, 2 * time.Second, 3 * time.Second}

func randomElectionTimeout() time.Duration {
	return electionTimeoutChoices[rand.Intn(len(electionTimeoutChoices))]
}

func randomHeartbeatInterval() time.Duration {
	return heartbeatIntervalChoices[rand.Intn(len(heartbeatIntervalChoices))]
}

// electionTimer fires once and asks the node to become a Candidate.
// Because its callback is only ever executed on the node's own loop
// goroutine (see Node.scheduleTimer), active can be read and written
// without synchronization: reset/cancel run on that goroutine directly,
// and a fired callback that lost the race simply finds active false
// (after cancel) or a newer handle in place (after reset).
type electionTimer struct {
	node   *Node
	handle Timer
	active bool
}

func newElectionTimer(n *Node) *electionTimer {
	et := &electionTimer{node: n}
	et.reset()
	return et
}

func (et *electionTimer) reset() {
	if et.handle != nil {
		et.handle.Stop()
	}
	et.active = true
	var handle Timer
	handle = et.node.scheduleTimer(randomElectionTimeout(), func() {
		if !et.active || et.handle != handle {
			return
		}
		et.node.logger.Debug("election timeout elapsed")
		et.node.transitionTo(newCandidate(et.node))
	})
	et.handle = handle
}

func (et *electionTimer) cancel() {
	et.active = false
	if et.handle != nil {
		et.handle.Stop()
	}
}

// heartbeatTimer fires repeatedly, rescheduling itself after every call
// to fn, until cancelled.
type heartbeatTimer struct {
	node   *Node
	fn     func()
	handle Timer
	active bool
}

func newHeartbeatTimer(n *Node, fn func()) *heartbeatTimer {
	h := &heartbeatTimer{node: n, fn: fn, active: true}
	h.schedule()
	return h
}

func (h *heartbeatTimer) schedule() {
	h.handle = h.node.scheduleTimer(randomHeartbeatInterval(), func() {
		if !h.active {
			return
		}
		h.fn()
		h.schedule()
	})
}

func (h *heartbeatTimer) cancel() {
	h.active = false
	if h.handle != nil {
		h.handle.Stop()
	}
}
