// Package raft implements the single-threaded consensus coordinator:
// one goroutine owns all mutable cluster state (term, vote, log,
// current role) and processes peer messages, client requests and timer
// events strictly one at a time off a trio of channels. Transport
// goroutines only ever decode bytes and hand the result to the node;
// they never touch consensus state directly.
package raft

import (
	"time"

	"go.uber.org/zap"
)

// PeerTransport is how a node reaches the rest of the cluster. It is
// supplied by whichever adapter (UDP, an in-memory fake for tests, ...)
// owns the actual socket.
type PeerTransport interface {
	SendTo(msg PeerMessage, address string)
	Broadcast(msg PeerMessage)
}

// ClientSession is a single client request's response path. The
// transport that decoded the request implements this; calling Respond
// is expected to also end the session (e.g. close the TCP connection).
type ClientSession interface {
	Respond(msg ClientMessage)
}

type peerDelivery struct {
	msg  PeerMessage
	from string
}

type clientDelivery struct {
	msg     ClientMessage
	session ClientSession
}

type timerEvent struct {
	run func()
}

// Node is the coordinator: the cluster-state a member carries across
// role changes, plus the event loop that serializes all access to it.
type Node struct {
	Address string
	Network []string

	CurrentTerm uint64
	VotedFor    *string
	Leader      *string
	Log         *Log

	Transport PeerTransport

	logger *zap.Logger
	clock  Clock
	role   Role

	peerCh   chan peerDelivery
	clientCh chan clientDelivery
	timerCh  chan timerEvent
	done     chan struct{}
}

// NewNode builds a node that starts as a Follower. network lists the
// other cluster members; it must not include address.
func NewNode(address string, network []string, logger *zap.Logger, clock Clock) *Node {
	n := &Node{
		Address:  address,
		Network:  append([]string(nil), network...),
		Log:      NewLog(),
		logger:   logger,
		clock:    clock,
		peerCh:   make(chan peerDelivery, 256),
		clientCh: make(chan clientDelivery, 64),
		timerCh:  make(chan timerEvent, 64),
		done:     make(chan struct{}),
	}
	n.role = newFollower(n)
	return n
}

// AttachTransport wires the peer transport in after construction, since
// the transport itself is typically built from the node's address.
func (n *Node) AttachTransport(t PeerTransport) {
	n.Transport = t
}

// DeliverPeerMessage enqueues a decoded peer message for processing on
// the event loop. Safe to call from any goroutine.
func (n *Node) DeliverPeerMessage(msg PeerMessage, from string) {
	select {
	case n.peerCh <- peerDelivery{msg: msg, from: from}:
	case <-n.done:
	}
}

// DeliverClientMessage enqueues a decoded client request. Safe to call
// from any goroutine.
func (n *Node) DeliverClientMessage(msg ClientMessage, session ClientSession) {
	select {
	case n.clientCh <- clientDelivery{msg: msg, session: session}:
	case <-n.done:
	}
}

// scheduleTimer arranges for fn to run on the event loop goroutine after
// d, rather than on the clock's own callback goroutine.
func (n *Node) scheduleTimer(d time.Duration, fn func()) Timer {
	return n.clock.AfterFunc(d, func() {
		select {
		case n.timerCh <- timerEvent{run: fn}:
		case <-n.done:
		}
	})
}

// Run processes peer, client and timer events until Stop is called. It
// must be run from its own goroutine; every mutation of node and role
// state happens here.
func (n *Node) Run() {
	for {
		select {
		case d := <-n.peerCh:
			n.dispatchPeer(d.msg, d.from)
		case d := <-n.clientCh:
			n.role.HandleClientMessage(d.msg, d.session)
		case ev := <-n.timerCh:
			ev.run()
		case <-n.done:
			n.role.Teardown()
			return
		}
	}
}

// Stop signals Run to tear down the current role and exit.
func (n *Node) Stop() {
	close(n.done)
}

// dispatchPeer applies the one term-update rule common to every role
// (a higher term always wins and resets vote + demotes to Follower)
// before handing the message to the current role. If the role reports
// it installed a new role mid-handling, the message is re-run once
// against whatever role is now current.
func (n *Node) dispatchPeer(msg PeerMessage, from string) {
	if msg.GetTerm() > n.CurrentTerm {
		n.CurrentTerm = msg.GetTerm()
		n.VotedFor = nil
		if n.role.Name() != RoleFollower {
			n.transitionTo(newFollower(n))
		}
	}
	if n.role.HandlePeerMessage(msg, from) {
		n.role.HandlePeerMessage(msg, from)
	}
}

func (n *Node) transitionTo(next Role) {
	from := n.role.Name()
	n.role.Teardown()
	n.role = next
	n.logger.Info("role transition", zap.String("from", from), zap.String("to", next.Name()), zap.Uint64("term", n.CurrentTerm))
}
