package raft

// LogEntry is one slot of the replicated log. Index 0 always holds the
// no_op sentinel so every real entry has a well-defined predecessor.
type LogEntry struct {
	Term    uint64  `codec:"term"`
	Command Command `codec:"command"`
}

// Log is the replicated log plus the commit index and the state machine
// derived from applying its committed prefix. It is only ever touched
// from the coordinator's event loop goroutine, so it carries no locking
// of its own.
type Log struct {
	entries      []LogEntry
	commitIndex  uint64
	stateMachine *StateMachine
}

func NewLog() *Log {
	return &Log{
		entries:      []LogEntry{{Term: 0, Command: Command{Kind: CommandNoOp}}},
		stateMachine: newStateMachine(),
	}
}

func (l *Log) LastIndex() uint64 {
	return uint64(len(l.entries) - 1)
}

func (l *Log) LastTerm() uint64 {
	return l.entries[l.LastIndex()].Term
}

// Get returns the entry at i. Callers must only pass indices known to be
// within [0, LastIndex()]; the zero-index sentinel guarantees that range
// is never empty.
func (l *Log) Get(i uint64) LogEntry {
	return l.entries[i]
}

// Slice returns a copy of entries in [lo, hi), clamped to the log's
// current bounds. Used to build AppendEntries batches.
func (l *Log) Slice(lo, hi uint64) []LogEntry {
	bound := l.LastIndex() + 1
	if lo > bound {
		lo = bound
	}
	if hi > bound {
		hi = bound
	}
	if lo >= hi {
		return nil
	}
	out := make([]LogEntry, hi-lo)
	copy(out, l.entries[lo:hi])
	return out
}

// AppendEntries installs entries starting right after index, discarding
// every entry the log already held after index, whether or not it
// conflicts with the new ones. index is the leader's
// prev_log_index for this batch, i.e. the entries slot into [index+1, ...).
func (l *Log) AppendEntries(entries []LogEntry, index uint64) {
	if l.LastIndex() > index {
		l.entries = l.entries[:index+1]
	}
	l.entries = append(l.entries, entries...)
}

func (l *Log) CommitIndex() uint64 {
	return l.commitIndex
}

// Commit advances the commit index towards leaderCommit and applies the
// newly committed entries to the state machine. It never moves the
// commit index backwards and never commits past the end of the log.
func (l *Log) Commit(leaderCommit uint64) {
	if leaderCommit <= l.commitIndex {
		return
	}
	if leaderCommit > l.LastIndex() {
		leaderCommit = l.LastIndex()
	}
	l.commitIndex = leaderCommit
	l.stateMachine.Apply(l.entries, l.commitIndex)
}

func (l *Log) LastApplied() uint64 {
	return l.stateMachine.lastApplied
}

func (l *Log) StateMachineSnapshot() map[string]string {
	return l.stateMachine.Snapshot()
}
