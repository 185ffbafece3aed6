package raft

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogStartsWithNoOpSentinel(t *testing.T) {
	l := NewLog()
	require.Equal(t, uint64(0), l.LastIndex())
	assert.Equal(t, CommandNoOp, l.Get(0).Command.Kind)
}

func TestAppendEntriesTruncatesConflictingSuffix(t *testing.T) {
	l := NewLog()
	l.AppendEntries([]LogEntry{{Term: 1}, {Term: 1}, {Term: 1}}, 0)
	require.Equal(t, uint64(3), l.LastIndex())

	// A leader overwriting from index 1 with a different term entry
	// must discard everything after it, including the old index 2 and 3.
	l.AppendEntries([]LogEntry{{Term: 2}}, 1)
	require.Equal(t, uint64(2), l.LastIndex())
	assert.Equal(t, uint64(2), l.Get(2).Term)
}

func TestCommitNeverMovesBackwardsOrPastEnd(t *testing.T) {
	l := NewLog()
	l.AppendEntries([]LogEntry{{Term: 1, Command: Command{Kind: CommandSet, Key: "a", Value: "1"}}}, 0)

	l.Commit(10) // past the end, clamps to last index
	assert.Equal(t, uint64(1), l.CommitIndex())
	assert.Equal(t, "1", l.StateMachineSnapshot()["a"])

	l.Commit(0) // behind current commit, ignored
	assert.Equal(t, uint64(1), l.CommitIndex())
}

func TestDeleteOfAbsentKeyIsNoOp(t *testing.T) {
	l := NewLog()
	l.AppendEntries([]LogEntry{{Term: 1, Command: Command{Kind: CommandDelete, Key: "missing"}}}, 0)
	l.Commit(1)
	_, ok := l.StateMachineSnapshot()["missing"]
	assert.False(t, ok)
}

func TestSliceClampsToLogBounds(t *testing.T) {
	l := NewLog()
	l.AppendEntries([]LogEntry{{Term: 1}, {Term: 1}}, 0)
	assert.Len(t, l.Slice(0, 100), 3)
	assert.Len(t, l.Slice(5, 10), 0)
	assert.Len(t, l.Slice(1, 2), 1)
}
