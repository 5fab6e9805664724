package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newClockedTrail returns a trail whose clock ticks one second per event.
func newClockedTrail(start time.Time) *Trail {
	tr := NewTrail()
	tick := start
	tr.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	return tr
}

func TestTrailPartitionsByRole(t *testing.T) {
	tr := newClockedTrail(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))

	tr.Record(RoleAdmin, "admin", "Root", ActionAddItem, "added item B1")
	tr.Record(RoleLibrarian, "lib", "Lib", ActionBorrowItem, "borrow")
	tr.Record(RoleMember, "alice", "Alice", ActionReturnItem, "return")
	tr.Record(RoleUnknown, "ghost", "", ActionFailedLogin, "failed login attempt")

	require.Equal(t, 4, tr.Len())
	// Unknown roles fold into the admin partition.
	assert.Len(t, tr.Partition(PartitionAdmins), 2)
	assert.Len(t, tr.Partition(PartitionLibrarians), 1)
	assert.Len(t, tr.Partition(PartitionMembers), 1)

	ev := tr.Partition(PartitionAdmins)[1]
	assert.Equal(t, RoleUnknown, ev.Role)
	assert.Equal(t, "ghost", ev.Username)
	assert.NotEmpty(t, ev.ID)
}

func TestTrailQueryByRoleNewestFirst(t *testing.T) {
	tr := newClockedTrail(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	tr.Record(RoleMember, "alice", "", ActionBorrowItem, "first")
	tr.Record(RoleMember, "alice", "", ActionReturnItem, "second")
	tr.Record(RoleMember, "ben", "", ActionBorrowItem, "third")

	events := tr.QueryByRole(RoleMember, 0)
	require.Len(t, events, 3)
	assert.Equal(t, "third", events[0].Detail)
	assert.Equal(t, "first", events[2].Detail)

	limited := tr.QueryByRole(RoleMember, 2)
	require.Len(t, limited, 2)
	assert.Equal(t, "third", limited[0].Detail)
	assert.Equal(t, "second", limited[1].Detail)

	assert.Empty(t, tr.QueryByRole(RoleLibrarian, 10))
}

func TestTrailQueryByUserSpansPartitions(t *testing.T) {
	tr := newClockedTrail(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	tr.Record(RoleMember, "alice", "", ActionBorrowItem, "as member")
	tr.Record(RoleLibrarian, "lib", "", ActionAddItem, "other user")
	tr.Record(RoleUnknown, "alice", "", ActionFailedLogin, "bad password")

	events := tr.QueryByUser("alice")
	require.Len(t, events, 2)
	// Newest first across partitions.
	assert.Equal(t, ActionFailedLogin, events[0].Action)
	assert.Equal(t, ActionBorrowItem, events[1].Action)

	assert.Empty(t, tr.QueryByUser("nobody"))
}

func TestTrailConcatPreservesOrder(t *testing.T) {
	tr := newClockedTrail(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	tr.Record(RoleMember, "alice", "", ActionBorrowItem, "live")

	loaded := []AuditEvent{
		{ID: "a", Username: "old", Role: RoleMember, Action: ActionReturnItem, Detail: "loaded-1"},
		{ID: "b", Username: "old", Role: RoleMember, Action: ActionBorrowItem, Detail: "loaded-2"},
	}
	tr.concat(PartitionMembers, loaded)

	part := tr.Partition(PartitionMembers)
	require.Len(t, part, 3)
	assert.Equal(t, "live", part[0].Detail)
	assert.Equal(t, "loaded-1", part[1].Detail)
	assert.Equal(t, "loaded-2", part[2].Detail)

	// Unknown partition names land in admins rather than being dropped.
	tr.concat("interns", []AuditEvent{{ID: "c", Detail: "stray"}})
	admins := tr.Partition(PartitionAdmins)
	require.Len(t, admins, 1)
	assert.Equal(t, "stray", admins[0].Detail)
}

func TestPartitionFor(t *testing.T) {
	assert.Equal(t, PartitionAdmins, PartitionFor(RoleAdmin))
	assert.Equal(t, PartitionLibrarians, PartitionFor(RoleLibrarian))
	assert.Equal(t, PartitionMembers, PartitionFor(RoleMember))
	assert.Equal(t, PartitionAdmins, PartitionFor(RoleUnknown))
	assert.Equal(t, PartitionAdmins, PartitionFor(Role("intern")))
}
