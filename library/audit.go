package library

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Audit partitions. Events from unrecognized roles land in the admin
// partition so nothing is ever dropped.
const (
	PartitionAdmins     = "admins"
	PartitionLibrarians = "librarians"
	PartitionMembers    = "members"
)

// Partitions lists the partition keys in their canonical order.
var Partitions = []string{PartitionAdmins, PartitionLibrarians, PartitionMembers}

// Trail is the append-only, role-partitioned audit log. Events are never
// mutated or reordered after insertion within a partition.
type Trail struct {
	partitions map[string][]AuditEvent

	now func() time.Time
}

// NewTrail creates an empty audit trail.
func NewTrail() *Trail {
	t := &Trail{
		partitions: make(map[string][]AuditEvent),
		now:        time.Now,
	}
	for _, p := range Partitions {
		t.partitions[p] = []AuditEvent{}
	}
	return t
}

// PartitionFor maps a role to its partition, falling back to admins for
// anything outside the known set.
func PartitionFor(role Role) string {
	switch role {
	case RoleLibrarian:
		return PartitionLibrarians
	case RoleMember:
		return PartitionMembers
	default:
		return PartitionAdmins
	}
}

// Record appends one event to the partition for role and returns it.
func (t *Trail) Record(role Role, username, fullName string, action Action, detail string) AuditEvent {
	ev := AuditEvent{
		ID:       uuid.NewString(),
		Time:     t.now(),
		Username: username,
		Role:     role,
		FullName: fullName,
		Action:   action,
		Detail:   detail,
	}
	p := PartitionFor(role)
	t.partitions[p] = append(t.partitions[p], ev)
	return ev
}

// QueryByRole returns the most recent events for the role's partition,
// newest first. limit <= 0 means all.
func (t *Trail) QueryByRole(role Role, limit int) []AuditEvent {
	part := t.partitions[PartitionFor(role)]
	n := len(part)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]AuditEvent, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, part[i])
	}
	return out
}

// QueryByUser returns every event recorded for username across all
// partitions, newest first.
func (t *Trail) QueryByUser(username string) []AuditEvent {
	var out []AuditEvent
	for _, p := range Partitions {
		for _, ev := range t.partitions[p] {
			if ev.Username == username {
				out = append(out, ev)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.After(out[j].Time) })
	return out
}

// Partition returns the events of one partition in insertion order.
func (t *Trail) Partition(name string) []AuditEvent {
	return t.partitions[name]
}

// Len reports the total number of recorded events.
func (t *Trail) Len() int {
	n := 0
	for _, p := range Partitions {
		n += len(t.partitions[p])
	}
	return n
}

// concat appends loaded events after any already in memory, preserving
// their stored order. Used when loading a snapshot; partitions are
// concatenated, never replaced.
func (t *Trail) concat(name string, events []AuditEvent) {
	if _, ok := t.partitions[name]; !ok {
		name = PartitionAdmins
	}
	t.partitions[name] = append(t.partitions[name], events...)
}
