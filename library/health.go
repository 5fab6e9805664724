package library

import "fmt"

// Finding kinds reported by the health check.
const (
	FindingOrphanedReference = "orphaned_reference"
	FindingNegativeCopies    = "negative_copies"
)

// Finding is one health-check observation. The scan never mutates state;
// repairing is left to an operator.
type Finding struct {
	Kind     string `json:"kind"`
	ItemID   string `json:"item_id,omitempty"`
	MemberID string `json:"member_id,omitempty"`
	Detail   string `json:"detail"`
}

// HealthCheck scans for borrowed-item references with no matching catalog
// entry and for negative copy counts. An empty result means healthy.
func HealthCheck(catalog *Catalog, roster *Roster) []Finding {
	var findings []Finding
	for _, item := range catalog.Items() {
		if item.TotalCopies < 0 {
			findings = append(findings, Finding{
				Kind:   FindingNegativeCopies,
				ItemID: item.ID,
				Detail: fmt.Sprintf("item %s has %d copies", item.ID, item.TotalCopies),
			})
		}
	}
	for _, m := range roster.Members() {
		for _, id := range m.Borrowed {
			if _, err := catalog.Find(id); err != nil {
				findings = append(findings, Finding{
					Kind:     FindingOrphanedReference,
					ItemID:   id,
					MemberID: m.ID,
					Detail:   fmt.Sprintf("member %s holds unknown item %s", m.ID, id),
				})
			}
		}
	}
	return findings
}
