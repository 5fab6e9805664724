package library

import "testing"

func TestHealthCheckCleanState(t *testing.T) {
	c := NewCatalog(DefaultGenres)
	r := NewRoster()
	c.AddItem("B1", "Dune", "Frank Herbert", "Sci-Fi", 2)
	r.AddMember("M1", "Alice", "alice@example.com", "")

	if findings := HealthCheck(c, r); len(findings) != 0 {
		t.Fatalf("clean state must have no findings, got %+v", findings)
	}
}

func TestHealthCheckFindsOrphansAndNegativeCopies(t *testing.T) {
	c := NewCatalog(DefaultGenres)
	r := NewRoster()
	c.AddItem("B1", "Dune", "Frank Herbert", "Sci-Fi", 1)
	r.AddMember("M1", "Alice", "alice@example.com", "")

	// Corrupt the state directly: a hold on a missing item and a negative
	// copy count, the two shapes the scan looks for.
	m, _ := r.Find("M1")
	m.Borrowed = append(m.Borrowed, "ghost")
	item, _ := c.Find("B1")
	item.TotalCopies = -2

	findings := HealthCheck(c, r)
	if len(findings) != 2 {
		t.Fatalf("want 2 findings, got %d: %+v", len(findings), findings)
	}

	var sawOrphan, sawNegative bool
	for _, f := range findings {
		switch f.Kind {
		case FindingOrphanedReference:
			sawOrphan = true
			if f.ItemID != "ghost" || f.MemberID != "M1" {
				t.Fatalf("orphan finding wrong: %+v", f)
			}
		case FindingNegativeCopies:
			sawNegative = true
			if f.ItemID != "B1" {
				t.Fatalf("negative-copies finding wrong: %+v", f)
			}
		}
	}
	if !sawOrphan || !sawNegative {
		t.Fatalf("missing finding kinds: %+v", findings)
	}
}
