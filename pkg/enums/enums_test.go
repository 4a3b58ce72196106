package enums

import "testing"

func TestParseJobStatus(t *testing.T) {
	got, err := ParseJobStatus(" enroute_pickup ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != JobStatusEnroutePickup {
		t.Fatalf("unexpected status %s", got)
	}
	if _, err := ParseJobStatus("PARKED"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestJobStatusTrackable(t *testing.T) {
	tests := map[JobStatus]bool{
		JobStatusPlanned:        false,
		JobStatusAssigned:       true,
		JobStatusEnroutePickup:  true,
		JobStatusLoaded:         true,
		JobStatusEnrouteDropoff: true,
		JobStatusDelivered:      true,
		JobStatusClosed:         false,
		JobStatusCanceled:       false,
	}
	for status, want := range tests {
		if got := status.IsTrackable(); got != want {
			t.Fatalf("%s trackable=%v want %v", status, got, want)
		}
	}

	statuses := TrackableJobStatuses()
	statuses[0] = JobStatusCanceled
	if TrackableJobStatuses()[0] != JobStatusAssigned {
		t.Fatal("TrackableJobStatuses leaked internal slice")
	}
}

func TestParsePriceUnit(t *testing.T) {
	got, err := ParsePriceUnit("m3")
	if err != nil || got != PriceUnitCubicMeter {
		t.Fatalf("unexpected unit %s err=%v", got, err)
	}
	if _, err := ParsePriceUnit("PALLET"); err == nil {
		t.Fatal("expected error for unknown unit")
	}
}

func TestUserRoleCanImpersonate(t *testing.T) {
	tests := map[string]bool{
		"super_admin":   true,
		" SUPER_ADMIN ": true,
		"admin":         false,
		"dispatcher":    false,
		"":              false,
	}
	for raw, want := range tests {
		if got := ParseUserRole(raw).CanImpersonate(); got != want {
			t.Fatalf("ParseUserRole(%q).CanImpersonate() = %v, want %v", raw, got, want)
		}
	}
}
