package incident

import "testing"

func TestFingerprint_Stable(t *testing.T) {
	a := Fingerprint("billing", "TimeoutError", "payment gateway timed out")
	b := Fingerprint("billing", "TimeoutError", "payment gateway timed out")
	if a != b {
		t.Fatalf("same inputs produced different fingerprints: %s vs %s", a, b)
	}
}

func TestFingerprint_DistinguishesFields(t *testing.T) {
	base := Fingerprint("billing", "TimeoutError", "payment gateway timed out")

	if Fingerprint("checkout", "TimeoutError", "payment gateway timed out") == base {
		t.Fatal("different service must produce a different fingerprint")
	}
	if Fingerprint("billing", "ConnectionError", "payment gateway timed out") == base {
		t.Fatal("different kind must produce a different fingerprint")
	}
	// Field boundaries matter: ("ab","c") must not collide with ("a","bc").
	if Fingerprint("billingT", "imeoutError", "payment gateway timed out") == base {
		t.Fatal("fingerprint must separate fields unambiguously")
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusOpen, StatusAcknowledged, true},
		{StatusOpen, StatusResolved, true},
		{StatusAcknowledged, StatusResolved, true},
		{StatusAcknowledged, StatusOpen, true},
		{StatusResolved, StatusOpen, false},
		{StatusResolved, StatusAcknowledged, false},
		{StatusOpen, StatusOpen, false},
	}

	for _, tc := range cases {
		inc := &Incident{Status: tc.from}
		if got := inc.CanTransition(tc.to); got != tc.want {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestValidSeverity(t *testing.T) {
	for _, s := range []Severity{SeverityDebug, SeverityInfo, SeverityWarning, SeverityError, SeverityCritical} {
		if !ValidSeverity(s) {
			t.Errorf("expected %s to be valid", s)
		}
	}
	if ValidSeverity("fatal") {
		t.Error("expected 'fatal' to be invalid")
	}
}
