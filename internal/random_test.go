package internal

import "testing"

func TestSlotIDRoundtrip(t *testing.T) {
	sid, err := NewSlotID()
	if err != nil {
		t.Fatalf("NewSlotID error: %v", err)
	}

	parsed, err := ParseSlotID(sid.String())
	if err != nil {
		t.Fatalf("ParseSlotID error: %v", err)
	}
	if parsed != sid {
		t.Fatal("roundtrip mismatch")
	}
}

func TestParseSlotIDRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "abc", "!!!not-base64!!!", "dG9vLXNob3J0"} {
		if _, err := ParseSlotID(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("10.0.0.1", "Mozilla/5.0")
	b := Fingerprint("10.0.0.1", "Mozilla/5.0")
	c := Fingerprint("10.0.0.2", "Mozilla/5.0")
	d := Fingerprint("10.0.0.1", "curl/8.0")

	if a != b {
		t.Fatal("fingerprint not stable for identical inputs")
	}
	if a == c || a == d {
		t.Fatal("fingerprint collision across distinct clients")
	}
}
