package consents

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewSetNormalizesAndDeduplicates(t *testing.T) {
	sw := []string{" crc012345 ", "CRC000111", ""}
	gw := []string{"CRC012345", "crc000111", "  ", "CRC999999"}

	got := NewSet(sw, gw)
	want := Set{"CRC000111", "CRC012345", "CRC999999"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("set mismatch (-want +got):\n%s", diff)
	}
	if !got.Contains("CRC012345") {
		t.Fatalf("expected set to contain CRC012345")
	}
	if got.Contains("crc012345") {
		t.Fatalf("contains must compare normalized values")
	}
}

func TestNewSetEmpty(t *testing.T) {
	if got := NewSet(); len(got) != 0 {
		t.Fatalf("expected empty set, got %v", got)
	}
}
