package safezone

import "testing"

func TestSizeBytes_IsOneGiBMinusOneMiB(t *testing.T) {
	want := uint64(1<<30) - uint64(1<<20)
	if SizeBytes != int(want) {
		t.Fatalf("expected %d, got %d", want, SizeBytes)
	}
}

func TestNewBuilder_StoresContentURL(t *testing.T) {
	b := NewBuilder("https://example.invalid/content.tar")
	if b.ContentURL != "https://example.invalid/content.tar" {
		t.Fatalf("unexpected content url: %s", b.ContentURL)
	}
}
