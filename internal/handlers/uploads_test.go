package handlers

import (
	"strings"
	"testing"
	"time"
)

func TestBuildUploadKeySanitizesFilename(t *testing.T) {
	at := time.UnixMilli(1700000000000)
	key := buildUploadKey("visit-photos", "รูป ถ่าย (1).jpg", at)

	if !strings.HasPrefix(key, "visit-photos/1700000000000_") {
		t.Fatalf("unexpected key prefix: %q", key)
	}
	name := strings.TrimPrefix(key, "visit-photos/1700000000000_")
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_' || r == '.' || r == '-':
		default:
			t.Fatalf("unsafe rune %q left in key %q", r, key)
		}
	}
	if !strings.HasSuffix(key, ".jpg") {
		t.Fatalf("extension should survive sanitising, got %q", key)
	}
}

func TestBuildUploadKeyKeepsSafeCharacters(t *testing.T) {
	at := time.UnixMilli(42)
	key := buildUploadKey("business-cards", "card_A-1.png", at)
	if key != "business-cards/42_card_A-1.png" {
		t.Fatalf("safe filename should pass through, got %q", key)
	}
}
