package browser

import "testing"

func TestPromptCredentials_NothingMissing(t *testing.T) {
	user, pass, err := promptCredentials("alice", "s3cret:with:colons")
	if err != nil {
		t.Fatalf("promptCredentials failed: %v", err)
	}
	if user != "alice" || pass != "s3cret:with:colons" {
		t.Errorf("Expected provided credentials to be kept, got %q / %q", user, pass)
	}
}

func TestRequireValue(t *testing.T) {
	if requireValue("   ") == nil {
		t.Error("Expected blank input to be rejected")
	}
	if err := requireValue("x"); err != nil {
		t.Errorf("Expected input to be accepted, got %v", err)
	}
}
