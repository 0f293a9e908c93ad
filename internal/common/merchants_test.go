package common

import (
	"os"
	"path/filepath"
	"testing"
)

func writeMerchantsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "merchants.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write merchants file: %v", err)
	}
	return path
}

func TestLoadMerchantConfig(t *testing.T) {
	path := writeMerchantsFile(t, `
merchants:
  - id: coffee-corner
    name: Coffee Corner
  - id: " book-barn "
    name: Book Barn
`)

	merchants, err := LoadMerchantConfig(path)
	if err != nil {
		t.Fatalf("LoadMerchantConfig failed: %v", err)
	}
	if len(merchants) != 2 {
		t.Fatalf("Expected 2 merchants, got %d", len(merchants))
	}
	if merchants[0].Identity() != "coffee-corner" || merchants[0].Name != "Coffee Corner" {
		t.Errorf("Unexpected first merchant %+v", merchants[0])
	}
	if merchants[1].Identity() != "book-barn" {
		t.Errorf("Expected trimmed identity, got %q", merchants[1].Identity())
	}
}

func TestLoadMerchantConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing id", "merchants:\n  - name: Nameless\n"},
		{"duplicate", "merchants:\n  - id: shop\n  - id: shop\n"},
		{"unknown field", "merchants:\n  - id: shop\n    rate: 2\n"},
		{"not yaml", "merchants: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadMerchantConfig(writeMerchantsFile(t, tt.content)); err == nil {
				t.Errorf("Expected error for %s", tt.name)
			}
		})
	}

	if _, err := LoadMerchantConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("Expected error for missing file")
	}
}
