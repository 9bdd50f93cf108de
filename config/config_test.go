package config

import (
	"path/filepath"
	"testing"
)

func TestSettingsRoundTrip(t *testing.T) {
	def := GetSettings()
	if def.Scale != 1 || !def.ZUp {
		t.Errorf("defaults %+v", def)
	}
	defer SetSettings(def)

	if err := SetSettings(Settings{Scale: 0}); err == nil {
		t.Error("zero scale accepted")
	}

	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := LoadSettings(path); err != nil {
		t.Fatalf("missing settings file is not an error: %v", err)
	}
	if GetSettings() != def {
		t.Errorf("missing file changed settings to %+v", GetSettings())
	}

	if err := SetSettings(Settings{Scale: 2.5, ZUp: false}); err != nil {
		t.Fatal(err)
	}
	if err := SaveSettings(path); err != nil {
		t.Fatal(err)
	}
	if err := SetSettings(def); err != nil {
		t.Fatal(err)
	}
	if err := LoadSettings(path); err != nil {
		t.Fatal(err)
	}
	if got := GetSettings(); got.Scale != 2.5 || got.ZUp {
		t.Errorf("loaded settings %+v", got)
	}
}

func TestEncodings(t *testing.T) {
	defer SetEncoding("Windows 1252")

	if err := SetEncoding("No Such Map"); err == nil {
		t.Error("unknown encoding accepted")
	}
	if err := SetEncoding("Windows 1251"); err != nil {
		t.Fatal(err)
	}
	if got := GetEncoding().String(); got != "Windows 1251" {
		t.Errorf("current encoding %q", got)
	}

	found := false
	for _, name := range ListEncodings() {
		if name == "Windows 1252" {
			found = true
		}
	}
	if !found {
		t.Error("Windows 1252 missing from the encoding list")
	}
}
