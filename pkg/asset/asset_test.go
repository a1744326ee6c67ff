package asset

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Asset
		wantErr bool
	}{
		{"BTC", Bitcoin, false},
		{"btc", Bitcoin, false},
		{"ETH", Ether, false},
		{"eth", Ether, false},
		{"DOGE", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("Parse(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(Bitcoin, Ether)

	if !r.Enabled(Bitcoin) || !r.Enabled(Ether) {
		t.Fatalf("seeded assets not enabled")
	}

	r.SetEnabled(Ether, false)
	if r.Enabled(Ether) {
		t.Errorf("disabled asset still enabled")
	}
	if !r.Enabled(Bitcoin) {
		t.Errorf("disabling one asset affected another")
	}

	r.SetEnabled(Ether, true)
	if !r.Enabled(Ether) {
		t.Errorf("re-enabled asset not enabled")
	}

	if len(r.List()) != 2 {
		t.Errorf("List() = %v, want 2 assets", r.List())
	}

	// Unknown assets are disabled, not an error.
	if r.Enabled(Asset("DOGE")) {
		t.Errorf("unknown asset reported enabled")
	}
}
