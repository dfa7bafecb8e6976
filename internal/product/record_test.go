package product

import "testing"

func TestNew(t *testing.T) {
	rec := New("Summer Dress", 1299, "Lightweight cotton")

	if rec.ID == "" {
		t.Error("expected a generated ID")
	}
	if rec.ProcessingStatus != StatusProcessing {
		t.Errorf("expected initial status %s, got %s", StatusProcessing, rec.ProcessingStatus)
	}
	if rec.ReelState != ReelNone {
		t.Errorf("expected initial reel state %s, got %s", ReelNone, rec.ReelState)
	}
	if rec.CreatedAt.IsZero() || rec.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}

	other := New("Summer Dress", 1299, "Lightweight cotton")
	if other.ID == rec.ID {
		t.Error("expected unique IDs across records")
	}
}

func TestReelState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    ReelState
		terminal bool
	}{
		{ReelNone, false},
		{ReelSubmitted, false},
		{ReelReady, true},
		{ReelUnavailable, true},
		{ReelFailed, true},
		// A timed-out reel stays pollable so a later read can resolve it.
		{ReelTimedOut, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.IsTerminal(); got != tt.terminal {
				t.Errorf("ReelState(%q).IsTerminal() = %v, want %v", tt.state, got, tt.terminal)
			}
		})
	}
}

func TestRecord_NeedsReelPoll(t *testing.T) {
	tests := []struct {
		name      string
		opName    string
		reelState ReelState
		want      bool
	}{
		{"no operation registered", "", ReelNone, false},
		{"submitted and unresolved", "projects/p/operations/abc", ReelSubmitted, true},
		{"timed out is re-pollable", "projects/p/operations/abc", ReelTimedOut, true},
		{"ready needs nothing", "projects/p/operations/abc", ReelReady, false},
		{"unavailable is settled", "projects/p/operations/abc", ReelUnavailable, false},
		{"failed is settled", "projects/p/operations/abc", ReelFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &Record{OperationName: tt.opName, ReelState: tt.reelState}
			if got := rec.NeedsReelPoll(); got != tt.want {
				t.Errorf("NeedsReelPoll() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecord_Clone(t *testing.T) {
	rec := New("Sneakers", 899, "")
	rec.Content = &GeneratedContent{Category: "Shoes"}

	clone := rec.Clone()
	clone.Title = "Changed"
	clone.Content.Category = "Changed"

	if rec.Title != "Sneakers" {
		t.Error("clone should not share the title field")
	}
	if rec.Content.Category != "Shoes" {
		t.Error("clone should deep-copy the content")
	}
}
