package quote

import "testing"

func TestCategorizeTiming(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{60, TimingFast},
		{120, TimingFast},
		{121, TimingMedium},
		{300, TimingMedium},
		{600, TimingMedium},
		{601, TimingSlow},
		{1200, TimingSlow},
	}

	for _, tt := range tests {
		if got := CategorizeTiming(tt.seconds); got != tt.want {
			t.Errorf("CategorizeTiming(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestFormatTiming(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{45, "~45 sec"},
		{180, "~3 min"},
		{3600, "~1 hr"},
		{7200, "~2 hr"},
	}

	for _, tt := range tests {
		if got := FormatTiming(tt.seconds); got != tt.want {
			t.Errorf("FormatTiming(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestWarningDedup(t *testing.T) {
	q := Quote{}
	q.AddWarning(WarnSlowRoute)
	q.AddWarning(WarnSlowRoute)
	q.AddWarning(WarnLowSecurity)

	if len(q.Warnings) != 2 {
		t.Errorf("Warnings = %v, want 2 distinct entries", q.Warnings)
	}
	if !q.HasWarning(WarnSlowRoute) || !q.HasWarning(WarnLowSecurity) {
		t.Error("expected both warnings present")
	}
}
