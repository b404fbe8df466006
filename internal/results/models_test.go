package results

import "testing"

func TestCanAdvance(t *testing.T) {
	forward := [][2]string{
		{StatusPending, StatusProcessing},
		{StatusPending, StatusScored},
		{StatusPending, StatusPublished},
		{StatusProcessing, StatusScored},
		{StatusScored, StatusPublished},
	}
	for _, tc := range forward {
		if !CanAdvance(tc[0], tc[1]) {
			t.Errorf("CanAdvance(%s, %s) = false, want true", tc[0], tc[1])
		}
	}

	blocked := [][2]string{
		{StatusPublished, StatusScored},
		{StatusScored, StatusProcessing},
		{StatusProcessing, StatusPending},
		{StatusPending, StatusPending},
		{StatusPublished, StatusPublished},
		{"bogus", StatusScored},
		{StatusPending, "bogus"},
	}
	for _, tc := range blocked {
		if CanAdvance(tc[0], tc[1]) {
			t.Errorf("CanAdvance(%s, %s) = true, want false", tc[0], tc[1])
		}
	}
}
