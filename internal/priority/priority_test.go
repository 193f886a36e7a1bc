package priority

import (
	"errors"
	"testing"
)

func TestDecode_AllValid(t *testing.T) {
	for p := 0; p <= MaxPriority; p++ {
		fac, sev, err := Decode(p)
		if err != nil {
			t.Fatalf("Decode(%d): unexpected error: %v", p, err)
		}
		if fac != Facilities[p>>3] || sev != Severities[p&7] {
			t.Errorf("Decode(%d) = (%s, %s), want (%s, %s)", p, fac, sev, Facilities[p>>3], Severities[p&7])
		}
	}
}

func TestDecode_Known(t *testing.T) {
	cases := []struct {
		pri      int
		facility string
		severity string
	}{
		{0, "kern", "emerg"},
		{27, "daemon", "err"},
		{34, "auth", "crit"},
		{165, "local4", "notice"},
		{191, "local7", "debug"},
	}
	for _, c := range cases {
		fac, sev, err := Decode(c.pri)
		if err != nil {
			t.Fatalf("Decode(%d): %v", c.pri, err)
		}
		if fac != c.facility || sev != c.severity {
			t.Errorf("Decode(%d) = (%s, %s), want (%s, %s)", c.pri, fac, sev, c.facility, c.severity)
		}
	}
}

func TestDecode_OutOfRange(t *testing.T) {
	for _, p := range []int{-1, 192, 999} {
		_, _, err := Decode(p)
		if !errors.Is(err, ErrPriorityRange) {
			t.Errorf("Decode(%d): expected ErrPriorityRange, got %v", p, err)
		}
	}
}
