package fraction

import "testing"

func TestAddThenSubIsIdentity(t *testing.T) {
	a := New(7, 3)
	b := New(5, 11)
	got := a.Add(b).Sub(b)
	if !got.Equal(a) {
		t.Fatalf("(a+b)-b = %v, want %v", got, a)
	}
}

func TestDivScalarRoundNearest(t *testing.T) {
	f := New(7, 1)
	got := f.DivScalar(3).RoundNearest()
	want := int64(2) // 7/3 = 2.33, rounds to 2
	if got != want {
		t.Fatalf("RoundNearest(7/3) = %d, want %d", got, want)
	}
}

func TestRoundNearestTiesAwayFromZero(t *testing.T) {
	if got := New(1, 2).RoundNearest(); got != 1 {
		t.Fatalf("RoundNearest(1/2) = %d, want 1", got)
	}
	if got := New(-1, 2).RoundNearest(); got != -1 {
		t.Fatalf("RoundNearest(-1/2) = %d, want -1", got)
	}
	if got := New(3, 2).RoundNearest(); got != 2 {
		t.Fatalf("RoundNearest(3/2) = %d, want 2", got)
	}
}

func TestRoundDownAndUp(t *testing.T) {
	f := New(-7, 2) // -3.5
	if got := f.RoundDown(); got != -4 {
		t.Fatalf("RoundDown(-7/2) = %d, want -4", got)
	}
	if got := f.RoundUp(); got != -3 {
		t.Fatalf("RoundUp(-7/2) = %d, want -3", got)
	}
	whole := New(6, 2) // exactly 3
	if got := whole.RoundUp(); got != 3 {
		t.Fatalf("RoundUp(6/2) = %d, want 3 (already exact)", got)
	}
}

func TestAddOfEqualDenominatorsReusesDenominator(t *testing.T) {
	got := New(1, 4).Add(New(1, 4))
	if got.Den != 4 || got.Num != 2 {
		t.Fatalf("1/4+1/4 = %+v, want unreduced 2/4 (denominator reused)", got)
	}
	if !got.Equal(New(1, 2)) {
		t.Fatalf("1/4+1/4 = %+v, should still be equal to 1/2", got)
	}
}

func TestAddDifferentDenominatorsReduces(t *testing.T) {
	got := New(1, 4).Add(New(1, 2))
	want := New(3, 4)
	if !got.Equal(want) || got.Num != 3 || got.Den != 4 {
		t.Fatalf("1/4+1/2 = %+v, want 3/4", got)
	}
}

func TestNewNormalizesNegativeDenominator(t *testing.T) {
	f := New(3, -4)
	if f.Num != -3 || f.Den != 4 {
		t.Fatalf("New(3,-4) = %+v, want {-3 4}", f)
	}
}

func TestEqualAfterDifferentReductions(t *testing.T) {
	a := New(2, 4)
	b := New(1, 2)
	if !a.Equal(b) {
		t.Fatalf("2/4 should equal 1/2 after reduction")
	}
}
