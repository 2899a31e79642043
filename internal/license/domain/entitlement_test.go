package domain

import "testing"

func TestEvaluateBoundary(t *testing.T) {
	license := &License{CarLimit: 30, IsActive: true}

	got := Evaluate(license, 29)
	if !got.Allowed {
		t.Fatalf("expected creation allowed one below the limit, got %+v", got)
	}
	if got.Remaining != 1 {
		t.Fatalf("expected 1 remaining, got %d", got.Remaining)
	}

	got = Evaluate(license, 30)
	if got.Allowed {
		t.Fatalf("expected creation denied at the limit, got %+v", got)
	}
	if got.Remaining != 0 {
		t.Fatalf("expected 0 remaining, got %d", got.Remaining)
	}
	if got.UsagePercent != 100 {
		t.Fatalf("expected 100%% usage, got %v", got.UsagePercent)
	}
}

func TestEvaluateInactiveLicense(t *testing.T) {
	license := &License{CarLimit: 30, IsActive: false}

	got := Evaluate(license, 0)
	if got.Allowed {
		t.Fatalf("inactive license must deny creation, got %+v", got)
	}
	if got.Remaining != 30 {
		t.Fatalf("remaining should still report headroom, got %d", got.Remaining)
	}
}

func TestEvaluateZeroLimit(t *testing.T) {
	license := &License{CarLimit: 0, IsActive: true}

	got := Evaluate(license, 0)
	if got.Allowed {
		t.Fatalf("zero limit must deny creation, got %+v", got)
	}
	if got.UsagePercent != 100 {
		t.Fatalf("zero limit must report 100%% usage, got %v", got.UsagePercent)
	}
}

func TestEvaluateOverLimitClamps(t *testing.T) {
	license := &License{CarLimit: 10, IsActive: true}

	got := Evaluate(license, 25)
	if got.Allowed {
		t.Fatalf("over the limit must deny creation, got %+v", got)
	}
	if got.Remaining != 0 {
		t.Fatalf("remaining must clamp at 0, got %d", got.Remaining)
	}
	if got.UsagePercent != 100 {
		t.Fatalf("usage must clamp at 100%%, got %v", got.UsagePercent)
	}
}

func TestEvaluateNilLicense(t *testing.T) {
	got := Evaluate(nil, 0)
	if got.Allowed {
		t.Fatalf("missing license must deny creation, got %+v", got)
	}
}
