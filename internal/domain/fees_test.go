package domain

import (
	"math"
	"testing"
)

func TestGetUnChargeMatchesGatewayContract(t *testing.T) {
	got := GetUnCharge(5000)
	if got != 59.29 {
		t.Fatalf("GetUnCharge(5000) = %v, want 59.29", got)
	}

	settled := Round2(5000 - got)
	if settled != 4940.71 {
		t.Fatalf("settled amount = %v, want 4940.71", settled)
	}
}

func TestGetChargeCapsAt250(t *testing.T) {
	if got := GetCharge(1000); got != 12 {
		t.Fatalf("GetCharge(1000) = %v, want 12", got)
	}
	// 1.2% of 30000 is 360, over the cap.
	if got := GetCharge(30000); got != 250 {
		t.Fatalf("GetCharge(30000) = %v, want 250", got)
	}
}

func TestFeesRejectInvalidAmounts(t *testing.T) {
	if got := GetCharge(-50); got != 0 {
		t.Fatalf("GetCharge(-50) = %v, want 0", got)
	}
	if got := GetUnCharge(math.NaN()); got != 0 {
		t.Fatalf("GetUnCharge(NaN) = %v, want 0", got)
	}
}

func TestRound2(t *testing.T) {
	if got := Round2(59.28885375); got != 59.29 {
		t.Fatalf("Round2(59.28885375) = %v, want 59.29", got)
	}
	if got := Round2(3.456); got != 3.46 {
		t.Fatalf("Round2(3.456) = %v, want 3.46", got)
	}
}
