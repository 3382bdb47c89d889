package domain

import (
	"strings"
	"testing"
	"time"
)

func TestToBase62(t *testing.T) {
	cases := []struct {
		n    int64
		want string
	}{
		{0, "0"},
		{61, "z"},
		{62, "10"},
		{3843, "zz"},
	}
	for _, c := range cases {
		if got := ToBase62(c.n); got != c.want {
			t.Fatalf("ToBase62(%d) = %q, want %q", c.n, got, c.want)
		}
	}
}

func TestNewTransactionIDUsesLastFiveDigits(t *testing.T) {
	at := time.UnixMilli(1_700_000_000_000)
	id := NewTransactionID("ESUT2019123456", at)

	if !strings.HasPrefix(id, "23456") {
		t.Fatalf("tx id %q should start with the regno's last five digits", id)
	}
	if suffix := strings.TrimPrefix(id, "23456"); suffix != ToBase62(at.UnixMilli()) {
		t.Fatalf("tx id suffix = %q, want base62 of the timestamp", suffix)
	}
}

func TestNewTransactionIDShortRegno(t *testing.T) {
	at := time.UnixMilli(1_700_000_000_000)
	id := NewTransactionID("AB12", at)
	if !strings.HasPrefix(id, "12") {
		t.Fatalf("tx id %q should keep all digits when fewer than five", id)
	}
}

func TestNewTransactionIDDistinctAcrossTime(t *testing.T) {
	base := time.UnixMilli(1_700_000_000_000)
	a := NewTransactionID("2019123456", base)
	b := NewTransactionID("2019123456", base.Add(time.Millisecond))
	if a == b {
		t.Fatal("tx ids for different timestamps should differ")
	}
}
