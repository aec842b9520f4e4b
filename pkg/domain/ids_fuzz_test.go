//go:build go1.18

package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseIdentity tests that parsing never panics on arbitrary input
// and that accepted identities round-trip unchanged.
func FuzzParseIdentity(f *testing.F) {
	f.Add("")
	f.Add("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	f.Add("'; DROP TABLE passports;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))
	f.Add("holder\x00suffix")

	f.Fuzz(func(t *testing.T, input string) {
		ident, err := ParseIdentity(input)
		if err != nil {
			return
		}
		if ident.IsZero() {
			t.Error("accepted identity must be non-empty")
		}
		roundTrip, err := ParseIdentity(ident.String())
		if err != nil {
			t.Errorf("valid identity failed round-trip: %v", err)
		}
		if roundTrip != ident {
			t.Error("round-trip changed identity value")
		}
		if !utf8.ValidString(input) {
			t.Error("non-UTF8 input was accepted")
		}
	})
}

// FuzzParsePassportID checks the decimal id parser round-trips.
func FuzzParsePassportID(f *testing.F) {
	f.Add("1")
	f.Add("0")
	f.Add("-5")
	f.Add("18446744073709551615")

	f.Fuzz(func(t *testing.T, input string) {
		pid, err := ParsePassportID(input)
		if err != nil {
			return
		}
		again, err := ParsePassportID(pid.String())
		if err != nil || again != pid {
			t.Errorf("round-trip failed for %q", input)
		}
	})
}
