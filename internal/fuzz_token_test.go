package internal

import (
	"testing"
)

// FuzzParseSessionToken exercises token parsing with arbitrary strings.
// Invalid inputs must fail cleanly; accepted ones must survive a round trip.
func FuzzParseSessionToken(f *testing.F) {
	f.Add("")
	f.Add("abc")
	f.Add("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	f.Add("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")

	if tok, err := NewSessionToken(); err == nil {
		f.Add(tok.String())
	}

	f.Add("!!!not-base64!!!")
	f.Add("aGVsbG8=")
	f.Add("Zm9vOmJhcg")

	f.Fuzz(func(t *testing.T, input string) {
		tok, err := ParseSessionToken(input)
		if err != nil {
			if err != ErrMalformedToken {
				t.Fatalf("unexpected error type: %v", err)
			}
			return
		}

		encoded := tok.String()
		if len(encoded) != 43 {
			t.Fatalf("encoded token length = %d", len(encoded))
		}
		again, err := ParseSessionToken(encoded)
		if err != nil {
			t.Fatalf("roundtrip parse failed: %v", err)
		}
		if again != tok {
			t.Error("roundtrip token mismatch")
		}
	})
}
