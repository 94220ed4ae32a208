package cw

import "testing"

func TestCharacterToRepresentation(t *testing.T) {
	tests := []struct {
		ch      rune
		wantRep string
		wantOK  bool
	}{
		{'A', ".-", true},
		{'a', ".-", true},
		{'0', "-----", true},
		{'?', "..--..", true},
		{'<', "...-.-", true},
		{'~', "", false},
	}
	for _, tt := range tests {
		rep, ok := CharacterToRepresentation(tt.ch)
		if ok != tt.wantOK || rep != tt.wantRep {
			t.Errorf("CharacterToRepresentation(%q) = (%q, %v), want (%q, %v)", tt.ch, rep, ok, tt.wantRep, tt.wantOK)
		}
	}
}

func TestRepresentationToCharacter(t *testing.T) {
	tests := []struct {
		rep     string
		wantCh  rune
		wantErr error
	}{
		{".-", 'A', nil},
		{"-----", '0', nil},
		{"..--..", '?', nil},
		{"..--", 'Ü', nil},
		{".x-", 0, ErrBadArgument},
		{"..--..-.", 0, ErrNotFound},
	}
	for _, tt := range tests {
		ch, err := RepresentationToCharacter(tt.rep)
		if err != tt.wantErr {
			t.Errorf("RepresentationToCharacter(%q) error = %v, want %v", tt.rep, err, tt.wantErr)
			continue
		}
		if err == nil && ch != tt.wantCh {
			t.Errorf("RepresentationToCharacter(%q) = %q, want %q", tt.rep, ch, tt.wantCh)
		}
	}
}

func TestRepresentationRoundTrip(t *testing.T) {
	for _, e := range table {
		rep, ok := CharacterToRepresentation(e.ch)
		if !ok {
			t.Fatalf("CharacterToRepresentation(%q) missing", e.ch)
		}
		ch, err := RepresentationToCharacter(rep)
		if err != nil {
			t.Fatalf("RepresentationToCharacter(%q) error = %v", rep, err)
		}
		if ch != e.ch {
			t.Errorf("round trip %q -> %q -> %q, want back %q", e.ch, rep, ch, e.ch)
		}
	}
}

func TestProceduralExpansion(t *testing.T) {
	exp, usually, ok := ProceduralExpansion('<')
	if !ok || exp != "VA" || !usually {
		t.Errorf("ProceduralExpansion('<') = (%q, %v, %v), want (VA, true, true)", exp, usually, ok)
	}

	_, _, ok = ProceduralExpansion('Q')
	if ok {
		t.Error("ProceduralExpansion('Q') should be not-ok")
	}
}

func TestRepresentationHash_EmptyAndTooLong(t *testing.T) {
	if h := RepresentationHash(""); h != 0 {
		t.Errorf("RepresentationHash(\"\") = %d, want 0", h)
	}
	if h := RepresentationHash("........"); h != 0 {
		t.Errorf("RepresentationHash(8-element) = %d, want 0", h)
	}
}

func TestRepresentationHash_Distinct(t *testing.T) {
	seen := make(map[int]string)
	for _, e := range table {
		h := RepresentationHash(e.rep)
		if h == 0 {
			t.Errorf("RepresentationHash(%q) = 0, want nonzero", e.rep)
			continue
		}
		if prev, ok := seen[h]; ok && prev != e.rep {
			t.Errorf("hash collision between %q and %q", prev, e.rep)
		}
		seen[h] = e.rep
	}
}
