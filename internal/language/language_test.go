package language

import "testing"

func TestDisplayName(t *testing.T) {
	if got := DisplayName("ja"); got != "Japanese (ja)" {
		t.Fatalf("DisplayName(ja) = %q", got)
	}
	if got := DisplayName("x-klingon"); got != "X-KLINGON" {
		t.Fatalf("DisplayName(unknown) = %q", got)
	}
}

func TestParseSet(t *testing.T) {
	s := ParseSet(" en, ja;;fr ,")
	for _, tag := range []string{"en", "ja", "fr"} {
		if !s.Contains(tag) {
			t.Fatalf("expected %q in set %v", tag, s)
		}
	}
	if s.Contains("de") || s.Contains("") {
		t.Fatalf("unexpected member in %v", s)
	}
	if got := s.String(); got != "en,fr,ja" {
		t.Fatalf("String() = %q", got)
	}
}

func TestParseSet_Empty(t *testing.T) {
	if s := ParseSet(""); len(s) != 0 {
		t.Fatalf("expected empty set, got %v", s)
	}
}

func TestGetSupportedLanguages_Sorted(t *testing.T) {
	entries := GetSupportedLanguages()
	if len(entries) != len(Languages) {
		t.Fatalf("expected %d entries, got %d", len(Languages), len(entries))
	}
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		if prev.Name > cur.Name || (prev.Name == cur.Name && prev.ID > cur.ID) {
			t.Fatalf("entries not sorted at %d: %v then %v", i, prev, cur)
		}
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" ja ;; fr,")
	if len(got) != 2 || got[0] != "ja" || got[1] != "fr" {
		t.Fatalf("SplitList = %v", got)
	}
	if SplitList("") != nil {
		t.Fatalf("expected nil for empty list")
	}
}
