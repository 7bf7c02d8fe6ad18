package index

import (
	"testing"
	"time"

	"github.com/matheus3301/chatvault/internal/model"
)

func TestNormalize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Hello, World!", "hello world"},
		{"  spaced   out  ", "spaced out"},
		{"don't stop", "don t stop"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTokenizeDropsShortTokens(t *testing.T) {
	got := Tokenize("I am at the big archive, ok?")
	want := []string{"the", "big", "archive"}
	if len(got) != len(want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestScoreExactMatch(t *testing.T) {
	old := time.Now().AddDate(-1, 0, 0).UnixMilli()
	msg := &model.ArchivedMessage{SearchableText: "meeting notes for friday", OriginalTimestamp: old}
	words := Tokenize("meeting notes")

	// Exact substring (+10) plus two prefix word matches (+5 each).
	if got := Score(msg, "meeting notes", words, time.Now()); got != 20 {
		t.Errorf("score = %d, want 20", got)
	}
}

func TestScorePrefixAndContainment(t *testing.T) {
	old := time.Now().AddDate(-1, 0, 0).UnixMilli()
	now := time.Now()

	// "meet" is a prefix of "meeting": +5.
	msg := &model.ArchivedMessage{SearchableText: "meeting tomorrow", OriginalTimestamp: old}
	if got := Score(msg, "meet", []string{"meet"}, now); got != 5 {
		t.Errorf("prefix score = %d, want 5", got)
	}

	// "eeti" is merely contained in "meeting": +2.
	if got := Score(msg, "eeti", []string{"eeti"}, now); got != 2 {
		t.Errorf("containment score = %d, want 2", got)
	}
}

func TestScoreRecencyAndImportanceBoosts(t *testing.T) {
	now := time.Now()
	base := &model.ArchivedMessage{
		SearchableText:    "status update",
		OriginalTimestamp: now.AddDate(-1, 0, 0).UnixMilli(),
	}
	words := Tokenize("status")
	old := Score(base, "status", words, now)

	fresh := *base
	fresh.OriginalTimestamp = now.Add(-time.Hour).UnixMilli()
	// Under 7 days also satisfies under 30 days: +3 total.
	if got := Score(&fresh, "status", words, now); got != old+3 {
		t.Errorf("fresh score = %d, want %d", got, old+3)
	}

	month := *base
	month.OriginalTimestamp = now.AddDate(0, 0, -20).UnixMilli()
	if got := Score(&month, "status", words, now); got != old+1 {
		t.Errorf("month-old score = %d, want %d", got, old+1)
	}

	starred := *base
	starred.Starred = true
	if got := Score(&starred, "status", words, now); got != old+3 {
		t.Errorf("starred score = %d, want %d", got, old+3)
	}

	urgent := *base
	urgent.Priority = model.PriorityNormal + 1
	if got := Score(&urgent, "status", words, now); got != old+1 {
		t.Errorf("priority score = %d, want %d", got, old+1)
	}
}
