package analyzer

import (
	"testing"
)

func TestTokenizer_Tokenize(t *testing.T) {
	tok := NewTokenizer()

	tokens := tok.Tokenize("The quick brown fox. The fox is quick.")
	expected := []string{"quick", "brown", "fox", "fox", "quick"}
	if len(tokens) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, tokens)
	}
	for i := range expected {
		if tokens[i] != expected[i] {
			t.Errorf("token %d: expected %q, got %q", i, expected[i], tokens[i])
		}
	}
}

func TestTokenizer_Lowercases(t *testing.T) {
	tok := NewTokenizer()

	tokens := tok.Tokenize("LED Lighting")
	if len(tokens) != 2 || tokens[0] != "led" || tokens[1] != "lighting" {
		t.Errorf("expected [led lighting], got %v", tokens)
	}
}

func TestTokenizer_StopwordRemoval(t *testing.T) {
	tok := NewTokenizer()

	tokens := tok.Tokenize("these are all of the toys for children")
	for _, token := range tokens {
		if tok.IsStopword(token) {
			t.Errorf("stopword %q should be removed, got %v", token, tokens)
		}
	}
	if len(tokens) != 2 {
		t.Errorf("expected [toys children], got %v", tokens)
	}
}

func TestTokenizer_ShortWordRemoval(t *testing.T) {
	tok := NewTokenizer()

	tokens := tok.Tokenize("x y z pv")
	if len(tokens) != 1 || tokens[0] != "pv" {
		t.Errorf("expected only [pv], got %v", tokens)
	}
}

func TestTokenizer_EmptyInput(t *testing.T) {
	tok := NewTokenizer()

	if tokens := tok.Tokenize(""); len(tokens) != 0 {
		t.Errorf("expected 0 tokens for empty input, got %d", len(tokens))
	}
	if tokens := tok.Tokenize("  \n\t .,;"); len(tokens) != 0 {
		t.Errorf("expected 0 tokens for punctuation, got %v", tokens)
	}
}

func TestSplitWords(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"hello world", 2},
		{"hello_world", 1},
		{"hello-world", 2},
		{"HSN 9503.00", 3},
		{"café crème", 2},
		{"123numbers456", 1},
	}

	for _, tt := range tests {
		words := splitWords(tt.input)
		if len(words) != tt.expected {
			t.Errorf("splitWords(%q) = %d words, want %d: %v", tt.input, len(words), tt.expected, words)
		}
	}
}
