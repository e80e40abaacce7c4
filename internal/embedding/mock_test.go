package embedding

import (
	"context"
	"testing"

	"github.com/PriyamJChakrabarty/Smart-Telecom-Helpline-AI-Agent/internal/vector"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	e := NewMockEmbedder(16)
	ctx := context.Background()
	a, err := e.Embed(ctx, "how do I check my balance")
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Embed(ctx, "how do I check my balance")
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("same text must embed identically")
		}
	}
	if len(a) != 16 || e.Dimensions() != 16 {
		t.Errorf("dimension: len=%d, Dimensions=%d", len(a), e.Dimensions())
	}
}

func TestMockEmbedder_SharedWordsScoreCloser(t *testing.T) {
	e := NewMockEmbedder(64)
	ctx := context.Background()
	base, _ := e.Embed(ctx, "How do I check my balance?")
	near, _ := e.Embed(ctx, "how do i check balance")
	far, _ := e.Embed(ctx, "what's the weather today")

	for _, v := range [][]float32{base, near, far} {
		if err := vector.Normalize(v); err != nil {
			t.Fatal(err)
		}
	}
	simNear := vector.InnerProduct(base, near)
	simFar := vector.InnerProduct(base, far)
	if simNear <= simFar {
		t.Errorf("overlapping vocabulary should score higher: near=%f far=%f", simNear, simFar)
	}
	if simNear < 0.6 {
		t.Errorf("paraphrase similarity = %f, want >= 0.6", simNear)
	}
}

func TestSplitWords(t *testing.T) {
	words := SplitWords("  mera\tplan kya\nhai ")
	if len(words) != 4 {
		t.Fatalf("got %d words: %v", len(words), words)
	}
	if words[0] != "mera" || words[3] != "hai" {
		t.Errorf("words = %v", words)
	}
}

func TestSimpleTokenizer(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, mask, types := tok.Tokenize("check balance", 8)
	if len(ids) != 8 || len(mask) != 8 || len(types) != 8 {
		t.Fatalf("lengths: %d %d %d", len(ids), len(mask), len(types))
	}
	if ids[0] != 101 {
		t.Errorf("first token = %d, want [CLS]=101", ids[0])
	}
	if mask[0] != 1 || mask[1] != 1 || mask[2] != 1 {
		t.Errorf("attention mask = %v", mask)
	}
	if ids[3] != 102 {
		t.Errorf("token after words = %d, want [SEP]=102", ids[3])
	}
}
