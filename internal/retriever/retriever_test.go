package retriever

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/PriyamJChakrabarty/Smart-Telecom-Helpline-AI-Agent/internal/corpus"
	"github.com/PriyamJChakrabarty/Smart-Telecom-Helpline-AI-Agent/internal/embedding"
	"github.com/PriyamJChakrabarty/Smart-Telecom-Helpline-AI-Agent/internal/models"
	"github.com/PriyamJChakrabarty/Smart-Telecom-Helpline-AI-Agent/internal/vector"
)

func testPaths(t *testing.T) Paths {
	t.Helper()
	dir := t.TempDir()
	return Paths{
		Vectors: filepath.Join(dir, "index.bin"),
		Records: filepath.Join(dir, "records.gob"),
	}
}

func testCorpus() []models.FAQ {
	return []models.FAQ{
		{
			Question:   "How do I check my account balance?",
			Variations: []string{"check balance", "what is my balance", "balance kaise check kare"},
			Answer:     "Dial *123# or open the app to see your current balance.",
			Category:   "billing",
		},
		{
			Question:   "How do I recharge my prepaid plan?",
			Variations: []string{"recharge kaise kare", "top up my phone"},
			Answer:     "Recharge online through the app or at any retail outlet.",
			Category:   "recharge",
		},
		{
			Question:   "Why is my internet slow?",
			Variations: []string{"slow internet", "data speed is bad"},
			Answer:     "Toggle airplane mode, then check your remaining data quota.",
			Category:   "network",
		},
	}
}

func newTestIndex(t *testing.T) (*Index, Paths) {
	t.Helper()
	paths := testPaths(t)
	return New(embedding.NewMockEmbedder(64), paths), paths
}

func TestBuildEmptyCorpus(t *testing.T) {
	ix, _ := newTestIndex(t)
	if err := ix.Build(context.Background(), nil); !errors.Is(err, ErrEmptyCorpus) {
		t.Fatalf("Build(nil) error = %v, want ErrEmptyCorpus", err)
	}
}

func TestBuildAssignsPositionalIDs(t *testing.T) {
	ix, _ := newTestIndex(t)
	faqs := testCorpus()
	faqs[0].ID = 99
	if err := ix.Build(context.Background(), faqs); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	for i, f := range ix.FAQs() {
		if f.ID != i {
			t.Errorf("FAQs()[%d].ID = %d, want %d", i, f.ID, i)
		}
	}
	if ix.Size() != len(faqs) {
		t.Errorf("Size() = %d, want %d", ix.Size(), len(faqs))
	}
}

func TestBuildWithoutVariations(t *testing.T) {
	ix, _ := newTestIndex(t)
	faqs := []models.FAQ{{
		Question: "How do I port my number?",
		Answer:   "Send PORT followed by your number to 1900.",
		Category: "porting",
	}}
	if err := ix.Build(context.Background(), faqs); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	matches, err := ix.Search(context.Background(), "How do I port my number?", 1, 0.6)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("Search() returned %d matches, want 1", len(matches))
	}
}

func TestSearchSelfMatch(t *testing.T) {
	ix, _ := newTestIndex(t)
	faqs := testCorpus()
	if err := ix.Build(context.Background(), faqs); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	for i, f := range faqs {
		matches, err := ix.Search(context.Background(), f.SearchableText(), 1, 0.0)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(matches) != 1 {
			t.Fatalf("Search() returned %d matches, want 1", len(matches))
		}
		if matches[0].FAQ.ID != i {
			t.Errorf("self-query for faq %d matched faq %d", i, matches[0].FAQ.ID)
		}
		if math.Abs(matches[0].Score-1.0) > 1e-5 {
			t.Errorf("self-match score = %v, want ~1.0", matches[0].Score)
		}
	}
}

func TestSearchParaphrase(t *testing.T) {
	ix, _ := newTestIndex(t)
	if err := ix.Build(context.Background(), testCorpus()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	matches, err := ix.Search(context.Background(), "what is my balance", 3, 0.6)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(matches) == 0 {
		t.Fatal("paraphrase query returned no matches above threshold")
	}
	if matches[0].FAQ.Category != "billing" {
		t.Errorf("top match category = %q, want billing", matches[0].FAQ.Category)
	}
}

func TestSearchKLargerThanCorpus(t *testing.T) {
	ix, _ := newTestIndex(t)
	faqs := testCorpus()[:2]
	if err := ix.Build(context.Background(), faqs); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	matches, err := ix.Search(context.Background(), "recharge kaise kare", 3, 0.0)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("Search(k=3) over 2 records returned %d matches, want 2", len(matches))
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Score > matches[i-1].Score {
			t.Errorf("matches not ordered: score[%d]=%v > score[%d]=%v", i, matches[i].Score, i-1, matches[i-1].Score)
		}
	}
}

func TestSearchBeforeBuild(t *testing.T) {
	ix, _ := newTestIndex(t)
	if _, err := ix.Search(context.Background(), "hello", 3, 0.6); !errors.Is(err, vector.ErrEmptyStore) {
		t.Fatalf("Search() before build error = %v, want ErrEmptyStore", err)
	}
}

func TestBestAnswerMiss(t *testing.T) {
	ix, _ := newTestIndex(t)
	if err := ix.Build(context.Background(), testCorpus()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	match, ok, err := ix.BestAnswer(context.Background(), "zzz qqq xxx unrelated gibberish", 0.99)
	if err != nil {
		t.Fatalf("BestAnswer() error = %v, want nil on threshold miss", err)
	}
	if ok {
		t.Errorf("BestAnswer() ok = true for off-topic query at threshold 0.99, match = %+v", match)
	}
}

func TestBestAnswerEmptyIndex(t *testing.T) {
	ix, _ := newTestIndex(t)
	_, ok, err := ix.BestAnswer(context.Background(), "anything", 0.6)
	if err != nil {
		t.Fatalf("BestAnswer() on empty index error = %v, want nil", err)
	}
	if ok {
		t.Error("BestAnswer() on empty index ok = true, want false")
	}
}

func TestBestAnswerHit(t *testing.T) {
	ix, _ := newTestIndex(t)
	if err := ix.Build(context.Background(), testCorpus()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	match, ok, err := ix.BestAnswer(context.Background(), "how do I check my account balance", 0.6)
	if err != nil {
		t.Fatalf("BestAnswer() error = %v", err)
	}
	if !ok {
		t.Fatal("BestAnswer() ok = false, want a match")
	}
	if match.FAQ.Answer == "" {
		t.Error("BestAnswer() returned a match with empty answer")
	}
}

func TestRestoreScoreParity(t *testing.T) {
	ix, paths := newTestIndex(t)
	if err := ix.Build(context.Background(), testCorpus()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	query := "balance kaise check kare"
	before, err := ix.Search(context.Background(), query, 3, 0.0)
	if err != nil {
		t.Fatalf("Search() before restore error = %v", err)
	}

	restored := New(embedding.NewMockEmbedder(64), paths)
	if err := restored.Restore(); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	after, err := restored.Search(context.Background(), query, 3, 0.0)
	if err != nil {
		t.Fatalf("Search() after restore error = %v", err)
	}
	if len(after) != len(before) {
		t.Fatalf("restored search returned %d matches, want %d", len(after), len(before))
	}
	for i := range before {
		if after[i].FAQ.ID != before[i].FAQ.ID {
			t.Errorf("match %d: restored id %d, want %d", i, after[i].FAQ.ID, before[i].FAQ.ID)
		}
		if math.Abs(after[i].Score-before[i].Score) > 1e-6 {
			t.Errorf("match %d: restored score %v, want %v", i, after[i].Score, before[i].Score)
		}
	}
}

func TestRestoreModelMismatch(t *testing.T) {
	ix, paths := newTestIndex(t)
	if err := ix.Build(context.Background(), testCorpus()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	other := New(embedding.NewMockEmbedder(32), paths)
	if err := other.Restore(); !errors.Is(err, ErrModelMismatch) {
		t.Fatalf("Restore() with different model error = %v, want ErrModelMismatch", err)
	}
}

func TestRestoreCorruptVectors(t *testing.T) {
	ix, paths := newTestIndex(t)
	if err := ix.Build(context.Background(), testCorpus()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	data, err := os.ReadFile(paths.Vectors)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if err := os.WriteFile(paths.Vectors, data[:len(data)-8], 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	fresh := New(embedding.NewMockEmbedder(64), paths)
	if err := fresh.Restore(); !errors.Is(err, vector.ErrCorruptState) {
		t.Fatalf("Restore() of truncated vectors error = %v, want ErrCorruptState", err)
	}
}

func TestRestoreTamperedRecords(t *testing.T) {
	ix, paths := newTestIndex(t)
	if err := ix.Build(context.Background(), testCorpus()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if err := os.WriteFile(paths.Records, []byte("not gob"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	fresh := New(embedding.NewMockEmbedder(64), paths)
	if err := fresh.Restore(); !errors.Is(err, vector.ErrCorruptState) {
		t.Fatalf("Restore() of tampered records error = %v, want ErrCorruptState", err)
	}
}

func TestOpenBuildsWhenNoSnapshot(t *testing.T) {
	ix, _ := newTestIndex(t)
	src := corpus.Static(testCorpus())
	if err := ix.Open(context.Background(), src); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if ix.Size() != 3 {
		t.Errorf("Size() = %d, want 3", ix.Size())
	}
}

func TestOpenRestoresExistingSnapshot(t *testing.T) {
	ix, paths := newTestIndex(t)
	if err := ix.Build(context.Background(), testCorpus()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	// A source that fails proves Open never consulted it.
	fresh := New(embedding.NewMockEmbedder(64), paths)
	if err := fresh.Open(context.Background(), failingSource{}); err != nil {
		t.Fatalf("Open() with existing snapshot error = %v", err)
	}
	if fresh.Size() != 3 {
		t.Errorf("Size() = %d, want 3", fresh.Size())
	}
}

func TestOpenRebuildsCorruptSnapshot(t *testing.T) {
	ix, paths := newTestIndex(t)
	if err := ix.Build(context.Background(), testCorpus()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if err := os.WriteFile(paths.Records, []byte("garbage"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	fresh := New(embedding.NewMockEmbedder(64), paths)
	if err := fresh.Open(context.Background(), corpus.Static(testCorpus()[:2])); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if fresh.Size() != 2 {
		t.Errorf("Size() after rebuild = %d, want 2", fresh.Size())
	}
}

func TestRebuildReplacesIndex(t *testing.T) {
	ix, _ := newTestIndex(t)
	if err := ix.Build(context.Background(), testCorpus()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	replacement := []models.FAQ{{
		Question: "How do I activate international roaming?",
		Answer:   "Enable roaming from the app under Services.",
		Category: "roaming",
	}}
	if err := ix.Rebuild(context.Background(), replacement); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if ix.Size() != 1 {
		t.Errorf("Size() after rebuild = %d, want 1", ix.Size())
	}
	matches, err := ix.Search(context.Background(), "check my balance", 3, 0.6)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	for _, m := range matches {
		if m.FAQ.Category == "billing" {
			t.Error("rebuild kept a record from the replaced corpus")
		}
	}
}

func TestBuildFailureKeepsSnapshot(t *testing.T) {
	ix, paths := newTestIndex(t)
	if err := ix.Build(context.Background(), testCorpus()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	bad := []models.FAQ{{Question: "   ", Answer: "", Category: ""}}
	// A blank question embeds to the zero vector with the bag-of-words
	// embedder, so normalization fails and the build must abort.
	if err := ix.Build(context.Background(), bad); !errors.Is(err, ErrEmbedding) {
		t.Fatalf("Build() with degenerate record error = %v, want ErrEmbedding", err)
	}
	if ix.Size() != 3 {
		t.Errorf("Size() after failed build = %d, want 3 (unchanged)", ix.Size())
	}
	fresh := New(embedding.NewMockEmbedder(64), paths)
	if err := fresh.Restore(); err != nil {
		t.Fatalf("Restore() after failed build error = %v", err)
	}
	if fresh.Size() != 3 {
		t.Errorf("restored Size() = %d, want 3", fresh.Size())
	}
}

type failingSource struct{}

func (failingSource) Load(context.Context) ([]models.FAQ, error) {
	return nil, errors.New("source should not be consulted")
}

func TestRestoreMismatchedPair(t *testing.T) {
	ix, paths := newTestIndex(t)
	if err := ix.Build(context.Background(), testCorpus()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	// A second build over a same-shaped corpus: identical count, dimension,
	// and model, but the vectors belong to different texts.
	other, otherPaths := newTestIndex(t)
	reworded := testCorpus()
	for i := range reworded {
		reworded[i].Question = "rephrased: " + reworded[i].Question
		reworded[i].Variations = nil
	}
	if err := other.Build(context.Background(), reworded); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	data, err := os.ReadFile(otherPaths.Vectors)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if err := os.WriteFile(paths.Vectors, data, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	fresh := New(embedding.NewMockEmbedder(64), paths)
	if err := fresh.Restore(); !errors.Is(err, vector.ErrCorruptState) {
		t.Fatalf("Restore() of mismatched pair error = %v, want ErrCorruptState", err)
	}
}

func TestFailedRecordsWriteLeavesPairIntact(t *testing.T) {
	ix, paths := newTestIndex(t)
	if err := ix.Build(context.Background(), testCorpus()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	before, err := os.ReadFile(paths.Vectors)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	// Block the records staging file so the second write of the pair fails
	// after the vectors artifact has already been staged.
	if err := os.Mkdir(paths.Records+".tmp", 0o755); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}
	smaller := testCorpus()[:1]
	if err := ix.Build(context.Background(), smaller); err == nil {
		t.Fatal("Build() with blocked records file should fail")
	}

	after, err := os.ReadFile(paths.Vectors)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Error("vectors file changed during a failed save")
	}
	fresh := New(embedding.NewMockEmbedder(64), paths)
	if err := fresh.Restore(); err != nil {
		t.Fatalf("Restore() after failed save error = %v", err)
	}
	if fresh.Size() != 3 {
		t.Errorf("restored Size() = %d, want 3", fresh.Size())
	}
}
