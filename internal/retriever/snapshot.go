package retriever

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/PriyamJChakrabarty/Smart-Telecom-Helpline-AI-Agent/internal/models"
	"github.com/PriyamJChakrabarty/Smart-Telecom-Helpline-AI-Agent/internal/vector"
)

const snapshotVersion = 2

// Paths names the two files of a persisted index snapshot: the binary vector
// artifact and the gob-encoded record metadata that travels with it. The two
// are only meaningful as a pair.
type Paths struct {
	Vectors string
	Records string
}

// snapshotMeta is the durable record-side state. Texts holds the exact
// searchable text each vector was embedded from, so a restore can verify the
// pairing instead of trusting it. VectorsSum couples the records to the one
// vectors artifact they were written with: two builds over a same-shaped
// corpus produce identical headers, so structural checks alone cannot tell
// a fresh vectors file from a stale records file.
type snapshotMeta struct {
	Version    int
	ModelID    string
	Count      int
	VectorsSum string
	FAQs       []models.FAQ
	Texts      []string
}

// SnapshotExists reports whether both snapshot files are present. A lone
// half of the pair is treated as absent; Restore would reject it anyway.
func SnapshotExists(p Paths) bool {
	if _, err := os.Stat(p.Vectors); err != nil {
		return false
	}
	if _, err := os.Stat(p.Records); err != nil {
		return false
	}
	return true
}

// saveSnapshot writes the pair through temp files and renames both into
// place only after both writes succeed, so the live files never hold a
// half-written artifact or a new vectors file beside old records.
func saveSnapshot(p Paths, store *vector.Store, faqs []models.FAQ, modelID string) error {
	for _, path := range []string{p.Vectors, p.Records} {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create snapshot directory: %w", err)
			}
		}
	}
	tmpVectors := p.Vectors + ".tmp"
	tmpRecords := p.Records + ".tmp"
	if err := store.Save(tmpVectors); err != nil {
		return err
	}
	sum, err := fileChecksum(tmpVectors)
	if err != nil {
		os.Remove(tmpVectors)
		return fmt.Errorf("checksum vectors file: %w", err)
	}
	meta := snapshotMeta{
		Version:    snapshotVersion,
		ModelID:    modelID,
		Count:      len(faqs),
		VectorsSum: sum,
		FAQs:       faqs,
		Texts:      make([]string, len(faqs)),
	}
	for i := range faqs {
		meta.Texts[i] = faqs[i].SearchableText()
	}
	if err := writeRecords(tmpRecords, meta); err != nil {
		os.Remove(tmpVectors)
		return err
	}
	if err := os.Rename(tmpVectors, p.Vectors); err != nil {
		os.Remove(tmpVectors)
		os.Remove(tmpRecords)
		return fmt.Errorf("publish vectors file: %w", err)
	}
	if err := os.Rename(tmpRecords, p.Records); err != nil {
		os.Remove(tmpRecords)
		return fmt.Errorf("publish records file: %w", err)
	}
	return nil
}

func writeRecords(path string, meta snapshotMeta) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create records file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(meta); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("encode records: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("close records file: %w", err)
	}
	return nil
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// loadSnapshot reads and cross-validates the pair. Every structural defect
// maps to vector.ErrCorruptState so callers classify with a single sentinel;
// the one non-structural rejection, a model identifier mismatch, gets its
// own sentinel because the fix differs (rebuild, not restore-from-backup).
func loadSnapshot(p Paths, modelID string) (*vector.Store, []models.FAQ, error) {
	store, err := vector.LoadStore(p.Vectors)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(p.Records)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open records file: %v", vector.ErrCorruptState, err)
	}
	defer f.Close()
	var meta snapshotMeta
	if err := gob.NewDecoder(f).Decode(&meta); err != nil {
		return nil, nil, fmt.Errorf("%w: decode records: %v", vector.ErrCorruptState, err)
	}
	if meta.Version != snapshotVersion {
		return nil, nil, fmt.Errorf("%w: unsupported records version %d", vector.ErrCorruptState, meta.Version)
	}
	if meta.Count != len(meta.FAQs) || len(meta.Texts) != len(meta.FAQs) {
		return nil, nil, fmt.Errorf("%w: records metadata is internally inconsistent", vector.ErrCorruptState)
	}
	if store.Len() != len(meta.FAQs) {
		return nil, nil, fmt.Errorf("%w: %d vectors but %d records", vector.ErrCorruptState, store.Len(), len(meta.FAQs))
	}
	sum, err := fileChecksum(p.Vectors)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: checksum vectors file: %v", vector.ErrCorruptState, err)
	}
	if sum != meta.VectorsSum {
		return nil, nil, fmt.Errorf("%w: vectors file does not match records", vector.ErrCorruptState)
	}
	for i := range meta.FAQs {
		if meta.FAQs[i].ID != i {
			return nil, nil, fmt.Errorf("%w: record %d carries id %d", vector.ErrCorruptState, i, meta.FAQs[i].ID)
		}
		if err := meta.FAQs[i].Validate(); err != nil {
			return nil, nil, fmt.Errorf("%w: record %d: %v", vector.ErrCorruptState, i, err)
		}
		if meta.Texts[i] != meta.FAQs[i].SearchableText() {
			return nil, nil, fmt.Errorf("%w: record %d text does not match its vector", vector.ErrCorruptState, i)
		}
	}
	if meta.ModelID != modelID {
		return nil, nil, fmt.Errorf("%w: snapshot model %q, configured model %q", ErrModelMismatch, meta.ModelID, modelID)
	}
	return store, meta.FAQs, nil
}
