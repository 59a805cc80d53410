package storage

import (
	"fmt"
	"math"

	"github.com/vexd/vexd/pkg/types"
)

// embeddingRecord is the bucket "embeddings" value shape; the vector is
// stored as float64 for JSON stability regardless of the float32 it was
// computed at.
type embeddingRecord struct {
	IntentID   string    `json:"intent_id"`
	Vector     []float64 `json:"vector"`
	Model      string    `json:"model"`
	Dimensions int       `json:"dimensions"`
	CreatedAt  int64     `json:"created_at_unix"`
}

// PutEmbedding stores an intent's embedding vector, keyed by intent ID —
// at most one embedding per intent, whatever its model (spec.md §3 "Embedding",
// an auxiliary record for semantic search over intents).
func (tx *Tx) PutEmbedding(e types.Embedding) error {
	vec := make([]float64, len(e.Vector))
	for i, f := range e.Vector {
		vec[i] = float64(f)
	}
	rec := embeddingRecord{
		IntentID:   e.IntentID,
		Vector:     vec,
		Model:      e.Model,
		Dimensions: e.Dimensions,
		CreatedAt:  e.CreatedAt.Unix(),
	}
	return putRecord(tx.btx.Bucket(bucketEmbeddings), e.IntentID, rec)
}

// GetEmbedding loads the embedding stored for intentID.
func (tx *Tx) GetEmbedding(intentID string) (types.Embedding, error) {
	var rec embeddingRecord
	if err := getRecord(tx.btx.Bucket(bucketEmbeddings), intentID, &rec); err != nil {
		return types.Embedding{}, err
	}
	vec := make([]float32, len(rec.Vector))
	for i, f := range rec.Vector {
		vec[i] = float32(f)
	}
	return types.Embedding{
		IntentID:   rec.IntentID,
		Vector:     vec,
		Model:      rec.Model,
		Dimensions: rec.Dimensions,
	}, nil
}

// AllEmbeddings returns every stored embedding, the basis for a brute-force
// cosine-similarity scan (spec.md's embedding search is explicitly scoped
// to "no vector index required" for repositories of the expected size).
func (tx *Tx) AllEmbeddings() ([]types.Embedding, error) {
	var out []types.Embedding
	err := tx.btx.Bucket(bucketEmbeddings).ForEach(func(_, raw []byte) error {
		var rec embeddingRecord
		if err := decodeJSON(raw, &rec); err != nil {
			return err
		}
		vec := make([]float32, len(rec.Vector))
		for i, f := range rec.Vector {
			vec[i] = float32(f)
		}
		out = append(out, types.Embedding{
			IntentID:   rec.IntentID,
			Vector:     vec,
			Model:      rec.Model,
			Dimensions: rec.Dimensions,
		})
		return nil
	})
	return out, err
}

// CosineSimilarity returns the cosine of the angle between a and b, or an
// error if their dimensions differ.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("embedding dimension mismatch: %d vs %d", len(a), len(b))
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
