package worldstate

import (
	"sort"
	"time"

	"github.com/vexd/vexd/pkg/storage"
	"github.com/vexd/vexd/pkg/types"
)

// PutEmbedding stores a fixed-size vector against an intent.
func (m *Manager) PutEmbedding(tx *storage.Tx, intentID, model string, vector []float32, now time.Time) error {
	return tx.PutEmbedding(types.Embedding{
		IntentID:   intentID,
		Vector:     vector,
		Model:      model,
		Dimensions: len(vector),
		CreatedAt:  now,
	})
}

// SimilarityMatch is one result of a semantic search query.
type SimilarityMatch struct {
	IntentID string
	Score    float64
}

// SemanticSearch scores every stored embedding against query by cosine
// similarity and returns the top-k matches, descending by score. With no
// vector index, this is a full scan — adequate for the repository sizes
// this engine targets (spec.md §4.2 "Embeddings").
func (m *Manager) SemanticSearch(tx *storage.Tx, query []float32, topK int) ([]SimilarityMatch, error) {
	all, err := tx.AllEmbeddings()
	if err != nil {
		return nil, err
	}

	matches := make([]SimilarityMatch, 0, len(all))
	for _, e := range all {
		score, err := storage.CosineSimilarity(query, e.Vector)
		if err != nil {
			continue // dimension mismatch: skip rather than fail the whole search
		}
		matches = append(matches, SimilarityMatch{IntentID: e.IntentID, Score: score})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}
