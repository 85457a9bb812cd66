package testutil

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
)

// embeddingDim matches the schema's vector(768) columns.
const embeddingDim = 768

// DeterministicEmbedder is an ai.Embedder that derives a unit vector from a
// hash of the input text: identical texts always embed identically, so
// exact-match nearest-neighbor assertions hold without a real model.
type DeterministicEmbedder struct{}

// NewDeterministicEmbedder creates a DeterministicEmbedder.
func NewDeterministicEmbedder() *DeterministicEmbedder {
	return &DeterministicEmbedder{}
}

func (*DeterministicEmbedder) Name() string { return "deterministic-embedder" }

func (*DeterministicEmbedder) Register(api.Registry) {}

func (*DeterministicEmbedder) Embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	resp := &ai.EmbedResponse{}
	for _, doc := range req.Input {
		var text string
		for _, part := range doc.Content {
			text += part.Text
		}
		resp.Embeddings = append(resp.Embeddings, &ai.Embedding{
			Embedding: embedText(text),
		})
	}
	return resp, nil
}

func embedText(text string) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	vec := make([]float32, embeddingDim)
	var norm float64
	for i := range vec {
		v := rng.Float64()*2 - 1
		vec[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
