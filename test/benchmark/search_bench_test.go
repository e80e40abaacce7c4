package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/PriyamJChakrabarty/Smart-Telecom-Helpline-AI-Agent/internal/embedding"
	"github.com/PriyamJChakrabarty/Smart-Telecom-Helpline-AI-Agent/internal/vector"
)

func BenchmarkStoreSearch(b *testing.B) {
	store := vector.NewStore()
	for i := 0; i < 1000; i++ {
		vec := make([]float32, 384)
		vec[i%384] = 1.0
		vec[(i+7)%384] = 0.5
		_ = vector.Normalize(vec)
		_ = store.Add(vec)
	}
	query := make([]float32, 384)
	query[0] = 1.0
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.Search(query, 3)
	}
}

func BenchmarkNormalize(b *testing.B) {
	vec := make([]float32, 384)
	for i := range vec {
		vec[i] = float32(i%17) - 8
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = vector.Normalize(vec)
	}
}

func BenchmarkMockEmbedder_Embed(b *testing.B) {
	e := embedding.NewMockEmbedder(384)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, "how do i check my prepaid balance")
	}
}

func BenchmarkCachedEmbedder_Hit(b *testing.B) {
	e := embedding.NewCachedEmbedder(embedding.NewMockEmbedder(384), 128)
	ctx := context.Background()
	queries := make([]string, 64)
	for i := range queries {
		queries[i] = fmt.Sprintf("query number %d about recharge", i)
	}
	for _, q := range queries {
		_, _ = e.Embed(ctx, q)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, queries[i%len(queries)])
	}
}
