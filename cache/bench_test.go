package cache

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func BenchmarkMemoryCache_Delete(b *testing.B) {
	c := NewMemoryCache()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := fmt.Sprintf("key-%d", i%1024)
		_ = c.Set(ctx, key, []byte("v"), time.Hour)
		_ = c.Delete(ctx, key)
	}
}

func BenchmarkMemoryCache_Clear(b *testing.B) {
	c := NewMemoryCache()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Set(ctx, "k", []byte("v"), time.Hour)
		_ = c.Clear(ctx)
	}
}

func BenchmarkLRUCache_SetEvict(b *testing.B) {
	c, _ := NewLRUCache(128)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Set(ctx, fmt.Sprintf("key-%d", i), []byte("v"), time.Hour)
	}
}

func BenchmarkMemoryCache_Concurrent_DeleteGet(b *testing.B) {
	c := NewMemoryCache()
	ctx := context.Background()
	_ = c.Set(ctx, "hot", []byte("v"), time.Hour)

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if i%8 == 0 {
				_ = c.Delete(ctx, "hot")
			} else {
				_, _ = c.Get(ctx, "hot")
			}
			i++
		}
	})
}

func BenchmarkValidateKey(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = ValidateKey("cache:orders.UpdateOrder:0123456789abcdef")
	}
}
