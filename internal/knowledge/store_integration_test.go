package knowledge

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/helpdesk/internal/retrieval"
	"github.com/koopa0/helpdesk/internal/testutil"
)

func setupIntegrationStore(t *testing.T) (*Store, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if os.Getenv("GEMINI_API_KEY") == "" {
		t.Skip("GEMINI_API_KEY not set - skipping integration test")
	}

	dbContainer, cleanup := testutil.SetupTestDB(t)
	setup := testutil.SetupGoogleAI(t)
	store := New(dbContainer.Pool, setup.Embedder, setup.Logger)

	return store, cleanup
}

func TestStore_AddAndSearch_Integration(t *testing.T) {
	store, cleanup := setupIntegrationStore(t)
	defer cleanup()

	ctx := context.Background()

	doc := Document{
		ID:      "phone-reset-0",
		Content: "To force restart the phone, hold the power and volume buttons until the logo appears.",
		Metadata: map[string]string{
			retrieval.MetaTitle:   "Force restart your phone",
			retrieval.MetaURL:     "https://support.example.com/phone-reset",
			retrieval.MetaProduct: "phone",
		},
	}
	require.NoError(t, store.Add(ctx, doc))

	hits, err := store.Search(ctx, "how do I force restart my phone", 1, nil)
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	assert.Equal(t, doc.Content, hits[0].Content)
	assert.Equal(t, "phone", hits[0].Metadata[retrieval.MetaProduct])
	assert.Greater(t, hits[0].Score, 0.0)
}

func TestStore_FilteredSearch_Integration(t *testing.T) {
	store, cleanup := setupIntegrationStore(t)
	defer cleanup()

	ctx := context.Background()

	docs := []Document{
		{
			ID:       "phone-battery-0",
			Content:  "Reduce screen brightness to extend phone battery life.",
			Metadata: map[string]string{retrieval.MetaProduct: "phone"},
		},
		{
			ID:       "laptop-battery-0",
			Content:  "Laptop batteries last longer when kept between 20 and 80 percent charge.",
			Metadata: map[string]string{retrieval.MetaProduct: "laptop"},
		},
	}
	n, err := store.AddBatch(ctx, docs)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	hits, err := store.Search(ctx, "battery life tips", 5, map[string]string{retrieval.MetaProduct: "laptop"})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	for _, hit := range hits {
		assert.Equal(t, "laptop", hit.Metadata[retrieval.MetaProduct])
	}
}

func TestStore_Upsert_Integration(t *testing.T) {
	store, cleanup := setupIntegrationStore(t)
	defer cleanup()

	ctx := context.Background()

	doc := Document{ID: "dup-0", Content: "original content"}
	require.NoError(t, store.Add(ctx, doc))

	doc.Content = "revised content"
	require.NoError(t, store.Add(ctx, doc))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "same id should upsert, not duplicate")
}

func TestStore_CountGrows_Integration(t *testing.T) {
	store, cleanup := setupIntegrationStore(t)
	defer cleanup()

	ctx := context.Background()

	for i := range 3 {
		doc := Document{
			ID:      fmt.Sprintf("doc-%d", i),
			Content: fmt.Sprintf("support article number %d", i),
		}
		require.NoError(t, store.Add(ctx, doc))
	}

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}
