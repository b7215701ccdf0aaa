package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/poupacompra/nfce-scraper/internal/nfce"
)

func TestSaveReceiptAndRecords(t *testing.T) {
	t.Parallel()

	store := NewReceiptStore()
	err := store.SaveReceipt(context.Background(), nfce.ReceiptRecord{ID: "a"})
	require.NoError(t, err)

	records := store.Records()
	require.Len(t, records, 1)
	require.Equal(t, "a", records[0].ID)

	// Mutating the copy must not touch the store.
	records[0].ID = "mutated"
	require.Equal(t, "a", store.Records()[0].ID)
}

func TestConcurrentSaves(t *testing.T) {
	t.Parallel()

	store := NewReceiptStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.SaveReceipt(context.Background(), nfce.ReceiptRecord{ID: "x"})
		}()
	}
	wg.Wait()
	require.Len(t, store.Records(), 50)
}
