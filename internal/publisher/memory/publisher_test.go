package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/poupacompra/nfce-scraper/internal/nfce"
)

func TestPublishRecordsAndReturnsIDs(t *testing.T) {
	t.Parallel()

	p := New()
	id1, err := p.Publish(context.Background(), nfce.ReceiptRecord{ID: "a"})
	require.NoError(t, err)
	id2, err := p.Publish(context.Background(), nfce.ReceiptRecord{ID: "b"})
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)

	records := p.Records()
	require.Len(t, records, 2)
	require.Equal(t, "a", records[0].ID)
	require.Equal(t, "b", records[1].ID)
}
