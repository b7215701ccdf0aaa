package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/poupacompra/nfce-scraper/internal/nfce"
)

func sampleRecord(now time.Time) nfce.ReceiptRecord {
	return nfce.ReceiptRecord{
		ID:          "rec-1",
		SourceURL:   "https://www.nfce.fazenda.sp.gov.br/consulta?p=352401",
		ExtractedAt: now,
		Receipt: nfce.Receipt{
			Establishment: nfce.Establishment{
				Name:    "MERCADO EXEMPLO LTDA",
				TaxID:   "12345678000190",
				Address: "Rua das Flores, 123",
			},
			LineItems: []nfce.LineItem{
				{Description: "CAFE TORRADO 500G", Quantity: 2, UnitType: "UN", UnitPrice: 17.90, TotalPrice: 35.80},
			},
			Summary: nfce.Summary{
				ItemCount:   2,
				TotalAmount: 1234.56,
				OwnerID:     3,
				StateCode:   "SP",
				SourceURL:   "https://www.nfce.fazenda.sp.gov.br/consulta?p=352401 via scrapping docker",
				AccessKey:   "3524 0112 via scrapping docker",
			},
		},
	}
}

func TestSaveReceiptInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewReceiptStoreWithPool(mock, "receipts")
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	rec := sampleRecord(now)

	mock.ExpectExec("INSERT INTO receipts").
		WithArgs(
			rec.ID,
			rec.SourceURL,
			rec.ExtractedAt,
			"SP",
			rec.Receipt.Summary.AccessKey,
			"MERCADO EXEMPLO LTDA",
			"12345678000190",
			2,
			1234.56,
			3,
			pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.SaveReceipt(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveReceiptRequiresID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewReceiptStoreWithPool(mock, "receipts")
	require.NoError(t, err)

	rec := sampleRecord(time.Now())
	rec.ID = ""
	require.Error(t, store.SaveReceipt(context.Background(), rec))
}

func TestSaveReceiptPropagatesExecError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewReceiptStoreWithPool(mock, "receipts")
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO receipts").
		WillReturnError(errors.New("connection refused"))

	err = store.SaveReceipt(context.Background(), sampleRecord(time.Now()))
	require.Error(t, err)
	require.Contains(t, err.Error(), "insert receipt")
}

func TestNewReceiptStoreWithPoolValidatesTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewReceiptStoreWithPool(mock, "receipts; DROP TABLE receipts")
	require.Error(t, err)

	store, err := NewReceiptStoreWithPool(mock, "")
	require.NoError(t, err)
	require.Equal(t, "receipts", store.table)
}
