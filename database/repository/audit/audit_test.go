package auditRepo

import (
	"context"
	"testing"
	"time"

	"servicehub/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestArchive(t *testing.T) *GormArchive {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	return NewGormArchive(db)
}

func TestGormArchive_ArchiveAndGet(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()
	at := time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC)

	require.NoError(t, a.Archive(ctx, models.OfferSummary{
		BookingID: "b1", FinalStatus: models.BookingCompleted, ProviderID: "p2",
		Offered: 2, Accepted: 1, Expired: 1, ArchivedAt: at,
	}))

	got, err := a.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, models.BookingCompleted, got.FinalStatus)
	assert.Equal(t, 2, got.Offered)
	assert.Equal(t, 1, got.Expired)
	assert.Equal(t, "p2", got.ProviderID)
}

func TestGormArchive_ReArchiveKeepsCounts(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()
	at := time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC)

	require.NoError(t, a.Archive(ctx, models.OfferSummary{BookingID: "b1", FinalStatus: models.BookingCancelled, Offered: 3, Declined: 3, ArchivedAt: at}))
	// The refund pass sees no offers any more; counts from the first pass stay.
	require.NoError(t, a.Archive(ctx, models.OfferSummary{BookingID: "b1", FinalStatus: models.BookingRefunded, ArchivedAt: at.Add(time.Hour)}))

	got, err := a.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, models.BookingRefunded, got.FinalStatus)
	assert.Equal(t, 3, got.Offered)
	assert.Equal(t, 3, got.Declined)
}

func TestGormArchive_NotFound(t *testing.T) {
	a := newTestArchive(t)
	_, err := a.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSummaryNotFound)
}
