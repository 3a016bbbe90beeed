package auditRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"servicehub/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OfferSummaryRecord is the durable trace of a booking's dispatch once its
// offers have been pruned.
type OfferSummaryRecord struct {
	BookingID   string `gorm:"primaryKey;size:64"`
	FinalStatus string `gorm:"size:32;index"`
	ProviderID  string `gorm:"size:64;index"`
	Offered     int
	Accepted    int
	Declined    int
	Expired     int
	ArchivedAt  time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (OfferSummaryRecord) TableName() string { return "offer_summaries" }

// Archive stores offer summaries.
type Archive interface {
	Archive(ctx context.Context, summary models.OfferSummary) error
	Get(ctx context.Context, bookingID string) (*models.OfferSummary, error)
}

var ErrSummaryNotFound = errors.New("offer summary not found")

// GormArchive implements Archive with GORM.
type GormArchive struct {
	db *gorm.DB
}

func NewGormArchive(db *gorm.DB) *GormArchive {
	return &GormArchive{db: db}
}

// AutoMigrate creates the summary table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&OfferSummaryRecord{})
}

// Archive upserts the summary so archiving the same booking twice (completed,
// then refunded) keeps one row with the latest status.
func (a *GormArchive) Archive(ctx context.Context, s models.OfferSummary) error {
	rec := OfferSummaryRecord{
		BookingID:   s.BookingID,
		FinalStatus: string(s.FinalStatus),
		ProviderID:  s.ProviderID,
		Offered:     s.Offered,
		Accepted:    s.Accepted,
		Declined:    s.Declined,
		Expired:     s.Expired,
		ArchivedAt:  s.ArchivedAt,
	}
	err := a.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "booking_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"final_status", "provider_id", "archived_at", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("archive offers for %s: %w", s.BookingID, err)
	}
	return nil
}

func (a *GormArchive) Get(ctx context.Context, bookingID string) (*models.OfferSummary, error) {
	var rec OfferSummaryRecord
	if err := a.db.WithContext(ctx).First(&rec, "booking_id = ?", bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("booking %s: %w", bookingID, ErrSummaryNotFound)
		}
		return nil, err
	}
	return &models.OfferSummary{
		BookingID:   rec.BookingID,
		FinalStatus: models.BookingStatus(rec.FinalStatus),
		ProviderID:  rec.ProviderID,
		Offered:     rec.Offered,
		Accepted:    rec.Accepted,
		Declined:    rec.Declined,
		Expired:     rec.Expired,
		ArchivedAt:  rec.ArchivedAt,
	}, nil
}
