package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nordtolk/booking-backend/pkg/db/models"
	"github.com/nordtolk/booking-backend/pkg/enums"
)

// sqlite cannot evaluate the postgres column defaults on the real model, so
// the schema is created from a mirror struct sharing table and column names.
type notificationTable struct {
	ID        uuid.UUID  `gorm:"column:id;primaryKey"`
	UserID    uuid.UUID  `gorm:"column:user_id"`
	JobID     *uuid.UUID `gorm:"column:job_id"`
	Type      string     `gorm:"column:type"`
	Title     string     `gorm:"column:title"`
	Message   string     `gorm:"column:message"`
	Link      *string    `gorm:"column:link"`
	ReadAt    *time.Time `gorm:"column:read_at"`
	CreatedAt time.Time  `gorm:"column:created_at"`
}

func (notificationTable) TableName() string { return "notifications" }

func newRepoTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:notifications_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&notificationTable{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedNotification(t *testing.T, db *gorm.DB, userID uuid.UUID, createdAt time.Time, read bool) *models.Notification {
	t.Helper()
	row := &models.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      enums.NotificationTypeBookingCreated,
		Title:     "Bokning mottagen",
		Message:   "Vi har tagit emot din bokning.",
		CreatedAt: createdAt,
	}
	if read {
		readAt := createdAt.Add(time.Minute)
		row.ReadAt = &readAt
	}
	if err := db.Create(row).Error; err != nil {
		t.Fatalf("seed notification: %v", err)
	}
	return row
}

func TestRepositoryListPaginatesNewestFirst(t *testing.T) {
	db := newRepoTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	oldest := seedNotification(t, db, userID, base.Add(-2*time.Hour), false)
	middle := seedNotification(t, db, userID, base.Add(-time.Hour), false)
	newest := seedNotification(t, db, userID, base, false)
	seedNotification(t, db, uuid.New(), base, false)

	rows, cursor, err := repo.List(context.Background(), listNotificationsParams{UserID: userID, Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].ID != newest.ID || rows[1].ID != middle.ID {
		t.Fatal("rows out of order")
	}
	if cursor == nil {
		t.Fatal("expected cursor for next page")
	}

	rest, next, err := repo.List(context.Background(), listNotificationsParams{UserID: userID, Limit: 2, Cursor: cursor})
	if err != nil {
		t.Fatalf("list second page: %v", err)
	}
	if len(rest) != 1 || rest[0].ID != oldest.ID {
		t.Fatalf("unexpected second page: %d rows", len(rest))
	}
	if next != nil {
		t.Fatal("expected exhausted cursor")
	}
}

func TestRepositoryListUnreadOnly(t *testing.T) {
	db := newRepoTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	seedNotification(t, db, userID, base.Add(-time.Hour), true)
	unread := seedNotification(t, db, userID, base, false)

	rows, _, err := repo.List(context.Background(), listNotificationsParams{UserID: userID, Limit: 10, UnreadOnly: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != unread.ID {
		t.Fatalf("expected only the unread row, got %d", len(rows))
	}
}

func TestRepositoryMarkRead(t *testing.T) {
	db := newRepoTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()
	row := seedNotification(t, db, userID, time.Now().UTC(), false)

	result, err := repo.MarkRead(context.Background(), userID, row.ID, time.Now().UTC())
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if !result.Found || !result.Updated {
		t.Fatalf("unexpected result %+v", result)
	}

	again, err := repo.MarkRead(context.Background(), userID, row.ID, time.Now().UTC())
	if err != nil {
		t.Fatalf("mark read twice: %v", err)
	}
	if !again.Found || again.Updated {
		t.Fatalf("second mark should find but not update, got %+v", again)
	}

	other, err := repo.MarkRead(context.Background(), uuid.New(), row.ID, time.Now().UTC())
	if err != nil {
		t.Fatalf("mark read foreign: %v", err)
	}
	if other.Found {
		t.Fatal("row should not be visible to another user")
	}
}

func TestRepositoryMarkAllRead(t *testing.T) {
	db := newRepoTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()
	base := time.Now().UTC()

	seedNotification(t, db, userID, base.Add(-time.Hour), false)
	seedNotification(t, db, userID, base, false)
	seedNotification(t, db, userID, base.Add(-2*time.Hour), true)

	count, err := repo.MarkAllRead(context.Background(), userID, time.Now().UTC())
	if err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 updated rows, got %d", count)
	}
}
