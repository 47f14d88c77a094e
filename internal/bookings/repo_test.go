package bookings

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nordtolk/booking-backend/pkg/db/models"
	"github.com/nordtolk/booking-backend/pkg/enums"
	"github.com/nordtolk/booking-backend/pkg/pagination"
)

// sqlite cannot evaluate the postgres column defaults on the real models, so
// the schema is created from mirror structs that share table and column names.
type jobTable struct {
	ID              uuid.UUID `gorm:"column:id;primaryKey"`
	CustomerID      uuid.UUID `gorm:"column:customer_id"`
	Status          string    `gorm:"column:status"`
	JobType         string    `gorm:"column:job_type"`
	FromLanguageID  uuid.UUID `gorm:"column:from_language_id"`
	ToLanguageID    *uuid.UUID `gorm:"column:to_language_id"`
	Due             time.Time  `gorm:"column:due"`
	DurationMins    int        `gorm:"column:duration_mins"`
	Immediate       bool       `gorm:"column:immediate"`
	PhoneBooking    bool       `gorm:"column:phone_booking"`
	PhysicalBooking bool       `gorm:"column:physical_booking"`
	Town            *string    `gorm:"column:town"`
	Gender          *string    `gorm:"column:gender"`
	Certified       *string    `gorm:"column:certified"`
	AdminComments   *string    `gorm:"column:admin_comments"`
	Reference       *string    `gorm:"column:reference"`
	UserEmail       *string    `gorm:"column:user_email"`
	Address         *string    `gorm:"column:address"`
	Instructions    *string    `gorm:"column:instructions"`
	IgnoreExpiring  bool       `gorm:"column:ignore_expiring"`
	IgnoreExpired   bool       `gorm:"column:ignore_expired"`
	SessionTime     *string    `gorm:"column:session_time"`
	CreatedByAdmin  bool       `gorm:"column:created_by_admin"`
	WillExpireAt    *time.Time `gorm:"column:will_expire_at"`
	ExpiredAt       *time.Time `gorm:"column:expired_at"`
	CanceledAt      *time.Time `gorm:"column:canceled_at"`
	SessionEndedAt  *time.Time `gorm:"column:session_ended_at"`
	EarmarkedTranslatorID *uuid.UUID `gorm:"column:earmarked_translator_id"`
	ReopenedFromID  *uuid.UUID `gorm:"column:reopened_from_id"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
}

func (jobTable) TableName() string { return "jobs" }

type assignmentTable struct {
	ID               uuid.UUID  `gorm:"column:id;primaryKey"`
	JobID            uuid.UUID  `gorm:"column:job_id"`
	TranslatorUserID uuid.UUID  `gorm:"column:translator_user_id"`
	AssignedByUserID *uuid.UUID `gorm:"column:assigned_by_user_id"`
	Active           bool       `gorm:"column:active"`
	AssignedAt       time.Time  `gorm:"column:assigned_at"`
	CanceledAt       *time.Time `gorm:"column:canceled_at"`
	CompletedAt      *time.Time `gorm:"column:completed_at"`
}

func (assignmentTable) TableName() string { return "translator_assignments" }

type userTable struct {
	ID                 uuid.UUID `gorm:"column:id;primaryKey"`
	Email              string    `gorm:"column:email"`
	Name               string    `gorm:"column:name"`
	Phone              *string   `gorm:"column:phone"`
	Type               string    `gorm:"column:type"`
	IsActive           bool      `gorm:"column:is_active"`
	Town               *string   `gorm:"column:town"`
	Gender             *string   `gorm:"column:gender"`
	ConsumerType       *string   `gorm:"column:consumer_type"`
	TranslatorType     *string   `gorm:"column:translator_type"`
	TranslatorLevel    *string   `gorm:"column:translator_level"`
	LanguageIDs        string    `gorm:"column:language_ids"`
	SuppressAllPush    bool      `gorm:"column:suppress_all_push"`
	RejectEmergency    bool      `gorm:"column:reject_emergency"`
	DelayNighttimePush bool      `gorm:"column:delay_nighttime_push"`
	CreatedAt          time.Time `gorm:"column:created_at"`
	UpdatedAt          time.Time `gorm:"column:updated_at"`
}

func (userTable) TableName() string { return "users" }

type distanceTable struct {
	JobID           uuid.UUID `gorm:"column:job_id;primaryKey"`
	DistanceKM      string    `gorm:"column:distance_km"`
	TravelTime      *string   `gorm:"column:travel_time"`
	SessionComments *string   `gorm:"column:session_comments"`
	FlaggedByAdmin  bool      `gorm:"column:flagged_by_admin"`
	AdminComment    *string   `gorm:"column:admin_comment"`
	ManuallyHandled bool      `gorm:"column:manually_handled"`
	FollowedUp      bool      `gorm:"column:followed_up"`
	CreatedAt       time.Time `gorm:"column:created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
}

func (distanceTable) TableName() string { return "job_distances" }

func newRepoTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:bookings_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&jobTable{}, &assignmentTable{}, &userTable{}, &distanceTable{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedJobRow(t *testing.T, db *gorm.DB, status enums.JobStatus, createdAt time.Time) *models.Job {
	t.Helper()
	job := &models.Job{
		ID:             uuid.New(),
		CustomerID:     uuid.New(),
		Status:         status,
		JobType:        enums.JobTypePaid,
		FromLanguageID: uuid.New(),
		Due:            createdAt.Add(48 * time.Hour),
		DurationMins:   60,
		PhoneBooking:   true,
		CreatedAt:      createdAt,
	}
	if err := db.Create(job).Error; err != nil {
		t.Fatalf("seed job: %v", err)
	}
	return job
}

func TestRepoCreateAndFindJob(t *testing.T) {
	t.Parallel()
	db := newRepoTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	job := &models.Job{
		ID:             uuid.New(),
		CustomerID:     uuid.New(),
		Status:         enums.JobStatusPending,
		JobType:        enums.JobTypeRWS,
		FromLanguageID: uuid.New(),
		Due:            time.Now().Add(24 * time.Hour),
		DurationMins:   30,
		PhoneBooking:   true,
	}
	if _, err := repo.CreateJob(ctx, job); err != nil {
		t.Fatalf("create job: %v", err)
	}

	got, err := repo.FindJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("find job: %v", err)
	}
	if got.Status != enums.JobStatusPending || got.JobType != enums.JobTypeRWS {
		t.Fatalf("unexpected job %+v", got)
	}
}

func TestRepoMarkAssignedIfPending(t *testing.T) {
	t.Parallel()
	db := newRepoTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	job := seedJobRow(t, db, enums.JobStatusPending, time.Now())

	won, err := repo.MarkAssignedIfPending(ctx, job.ID)
	if err != nil {
		t.Fatalf("mark assigned: %v", err)
	}
	if !won {
		t.Fatal("expected first caller to win the row")
	}

	won, err = repo.MarkAssignedIfPending(ctx, job.ID)
	if err != nil {
		t.Fatalf("second mark assigned: %v", err)
	}
	if won {
		t.Fatal("expected second caller to lose the row")
	}

	got, err := repo.FindJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("find job: %v", err)
	}
	if got.Status != enums.JobStatusAssigned {
		t.Fatalf("expected assigned got %s", got.Status)
	}
}

func TestRepoAssignmentLifecycle(t *testing.T) {
	t.Parallel()
	db := newRepoTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	job := seedJobRow(t, db, enums.JobStatusAssigned, time.Now())
	translatorID := uuid.New()

	err := repo.CreateAssignment(ctx, &models.TranslatorAssignment{
		ID:               uuid.New(),
		JobID:            job.ID,
		TranslatorUserID: translatorID,
		Active:           true,
	})
	if err != nil {
		t.Fatalf("create assignment: %v", err)
	}

	active, err := repo.FindActiveAssignment(ctx, job.ID)
	if err != nil {
		t.Fatalf("find active assignment: %v", err)
	}
	if active == nil || active.TranslatorUserID != translatorID {
		t.Fatalf("unexpected assignment %+v", active)
	}

	now := time.Now()
	if err := repo.CloseActiveAssignment(ctx, job.ID, map[string]any{"canceled_at": now}); err != nil {
		t.Fatalf("close assignment: %v", err)
	}
	active, err = repo.FindActiveAssignment(ctx, job.ID)
	if err != nil {
		t.Fatalf("find after close: %v", err)
	}
	if active != nil {
		t.Fatalf("expected no active assignment, got %+v", active)
	}
}

func TestRepoListCustomerJobsPagination(t *testing.T) {
	t.Parallel()
	db := newRepoTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	customerID := uuid.New()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		job := &models.Job{
			ID:             uuid.New(),
			CustomerID:     customerID,
			Status:         enums.JobStatusPending,
			JobType:        enums.JobTypePaid,
			FromLanguageID: uuid.New(),
			Due:            base.Add(72 * time.Hour),
			DurationMins:   60,
			PhoneBooking:   true,
			CreatedAt:      base.Add(time.Duration(i) * time.Hour),
		}
		if err := db.Create(job).Error; err != nil {
			t.Fatalf("seed job %d: %v", i, err)
		}
	}

	page, err := repo.ListCustomerJobs(ctx, customerID, enums.ActiveJobStatuses, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("list first page: %v", err)
	}
	if len(page.Jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(page.Jobs))
	}
	if page.NextCursor == "" {
		t.Fatal("expected a next cursor")
	}
	if !page.Jobs[0].CreatedAt.After(page.Jobs[1].CreatedAt) {
		t.Fatal("expected newest first ordering")
	}

	rest, err := repo.ListCustomerJobs(ctx, customerID, enums.ActiveJobStatuses, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	if err != nil {
		t.Fatalf("list second page: %v", err)
	}
	if len(rest.Jobs) != 1 {
		t.Fatalf("expected 1 job on second page, got %d", len(rest.Jobs))
	}
	if rest.NextCursor != "" {
		t.Fatal("expected no cursor on the last page")
	}
}

func TestRepoFindExpiredPending(t *testing.T) {
	t.Parallel()
	db := newRepoTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	expired := seedJobRow(t, db, enums.JobStatusPending, now.Add(-3*time.Hour))
	past := now.Add(-time.Hour)
	if err := db.Model(&models.Job{}).Where("id = ?", expired.ID).Update("will_expire_at", past).Error; err != nil {
		t.Fatalf("set expiry: %v", err)
	}

	fresh := seedJobRow(t, db, enums.JobStatusPending, now)
	future := now.Add(time.Hour)
	if err := db.Model(&models.Job{}).Where("id = ?", fresh.ID).Update("will_expire_at", future).Error; err != nil {
		t.Fatalf("set expiry: %v", err)
	}

	rows, err := repo.FindExpiredPending(ctx, now, 10)
	if err != nil {
		t.Fatalf("find expired: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != expired.ID {
		t.Fatalf("expected only the expired job, got %+v", rows)
	}
}

func TestRepoUpsertDistance(t *testing.T) {
	t.Parallel()
	db := newRepoTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	job := seedJobRow(t, db, enums.JobStatusCompleted, time.Now())

	first := &models.JobDistance{JobID: job.ID}
	if err := repo.UpsertDistance(ctx, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	comment := "reviewed"
	second := &models.JobDistance{JobID: job.ID, FlaggedByAdmin: true, AdminComment: &comment}
	if err := repo.UpsertDistance(ctx, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := repo.FindDistance(ctx, job.ID)
	if err != nil {
		t.Fatalf("find distance: %v", err)
	}
	if got == nil || !got.FlaggedByAdmin || got.AdminComment == nil || *got.AdminComment != comment {
		t.Fatalf("unexpected distance %+v", got)
	}

	var count int64
	if err := db.Model(&models.JobDistance{}).Where("job_id = ?", job.ID).Count(&count).Error; err != nil {
		t.Fatalf("count distances: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single row, got %d", count)
	}
}

func TestRepoFindUser(t *testing.T) {
	t.Parallel()
	db := newRepoTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	row := userTable{
		ID:          uuid.New(),
		Email:       "tolk@example.com",
		Name:        "Tolk Tolksson",
		Type:        string(enums.UserTypeTranslator),
		IsActive:    true,
		LanguageIDs: "{}",
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	user, err := repo.FindUser(ctx, row.ID)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if user.Type != enums.UserTypeTranslator || user.Email != "tolk@example.com" {
		t.Fatalf("unexpected user %+v", user)
	}
	if len(user.LanguageIDs) != 0 {
		t.Fatalf("expected empty language list, got %v", user.LanguageIDs)
	}
}
