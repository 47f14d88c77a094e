package matching

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/nordtolk/booking-backend/pkg/db/models"
	"github.com/nordtolk/booking-backend/pkg/enums"
)

type stubMatchingRepo struct {
	candidates   []models.User
	openJobs     []models.Job
	blacklisted  []uuid.UUID
	blacklisting []uuid.UUID
	lastQuery    TranslatorQuery
	lastJobQuery JobQuery
}

func (s *stubMatchingRepo) FindEligibleTranslators(ctx context.Context, query TranslatorQuery) ([]models.User, error) {
	s.lastQuery = query
	return s.candidates, nil
}

func (s *stubMatchingRepo) FindOpenJobs(ctx context.Context, query JobQuery) ([]models.Job, error) {
	s.lastJobQuery = query
	return s.openJobs, nil
}

func (s *stubMatchingRepo) ListBlacklistedTranslatorIDs(ctx context.Context, customerID uuid.UUID) ([]uuid.UUID, error) {
	return s.blacklisted, nil
}

func (s *stubMatchingRepo) ListBlacklistingCustomerIDs(ctx context.Context, translatorID uuid.UUID) ([]uuid.UUID, error) {
	return s.blacklisting, nil
}

func strPtr(v string) *string { return &v }

func genderPtr(g enums.Gender) *enums.Gender { return &g }

func TestPotentialTranslatorsQueryDerivation(t *testing.T) {
	repo := &stubMatchingRepo{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("constructor failed: %v", err)
	}

	certified := enums.CertifiedLaw
	job := &models.Job{
		ID:             uuid.New(),
		CustomerID:     uuid.New(),
		JobType:        enums.JobTypeRWS,
		FromLanguageID: uuid.New(),
		Certified:      &certified,
		PhoneBooking:   true,
	}
	if _, err := svc.PotentialTranslators(context.Background(), job); err != nil {
		t.Fatalf("match failed: %v", err)
	}
	if repo.lastQuery.TranslatorType != enums.TranslatorTypeRWS {
		t.Fatalf("expected rws translator type, got %s", repo.lastQuery.TranslatorType)
	}
	if len(repo.lastQuery.Levels) != 1 || repo.lastQuery.Levels[0] != enums.LevelCertifiedLaw {
		t.Fatalf("expected law specialisation only, got %v", repo.lastQuery.Levels)
	}
	if repo.lastQuery.LanguageID != job.FromLanguageID {
		t.Fatal("expected language filter to follow the booking")
	}
}

func TestPotentialTranslatorsBlacklist(t *testing.T) {
	blocked := models.User{ID: uuid.New()}
	allowed := models.User{ID: uuid.New()}
	repo := &stubMatchingRepo{
		candidates:  []models.User{blocked, allowed},
		blacklisted: []uuid.UUID{blocked.ID},
	}
	svc, _ := NewService(repo)

	got, err := svc.PotentialTranslators(context.Background(), &models.Job{
		ID: uuid.New(), CustomerID: uuid.New(), JobType: enums.JobTypePaid,
		FromLanguageID: uuid.New(), PhoneBooking: true,
	})
	if err != nil {
		t.Fatalf("match failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != allowed.ID {
		t.Fatalf("expected blacklisted translator excluded, got %v", got)
	}
}

func TestPotentialTranslatorsGenderFilter(t *testing.T) {
	male := models.User{ID: uuid.New(), Gender: genderPtr(enums.GenderMale)}
	female := models.User{ID: uuid.New(), Gender: genderPtr(enums.GenderFemale)}
	unknown := models.User{ID: uuid.New()}
	repo := &stubMatchingRepo{candidates: []models.User{male, female, unknown}}
	svc, _ := NewService(repo)

	got, err := svc.PotentialTranslators(context.Background(), &models.Job{
		ID: uuid.New(), CustomerID: uuid.New(), JobType: enums.JobTypePaid,
		FromLanguageID: uuid.New(), PhoneBooking: true,
		Gender: genderPtr(enums.GenderFemale),
	})
	if err != nil {
		t.Fatalf("match failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != female.ID {
		t.Fatalf("expected only matching gender, got %v", got)
	}
}

func TestPotentialTranslatorsPhysicalTownGuard(t *testing.T) {
	local := models.User{ID: uuid.New(), Town: strPtr("Stockholm")}
	remote := models.User{ID: uuid.New(), Town: strPtr("Malmö")}
	nowhere := models.User{ID: uuid.New()}
	repo := &stubMatchingRepo{candidates: []models.User{local, remote, nowhere}}
	svc, _ := NewService(repo)

	job := &models.Job{
		ID: uuid.New(), CustomerID: uuid.New(), JobType: enums.JobTypePaid,
		FromLanguageID:  uuid.New(),
		PhysicalBooking: true,
		Town:            strPtr("stockholm"),
	}
	got, err := svc.PotentialTranslators(context.Background(), job)
	if err != nil {
		t.Fatalf("match failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != local.ID {
		t.Fatalf("expected only local translator, got %v", got)
	}

	// A booking that also works by phone drops the location constraint.
	job.PhoneBooking = true
	got, err = svc.PotentialTranslators(context.Background(), job)
	if err != nil {
		t.Fatalf("match failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected all translators for phone-capable booking, got %d", len(got))
	}
}

func TestPotentialTranslatorsEarmarkGuard(t *testing.T) {
	reserved := models.User{ID: uuid.New()}
	other := models.User{ID: uuid.New()}
	repo := &stubMatchingRepo{candidates: []models.User{reserved, other}}
	svc, _ := NewService(repo)

	job := &models.Job{
		ID: uuid.New(), CustomerID: uuid.New(), JobType: enums.JobTypePaid,
		FromLanguageID:        uuid.New(),
		PhoneBooking:          true,
		EarmarkedTranslatorID: &reserved.ID,
	}
	got, err := svc.PotentialTranslators(context.Background(), job)
	if err != nil {
		t.Fatalf("match failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != reserved.ID {
		t.Fatalf("expected only the earmarked translator, got %v", got)
	}

	job.EarmarkedTranslatorID = nil
	got, err = svc.PotentialTranslators(context.Background(), job)
	if err != nil {
		t.Fatalf("match failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected all translators without an earmark, got %d", len(got))
	}
}

func TestPotentialJobsFiltersByLevelAndBlacklist(t *testing.T) {
	languageID := uuid.New()
	blockedCustomer := uuid.New()
	certified := enums.CertifiedYes
	translatorType := enums.TranslatorTypeProfessional
	level := enums.LevelLayman

	repo := &stubMatchingRepo{
		openJobs: []models.Job{
			{ID: uuid.New(), CustomerID: uuid.New(), JobType: enums.JobTypePaid, FromLanguageID: languageID, PhoneBooking: true},
			{ID: uuid.New(), CustomerID: blockedCustomer, JobType: enums.JobTypePaid, FromLanguageID: languageID, PhoneBooking: true},
			{ID: uuid.New(), CustomerID: uuid.New(), JobType: enums.JobTypePaid, FromLanguageID: languageID, PhoneBooking: true, Certified: &certified},
		},
		blacklisting: []uuid.UUID{blockedCustomer},
	}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("constructor failed: %v", err)
	}

	translator := &models.User{
		ID:              uuid.New(),
		Type:            enums.UserTypeTranslator,
		TranslatorType:  &translatorType,
		TranslatorLevel: &level,
		LanguageIDs:     []uuid.UUID{languageID},
	}

	jobs, err := svc.PotentialJobs(context.Background(), translator)
	if err != nil {
		t.Fatalf("match failed: %v", err)
	}
	if repo.lastJobQuery.JobType != enums.JobTypePaid {
		t.Fatalf("expected paid job pool, got %s", repo.lastJobQuery.JobType)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job after blacklist and level filters, got %d", len(jobs))
	}
	if jobs[0].ID != repo.openJobs[0].ID {
		t.Fatal("expected the unconstrained booking to survive")
	}
}

func TestPotentialJobsPhysicalTownConstraint(t *testing.T) {
	languageID := uuid.New()
	translatorType := enums.TranslatorTypeVolunteer
	level := enums.LevelLayman

	repo := &stubMatchingRepo{
		openJobs: []models.Job{
			{ID: uuid.New(), CustomerID: uuid.New(), JobType: enums.JobTypeUnpaid, FromLanguageID: languageID, PhysicalBooking: true, Town: strPtr("Uppsala")},
			{ID: uuid.New(), CustomerID: uuid.New(), JobType: enums.JobTypeUnpaid, FromLanguageID: languageID, PhysicalBooking: true, Town: strPtr("Lund")},
		},
	}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("constructor failed: %v", err)
	}

	translator := &models.User{
		ID:              uuid.New(),
		Type:            enums.UserTypeTranslator,
		TranslatorType:  &translatorType,
		TranslatorLevel: &level,
		LanguageIDs:     []uuid.UUID{languageID},
		Town:            strPtr("uppsala"),
	}

	jobs, err := svc.PotentialJobs(context.Background(), translator)
	if err != nil {
		t.Fatalf("match failed: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected town-matched booking only, got %d", len(jobs))
	}
	if jobs[0].Town == nil || *jobs[0].Town != "Uppsala" {
		t.Fatal("expected the Uppsala booking")
	}
}

func TestPotentialJobsSkipsOtherTranslatorsEarmarks(t *testing.T) {
	languageID := uuid.New()
	translatorType := enums.TranslatorTypeProfessional
	level := enums.LevelLayman
	translatorID := uuid.New()
	someoneElse := uuid.New()

	repo := &stubMatchingRepo{
		openJobs: []models.Job{
			{ID: uuid.New(), CustomerID: uuid.New(), JobType: enums.JobTypePaid, FromLanguageID: languageID, PhoneBooking: true, EarmarkedTranslatorID: &someoneElse},
			{ID: uuid.New(), CustomerID: uuid.New(), JobType: enums.JobTypePaid, FromLanguageID: languageID, PhoneBooking: true, EarmarkedTranslatorID: &translatorID},
			{ID: uuid.New(), CustomerID: uuid.New(), JobType: enums.JobTypePaid, FromLanguageID: languageID, PhoneBooking: true},
		},
	}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("constructor failed: %v", err)
	}

	translator := &models.User{
		ID:              translatorID,
		Type:            enums.UserTypeTranslator,
		TranslatorType:  &translatorType,
		TranslatorLevel: &level,
		LanguageIDs:     []uuid.UUID{languageID},
	}

	jobs, err := svc.PotentialJobs(context.Background(), translator)
	if err != nil {
		t.Fatalf("match failed: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected own earmark and open booking only, got %d", len(jobs))
	}
	for _, job := range jobs {
		if job.EarmarkedTranslatorID != nil && *job.EarmarkedTranslatorID != translatorID {
			t.Fatal("booking reserved for another translator leaked through")
		}
	}
}

func TestPotentialJobsRequiresTranslator(t *testing.T) {
	svc, err := NewService(&stubMatchingRepo{})
	if err != nil {
		t.Fatalf("constructor failed: %v", err)
	}
	customer := &models.User{ID: uuid.New(), Type: enums.UserTypeCustomer}
	if _, err := svc.PotentialJobs(context.Background(), customer); err == nil {
		t.Fatal("expected forbidden error for non-translator")
	}
}
