package booking

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
)

// anyArgs returns n placeholder matchers; pgxmock/v3 checks argument counts
// even when the test only cares about the returned result.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func newMockRepo(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(mock.Close)
	return NewRepository(mock), mock
}

func TestFindByNativeRefNoMatch(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("FROM tracked_events").WithArgs(anyArgs(2)...).WillReturnError(pgx.ErrNoRows)

	got, err := repo.FindByNativeRef(context.Background(), uuid.New(), NativeRef{
		Platform:   PlatformCalCom,
		BookingUID: "abc123",
	})
	if err != nil {
		t.Fatalf("FindByNativeRef: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil on no match", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestFindByNativeRefUnknownPlatform(t *testing.T) {
	repo, _ := newMockRepo(t)
	if _, err := repo.FindByNativeRef(context.Background(), uuid.New(), NativeRef{Platform: "zoom"}); err == nil {
		t.Error("unknown platform should error")
	}
}

func TestSaveEnrichment(t *testing.T) {
	repo, mock := newMockRepo(t)
	orgID, eventID := uuid.New(), uuid.New()

	mock.ExpectExec("UPDATE tracked_events").
		WithArgs(eventID, orgID, "Discovery", "Dana Reyes").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.SaveEnrichment(context.Background(), orgID, eventID, "Discovery", "Dana Reyes"); err != nil {
		t.Fatalf("SaveEnrichment: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSaveEnrichmentMissingEvent(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE tracked_events").
		WithArgs(anyArgs(4)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.SaveEnrichment(context.Background(), uuid.New(), uuid.New(), "Discovery", "Dana Reyes")
	if !errors.Is(err, ErrEventNotFound) {
		t.Errorf("err = %v, want ErrEventNotFound", err)
	}
}

func TestUpdateOutcomeMissingEvent(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("UPDATE tracked_events").WithArgs(anyArgs(7)...).WillReturnError(pgx.ErrNoRows)

	_, err := repo.UpdateOutcome(context.Background(), OutcomeUpdate{
		OrganizationID: uuid.New(),
		EventID:        uuid.New(),
		CallStatus:     StatusCompleted,
		EventOutcome:   OutcomeClosed,
	})
	if !errors.Is(err, ErrEventNotFound) {
		t.Errorf("err = %v, want ErrEventNotFound", err)
	}
}

func TestApplyReconciliationUniqueViolation(t *testing.T) {
	repo, mock := newMockRepo(t)
	orgID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO leads").
		WithArgs(anyArgs(5)...).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	mock.ExpectQuery("INSERT INTO tracked_events").
		WithArgs(anyArgs(25)...).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	_, err := repo.ApplyReconciliation(context.Background(), ReconciliationPlan{
		IsNew: true,
		Event: TrackedEvent{OrganizationID: orgID},
		Lead:  LeadUpsert{Email: "pat@example.test"},
	})
	if !errors.Is(err, ErrConflictingWrite) {
		t.Errorf("err = %v, want ErrConflictingWrite", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
