package templates

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoSaveUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}

	mock.ExpectExec("INSERT INTO resume_templates").
		WithArgs("user-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Save(context.Background(), Template{UserID: "user-1", Resume: baseResume()}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoGetDecodesResume(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	payload := `{"name":"Jane Candidate","contact":"jane@example.com","summary":"Backend engineer.","technical_skills":{"Languages":["Go"]},"experience":[{"company":"Initech","title":"Engineer","dates":"2020 - Present","bullets":["Built services."]}],"education":null}`

	mock.ExpectQuery("SELECT resume, updated_at FROM resume_templates").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"resume", "updated_at"}).
			AddRow([]byte(payload), time.Now()))

	got, err := repo.Get(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Resume.Name != "Jane Candidate" {
		t.Fatalf("name = %q", got.Resume.Name)
	}
	if len(got.Resume.Skills["Languages"]) != 1 {
		t.Fatalf("skills = %+v", got.Resume.Skills)
	}
}

func TestPGRepoDeleteMissingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}

	mock.ExpectExec("DELETE FROM resume_templates").
		WithArgs("nobody").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
