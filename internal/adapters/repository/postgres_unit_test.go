package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/poyrazK/licenseHub/internal/core/domain"
)

func TestPostgresRepository_Unit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %s", err)
	}
	defer db.Close()

	repo := NewPostgresRepository(db)
	ctx := context.Background()

	t.Run("CreateIfAbsent inserts new key", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id"}).AddRow(7)
		mock.ExpectQuery(`INSERT INTO registrations \(client_key\) VALUES \(\$1\)`).
			WithArgs("PC-1").
			WillReturnRows(rows)

		created, id, err := repo.CreateIfAbsent(ctx, "PC-1")
		if err != nil {
			t.Errorf("CreateIfAbsent failed: %v", err)
		}
		if !created || id != 7 {
			t.Errorf("expected created=true id=7, got created=%v id=%d", created, id)
		}
	})

	t.Run("CreateIfAbsent is a no-op for existing key", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id"})
		mock.ExpectQuery(`INSERT INTO registrations \(client_key\) VALUES \(\$1\)`).
			WithArgs("PC-1").
			WillReturnRows(rows)

		created, _, err := repo.CreateIfAbsent(ctx, "PC-1")
		if err != nil {
			t.Errorf("CreateIfAbsent failed: %v", err)
		}
		if created {
			t.Errorf("expected created=false for duplicate key")
		}
	})

	t.Run("GetByKey", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "client_key", "status", "requested_at", "decided_at", "notes"}).
			AddRow(1, "PC-1", "Pending", time.Now(), nil, nil)
		mock.ExpectQuery(`SELECT (.+) FROM registrations WHERE client_key = \$1`).
			WithArgs("PC-1").
			WillReturnRows(rows)

		reg, err := repo.GetByKey(ctx, "PC-1")
		if err != nil {
			t.Errorf("GetByKey failed: %v", err)
		}
		if reg == nil || reg.Status != domain.StatusPending || reg.DecidedAt != nil {
			t.Errorf("unexpected registration: %+v", reg)
		}
	})

	t.Run("GetByKey missing", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "client_key", "status", "requested_at", "decided_at", "notes"})
		mock.ExpectQuery(`SELECT (.+) FROM registrations WHERE client_key = \$1`).
			WithArgs("nope").
			WillReturnRows(rows)

		reg, err := repo.GetByKey(ctx, "nope")
		if err != nil {
			t.Errorf("GetByKey failed: %v", err)
		}
		if reg != nil {
			t.Errorf("expected nil for unknown key, got %+v", reg)
		}
	})

	t.Run("ListAll orders newest first", func(t *testing.T) {
		now := time.Now()
		decided := now.Add(-time.Minute)
		rows := sqlmock.NewRows([]string{"id", "client_key", "status", "requested_at", "decided_at", "notes"}).
			AddRow(2, "PC-2", "Pending", now, nil, nil).
			AddRow(1, "PC-1", "Approved", now.Add(-time.Hour), decided, nil)
		mock.ExpectQuery(`SELECT (.+) FROM registrations ORDER BY id DESC`).
			WillReturnRows(rows)

		regs, err := repo.ListAll(ctx)
		if err != nil {
			t.Errorf("ListAll failed: %v", err)
		}
		if len(regs) != 2 || regs[0].ID != 2 {
			t.Errorf("unexpected registrations: %+v", regs)
		}
		if regs[1].DecidedAt == nil {
			t.Errorf("expected decided_at on approved row")
		}
	})

	t.Run("ListPending", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "client_key", "status", "requested_at", "decided_at", "notes"}).
			AddRow(3, "PC-3", "Pending", time.Now(), nil, nil)
		mock.ExpectQuery(`SELECT (.+) FROM registrations WHERE status = 'Pending' ORDER BY requested_at DESC`).
			WillReturnRows(rows)

		regs, err := repo.ListPending(ctx)
		if err != nil {
			t.Errorf("ListPending failed: %v", err)
		}
		if len(regs) != 1 || regs[0].ClientKey != "PC-3" {
			t.Errorf("unexpected registrations: %+v", regs)
		}
	})

	t.Run("Decide affects only pending rows", func(t *testing.T) {
		mock.ExpectExec(`UPDATE registrations SET status = \$1, decided_at = \$2 WHERE id = \$3 AND status = 'Pending'`).
			WithArgs("Approved", sqlmock.AnyArg(), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		affected, err := repo.Decide(ctx, 1, domain.StatusApproved, time.Now())
		if err != nil {
			t.Errorf("Decide failed: %v", err)
		}
		if affected != 1 {
			t.Errorf("expected 1 affected row, got %d", affected)
		}
	})

	t.Run("Decide on decided row reports zero", func(t *testing.T) {
		mock.ExpectExec(`UPDATE registrations SET status = \$1, decided_at = \$2 WHERE id = \$3 AND status = 'Pending'`).
			WithArgs("Rejected", sqlmock.AnyArg(), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		affected, err := repo.Decide(ctx, 1, domain.StatusRejected, time.Now())
		if err != nil {
			t.Errorf("Decide failed: %v", err)
		}
		if affected != 0 {
			t.Errorf("expected 0 affected rows, got %d", affected)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM registrations WHERE id = \$1`).
			WithArgs(int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		affected, err := repo.Delete(ctx, 1)
		if err != nil {
			t.Errorf("Delete failed: %v", err)
		}
		if affected != 1 {
			t.Errorf("expected 1 affected row, got %d", affected)
		}
	})

	t.Run("Store error propagates", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM registrations ORDER BY id DESC`).
			WillReturnError(errors.New("connection refused"))

		if _, err := repo.ListAll(ctx); err == nil {
			t.Errorf("expected error from failing store")
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}
