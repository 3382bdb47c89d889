/**
 * @description
 * PostgreSQL implementation of the `Repository` interface: NUBAN pool
 * management, pending payment records and the student/rep directory.
 * Settlement and reclaim transactions live in postgres_settlement.go; dues
 * and lists in postgres_dues.go. See schema.sql for the table layout.
 *
 * All multi-row invariants are enforced with pgx transactions and explicit
 * row locks. The allocation path uses FOR UPDATE SKIP LOCKED so concurrent
 * allocations against the pool serialize without lock waits.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: The PostgreSQL driver.
 * - internal/domain: Domain models.
 */

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Ibuchukwu/bine-web/internal/domain"
)

// PostgresRepository is the concrete Repository backed by a pgx pool.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// CreatePaymentIntent pulls one available NUBAN and binds the pending
// payment to it in a single transaction.
func (r *PostgresRepository) CreatePaymentIntent(ctx context.Context, pending *domain.PendingPayment) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var nuban domain.NUBAN
	query := `
		SELECT account_number, account_name, bank_name
		FROM nubans
		WHERE available = TRUE
		ORDER BY created_at
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`
	err = tx.QueryRow(ctx, query).Scan(&nuban.AccountNumber, &nuban.AccountName, &nuban.BankName)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrPoolExhausted
		}
		return fmt.Errorf("failed to select available nuban: %w", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE nubans SET available = FALSE WHERE account_number = $1`, nuban.AccountNumber); err != nil {
		return fmt.Errorf("failed to mark nuban allocated: %w", err)
	}

	pending.AccountNumber = nuban.AccountNumber
	pending.AccountDetails = nuban
	pending.Status = domain.PaymentStatusPending

	cart, err := json.Marshal(pending.Cart)
	if err != nil {
		return fmt.Errorf("failed to marshal cart: %w", err)
	}

	insert := `
		INSERT INTO pending_payments (
			account_number, tx_id, amount, cart, account_name, bank_name,
			regno, student_name, university_id, status, created_at, expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = tx.Exec(ctx, insert,
		pending.AccountNumber, pending.TxID, pending.Amount, cart,
		nuban.AccountName, nuban.BankName,
		pending.Regno, pending.StudentName, pending.UniversityID,
		pending.Status, pending.CreatedAt, pending.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert pending payment: %w", err)
	}

	return tx.Commit(ctx)
}

// ReleaseNUBAN returns a NUBAN to the available set. Union semantics: a
// NUBAN that is already available stays available.
func (r *PostgresRepository) ReleaseNUBAN(ctx context.Context, accountNumber string) error {
	_, err := r.db.Exec(ctx, `UPDATE nubans SET available = TRUE WHERE account_number = $1`, accountNumber)
	return err
}

// AppendNUBANs adds minted NUBANs to the pool. The batch only seeds the
// available set when it was empty, so replenishment does not silently add
// capacity while allocations are still being served.
func (r *PostgresRepository) AppendNUBANs(ctx context.Context, nubans []domain.NUBAN) (bool, error) {
	if len(nubans) == 0 {
		return false, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var hasAvailable bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM nubans WHERE available = TRUE)`).Scan(&hasAvailable); err != nil {
		return false, fmt.Errorf("failed to check available set: %w", err)
	}
	seed := !hasAvailable

	for _, n := range nubans {
		_, err := tx.Exec(ctx, `
			INSERT INTO nubans (account_number, account_name, bank_name, available, created_at)
			VALUES ($1, $2, $3, $4, NOW())
			ON CONFLICT (account_number) DO NOTHING
		`, n.AccountNumber, n.AccountName, n.BankName, seed)
		if err != nil {
			return false, fmt.Errorf("failed to insert nuban %s: %w", n.AccountNumber, err)
		}
	}

	if seed {
		// The pool was drained: every parked NUBAN with no pending binding is
		// fair game again alongside the new batch.
		_, err = tx.Exec(ctx, `
			UPDATE nubans SET available = TRUE
			WHERE available = FALSE
			  AND NOT EXISTS (SELECT 1 FROM pending_payments p WHERE p.account_number = nubans.account_number)
		`)
		if err != nil {
			return false, fmt.Errorf("failed to reseed available set: %w", err)
		}
	}

	return seed, tx.Commit(ctx)
}

// AddNUBAN registers a single NUBAN supplied by an operator.
func (r *PostgresRepository) AddNUBAN(ctx context.Context, nuban domain.NUBAN) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO nubans (account_number, account_name, bank_name, available, created_at)
		VALUES ($1, $2, $3, TRUE, NOW())
	`, nuban.AccountNumber, nuban.AccountName, nuban.BankName)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrNUBANExists
		}
		return err
	}
	return nil
}

// CountNUBANs reports the size of the pool and of its available subset.
func (r *PostgresRepository) CountNUBANs(ctx context.Context) (int, int, error) {
	var all, available int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE available = TRUE) FROM nubans
	`).Scan(&all, &available)
	if err != nil {
		return 0, 0, err
	}
	return all, available, nil
}

const pendingPaymentColumns = `
	account_number, tx_id, amount, cart, account_name, bank_name,
	regno, student_name, university_id, status, created_at, expires_at
`

func scanPendingPayment(row pgx.Row) (*domain.PendingPayment, error) {
	var p domain.PendingPayment
	var cart []byte
	err := row.Scan(
		&p.AccountNumber, &p.TxID, &p.Amount, &cart,
		&p.AccountDetails.AccountName, &p.AccountDetails.BankName,
		&p.Regno, &p.StudentName, &p.UniversityID,
		&p.Status, &p.CreatedAt, &p.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	p.AccountDetails.AccountNumber = p.AccountNumber
	if err := json.Unmarshal(cart, &p.Cart); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	return &p, nil
}

// GetPendingPayment looks up a pending payment by its NUBAN.
func (r *PostgresRepository) GetPendingPayment(ctx context.Context, accountNumber string) (*domain.PendingPayment, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+pendingPaymentColumns+` FROM pending_payments WHERE account_number = $1`,
		accountNumber)
	p, err := scanPendingPayment(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPendingPaymentNotFound
		}
		return nil, err
	}
	return p, nil
}

// FindPendingPaymentByRegno returns the payer's oldest stale pending payment,
// used by the portal to resume an abandoned checkout.
func (r *PostgresRepository) FindPendingPaymentByRegno(ctx context.Context, regno string, createdBefore time.Time) (*domain.PendingPayment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+pendingPaymentColumns+`
		FROM pending_payments
		WHERE regno = $1 AND status = 'pending' AND created_at < $2
		ORDER BY created_at
		LIMIT 1
	`, regno, createdBefore)
	p, err := scanPendingPayment(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPendingPaymentNotFound
		}
		return nil, err
	}
	return p, nil
}

// ListExpiredPendingPayments returns every pending payment older than the
// cutoff, for the sweeper.
func (r *PostgresRepository) ListExpiredPendingPayments(ctx context.Context, createdBefore time.Time) ([]domain.PendingPayment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+pendingPaymentColumns+`
		FROM pending_payments
		WHERE status = 'pending' AND created_at < $1
	`, createdBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expired []domain.PendingPayment
	for rows.Next() {
		p, err := scanPendingPayment(rows)
		if err != nil {
			return nil, err
		}
		expired = append(expired, *p)
	}
	return expired, rows.Err()
}

// GetArchivedPayment looks a payment up in the failed/timeout archive.
func (r *PostgresRepository) GetArchivedPayment(ctx context.Context, accountNumber string) (*domain.PendingPayment, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+pendingPaymentColumns+` FROM failed_payments WHERE account_number = $1`,
		accountNumber)
	p, err := scanPendingPayment(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPendingPaymentNotFound
		}
		return nil, err
	}
	return p, nil
}

// RecordSweepRun bumps the sweep counters after a timeout pass.
func (r *PostgresRepository) RecordSweepRun(ctx context.Context, timedOut int, at time.Time) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO payment_metrics (id, timed_out_payments, last_timeout_run)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET
			timed_out_payments = payment_metrics.timed_out_payments + EXCLUDED.timed_out_payments,
			last_timeout_run = EXCLUDED.last_timeout_run
	`, timedOut, at)
	return err
}

// GetStudentProfile fetches a student's directory entry.
func (r *PostgresRepository) GetStudentProfile(ctx context.Context, universityID, regno string) (*domain.StudentProfile, error) {
	var p domain.StudentProfile
	p.Class.UniversityID = universityID
	err := r.db.QueryRow(ctx, `
		SELECT regno, name, email, phone, faculty_id, department_id, class_id,
		       department_name, profile_verified, created_at
		FROM student_profiles
		WHERE university_id = $1 AND regno = $2
	`, universityID, regno).Scan(
		&p.Regno, &p.Name, &p.Email, &p.Phone,
		&p.Class.FacultyID, &p.Class.DepartmentID, &p.Class.ClassID,
		&p.DepartmentName, &p.ProfileVerified, &p.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

// CreateStudentProfile inserts a new student directory entry.
func (r *PostgresRepository) CreateStudentProfile(ctx context.Context, profile *domain.StudentProfile, createdBy string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO student_profiles (
			university_id, regno, name, email, phone,
			faculty_id, department_id, class_id, department_name,
			profile_verified, created_by, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
	`,
		profile.Class.UniversityID, profile.Regno, profile.Name, profile.Email, profile.Phone,
		profile.Class.FacultyID, profile.Class.DepartmentID, profile.Class.ClassID,
		profile.DepartmentName, profile.ProfileVerified, createdBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrProfileExists
		}
		return err
	}
	return nil
}

// GetClassDetailsByRegno resolves the class a student belongs to.
func (r *PostgresRepository) GetClassDetailsByRegno(ctx context.Context, regno, universityID string) (*domain.ClassDetails, error) {
	profile, err := r.GetStudentProfile(ctx, universityID, regno)
	if err != nil {
		return nil, err
	}
	return &domain.ClassDetails{
		ClassScope:     profile.Class,
		DepartmentName: profile.DepartmentName,
	}, nil
}

// GetRepProfile resolves a class rep's directory entry by auth uid.
func (r *PostgresRepository) GetRepProfile(ctx context.Context, uid string) (*domain.RepProfile, error) {
	var p domain.RepProfile
	p.UID = uid
	err := r.db.QueryRow(ctx, `
		SELECT regno, university_id, faculty_id, department_id, class_id,
		       class_name, department_name, faculty_name, university_name, profile_verified
		FROM course_reps
		WHERE uid = $1
	`, uid).Scan(
		&p.Regno,
		&p.Class.UniversityID, &p.Class.FacultyID, &p.Class.DepartmentID, &p.Class.ClassID,
		&p.Class.ClassName, &p.Class.DepartmentName, &p.Class.FacultyName, &p.Class.UniversityName,
		&p.ProfileVerified,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrRepNotFound
		}
		return nil, err
	}
	return &p, nil
}
