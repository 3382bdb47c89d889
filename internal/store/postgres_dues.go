/**
 * @description
 * Postgres persistence for dues and lists: rep-side CRUD, the payment-record
 * and roster reads behind the rep dashboard, and the payer-facing portal
 * projections that join in the requesting student's own record.
 */

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Ibuchukwu/bine-web/internal/domain"
)

const dueColumns = `due_id, name, type, amount, charge, description, due_batch,
	is_compulsory, is_one_time, pass_charge, status, created_by, created_at,
	total_payments, total_amount, last_payment_date, last_serial_number, payment_history`

func scanDue(row pgx.Row, scope domain.ClassScope) (*domain.Due, error) {
	var d domain.Due
	var history []byte
	err := row.Scan(
		&d.ID, &d.Details.Name, &d.Details.Type, &d.Details.Amount, &d.Details.Charge,
		&d.Details.Description, &d.Details.DueBatch, &d.Details.IsCompulsory,
		&d.Details.IsOneTime, &d.Details.PassCharge, &d.Details.Status,
		&d.Details.CreatedBy, &d.Details.CreatedAt,
		&d.Data.TotalPayments, &d.Data.TotalAmount, &d.Data.LastPaymentDate,
		&d.Data.LastSerialNumber, &history,
	)
	if err != nil {
		return nil, err
	}
	d.Class = scope
	if len(history) > 0 {
		if err := json.Unmarshal(history, &d.Data.PaymentHistory); err != nil {
			return nil, fmt.Errorf("failed to decode payment history for due %s: %w", d.ID, err)
		}
	}
	return &d, nil
}

// CreateDue inserts a new due for a class. A due with the same name under the
// same class is rejected with ErrDueExists.
func (r *PostgresRepository) CreateDue(ctx context.Context, due *domain.Due) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO dues (
			university_id, faculty_id, department_id, class_id, due_id,
			name, type, amount, charge, description, due_batch,
			is_compulsory, is_one_time, pass_charge, status, created_by, created_at,
			total_payments, total_amount, last_serial_number, payment_history
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, 0, 0, 0, '[]'::jsonb)
	`, due.Class.UniversityID, due.Class.FacultyID, due.Class.DepartmentID, due.Class.ClassID, due.ID,
		due.Details.Name, due.Details.Type, due.Details.Amount, due.Details.Charge,
		due.Details.Description, due.Details.DueBatch, due.Details.IsCompulsory,
		due.Details.IsOneTime, due.Details.PassCharge, due.Details.Status,
		due.Details.CreatedBy, due.Details.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDueExists
		}
		return fmt.Errorf("failed to create due: %w", err)
	}
	return nil
}

// ListDues returns every due under a class, newest first.
func (r *PostgresRepository) ListDues(ctx context.Context, scope domain.ClassScope) ([]domain.Due, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+dueColumns+` FROM dues
		WHERE university_id = $1 AND faculty_id = $2 AND department_id = $3 AND class_id = $4
		ORDER BY created_at DESC
	`, scope.UniversityID, scope.FacultyID, scope.DepartmentID, scope.ClassID)
	if err != nil {
		return nil, fmt.Errorf("failed to list dues: %w", err)
	}
	defer rows.Close()

	var dues []domain.Due
	for rows.Next() {
		d, err := scanDue(rows, scope)
		if err != nil {
			return nil, fmt.Errorf("failed to scan due: %w", err)
		}
		dues = append(dues, *d)
	}
	return dues, rows.Err()
}

// UpdateDue applies the non-nil fields of update to a due.
func (r *PostgresRepository) UpdateDue(ctx context.Context, scope domain.ClassScope, dueID string, update DueUpdate) error {
	sets := []string{"updated_by = $6", "updated_at = NOW()"}
	args := []any{scope.UniversityID, scope.FacultyID, scope.DepartmentID, scope.ClassID, dueID, update.UpdatedBy}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.Name != nil {
		add("name", *update.Name)
	}
	if update.Type != nil {
		add("type", *update.Type)
	}
	if update.Amount != nil {
		add("amount", *update.Amount)
	}
	if update.Charge != nil {
		add("charge", *update.Charge)
	}
	if update.Description != nil {
		add("description", *update.Description)
	}
	if update.DueBatch != nil {
		add("due_batch", *update.DueBatch)
	}
	if update.IsCompulsory != nil {
		add("is_compulsory", *update.IsCompulsory)
	}
	if update.IsOneTime != nil {
		add("is_one_time", *update.IsOneTime)
	}
	if update.PassCharge != nil {
		add("pass_charge", *update.PassCharge)
	}
	if update.Status != nil {
		add("status", *update.Status)
	}

	query := `UPDATE dues SET ` + strings.Join(sets, ", ") + `
		WHERE university_id = $1 AND faculty_id = $2 AND department_id = $3 AND class_id = $4 AND due_id = $5`
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update due: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDueNotFound
	}
	return nil
}

// DeleteDue removes a due that has received no payments. Dues with payment
// records are kept so their serial chain and records stay auditable.
func (r *PostgresRepository) DeleteDue(ctx context.Context, scope domain.ClassScope, dueID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var totalPayments int64
	err = tx.QueryRow(ctx, `
		SELECT total_payments FROM dues
		WHERE university_id = $1 AND faculty_id = $2 AND department_id = $3 AND class_id = $4 AND due_id = $5
		FOR UPDATE
	`, scope.UniversityID, scope.FacultyID, scope.DepartmentID, scope.ClassID, dueID).Scan(&totalPayments)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrDueNotFound
		}
		return fmt.Errorf("failed to lock due: %w", err)
	}
	if totalPayments > 0 {
		return ErrDueHasPayments
	}

	_, err = tx.Exec(ctx, `
		DELETE FROM dues
		WHERE university_id = $1 AND faculty_id = $2 AND department_id = $3 AND class_id = $4 AND due_id = $5
	`, scope.UniversityID, scope.FacultyID, scope.DepartmentID, scope.ClassID, dueID)
	if err != nil {
		return fmt.Errorf("failed to delete due: %w", err)
	}
	return tx.Commit(ctx)
}

// ListDueRecords returns every payment record under a due, ordered by serial.
func (r *PostgresRepository) ListDueRecords(ctx context.Context, scope domain.ClassScope, dueID string) ([]domain.PaymentRecord, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM dues
			WHERE university_id = $1 AND faculty_id = $2 AND department_id = $3 AND class_id = $4 AND due_id = $5
		)
	`, scope.UniversityID, scope.FacultyID, scope.DepartmentID, scope.ClassID, dueID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check due: %w", err)
	}
	if !exists {
		return nil, ErrDueNotFound
	}

	rows, err := r.db.Query(ctx, `
		SELECT serial_number, paid, amount, settled_amount, due_batch, regno, student_name, receipt, paid_on, tx_id
		FROM due_records
		WHERE university_id = $1 AND faculty_id = $2 AND department_id = $3 AND class_id = $4 AND due_id = $5
		ORDER BY serial_number ASC
	`, scope.UniversityID, scope.FacultyID, scope.DepartmentID, scope.ClassID, dueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list due records: %w", err)
	}
	defer rows.Close()

	var records []domain.PaymentRecord
	for rows.Next() {
		var rec domain.PaymentRecord
		err := rows.Scan(&rec.SerialNumber, &rec.Paid, &rec.Amount, &rec.SettledAmount,
			&rec.DueBatch, &rec.Regno, &rec.StudentName, &rec.Receipt, &rec.PaidOn, &rec.TxID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan due record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ConfirmDueReceipt marks a payer's record as having collected their physical
// receipt.
func (r *PostgresRepository) ConfirmDueReceipt(ctx context.Context, scope domain.ClassScope, dueID, regno string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE due_records SET receipt = TRUE
		WHERE university_id = $1 AND faculty_id = $2 AND department_id = $3 AND class_id = $4 AND due_id = $5 AND regno = $6
	`, scope.UniversityID, scope.FacultyID, scope.DepartmentID, scope.ClassID, dueID, regno)
	if err != nil {
		return fmt.Errorf("failed to confirm receipt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// ListPortalDues returns the payer-facing view of a class's active dues,
// joined with the requesting student's own payment records.
func (r *PostgresRepository) ListPortalDues(ctx context.Context, scope domain.ClassScope, regno string) ([]domain.PortalDue, error) {
	rows, err := r.db.Query(ctx, `
		SELECT d.due_id, d.name, d.type, d.amount, d.charge, d.description, d.due_batch,
			d.is_compulsory, d.is_one_time, d.pass_charge, d.status, d.created_at,
			r.serial_number, r.paid, r.amount, r.settled_amount, r.due_batch,
			r.student_name, r.receipt, r.paid_on, r.tx_id
		FROM dues d
		LEFT JOIN due_records r ON r.university_id = d.university_id
			AND r.faculty_id = d.faculty_id
			AND r.department_id = d.department_id
			AND r.class_id = d.class_id
			AND r.due_id = d.due_id
			AND r.regno = $5
		WHERE d.university_id = $1 AND d.faculty_id = $2 AND d.department_id = $3 AND d.class_id = $4
			AND d.status = 'active'
		ORDER BY d.created_at DESC
	`, scope.UniversityID, scope.FacultyID, scope.DepartmentID, scope.ClassID, regno)
	if err != nil {
		return nil, fmt.Errorf("failed to list portal dues: %w", err)
	}
	defer rows.Close()

	var dues []domain.PortalDue
	for rows.Next() {
		var (
			pd         domain.PortalDue
			passCharge bool

			serial        *int64
			paid          *bool
			amount        *float64
			settledAmount *float64
			dueBatch      *string
			studentName   *string
			receipt       *bool
			paidOn        *time.Time
			txID          *string
		)
		err := rows.Scan(&pd.ID, &pd.Name, &pd.Type, &pd.Amount, &pd.Charge, &pd.Description,
			&pd.DueBatch, &pd.IsCompulsory, &pd.IsOneTime, &passCharge, &pd.Status, &pd.CreatedAt,
			&serial, &paid, &amount, &settledAmount, &dueBatch,
			&studentName, &receipt, &paidOn, &txID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan portal due: %w", err)
		}
		pd.Total = pd.Amount
		if passCharge {
			pd.Total = domain.Round2(pd.Amount + pd.Charge)
		}
		if serial != nil {
			pd.Paid = *paid
			pd.PaymentDetails = &domain.PaymentRecord{
				SerialNumber:  *serial,
				Paid:          *paid,
				Amount:        *amount,
				SettledAmount: *settledAmount,
				DueBatch:      *dueBatch,
				Regno:         regno,
				StudentName:   *studentName,
				Receipt:       *receipt,
				PaidOn:        *paidOn,
				TxID:          *txID,
			}
		}
		dues = append(dues, pd)
	}
	return dues, rows.Err()
}

// CreateList inserts a new list for a class.
func (r *PostgresRepository) CreateList(ctx context.Context, list *domain.List) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO lists (
			university_id, faculty_id, department_id, class_id, list_id,
			name, description, list_batch, is_compulsory, status, created_by, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, list.Class.UniversityID, list.Class.FacultyID, list.Class.DepartmentID, list.Class.ClassID, list.ID,
		list.Details.Name, list.Details.Description, list.Details.ListBatch,
		list.Details.IsCompulsory, list.Details.Status, list.Details.CreatedBy, list.Details.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrListExists
		}
		return fmt.Errorf("failed to create list: %w", err)
	}
	return nil
}

// ListLists returns every list under a class, newest first.
func (r *PostgresRepository) ListLists(ctx context.Context, scope domain.ClassScope) ([]domain.List, error) {
	rows, err := r.db.Query(ctx, `
		SELECT list_id, name, description, list_batch, is_compulsory, status, created_by, created_at
		FROM lists
		WHERE university_id = $1 AND faculty_id = $2 AND department_id = $3 AND class_id = $4
		ORDER BY created_at DESC
	`, scope.UniversityID, scope.FacultyID, scope.DepartmentID, scope.ClassID)
	if err != nil {
		return nil, fmt.Errorf("failed to list lists: %w", err)
	}
	defer rows.Close()

	var lists []domain.List
	for rows.Next() {
		var l domain.List
		err := rows.Scan(&l.ID, &l.Details.Name, &l.Details.Description, &l.Details.ListBatch,
			&l.Details.IsCompulsory, &l.Details.Status, &l.Details.CreatedBy, &l.Details.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan list: %w", err)
		}
		l.Class = scope
		lists = append(lists, l)
	}
	return lists, rows.Err()
}

// UpdateList applies the non-nil fields of update to a list.
func (r *PostgresRepository) UpdateList(ctx context.Context, scope domain.ClassScope, listID string, update ListUpdate) error {
	sets := []string{"updated_by = $6", "updated_at = NOW()"}
	args := []any{scope.UniversityID, scope.FacultyID, scope.DepartmentID, scope.ClassID, listID, update.UpdatedBy}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.Name != nil {
		add("name", *update.Name)
	}
	if update.Description != nil {
		add("description", *update.Description)
	}
	if update.ListBatch != nil {
		add("list_batch", *update.ListBatch)
	}
	if update.IsCompulsory != nil {
		add("is_compulsory", *update.IsCompulsory)
	}
	if update.Status != nil {
		add("status", *update.Status)
	}

	query := `UPDATE lists SET ` + strings.Join(sets, ", ") + `
		WHERE university_id = $1 AND faculty_id = $2 AND department_id = $3 AND class_id = $4 AND list_id = $5`
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update list: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrListNotFound
	}
	return nil
}

// DeleteList removes a list with an empty roster. Lists someone has already
// joined are kept so the roster stays auditable.
func (r *PostgresRepository) DeleteList(ctx context.Context, scope domain.ClassScope, listID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var one int
	err = tx.QueryRow(ctx, `
		SELECT 1 FROM lists
		WHERE university_id = $1 AND faculty_id = $2 AND department_id = $3 AND class_id = $4 AND list_id = $5
		FOR UPDATE
	`, scope.UniversityID, scope.FacultyID, scope.DepartmentID, scope.ClassID, listID).Scan(&one)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrListNotFound
		}
		return fmt.Errorf("failed to lock list: %w", err)
	}

	var members int64
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM list_records
		WHERE university_id = $1 AND faculty_id = $2 AND department_id = $3 AND class_id = $4 AND list_id = $5
	`, scope.UniversityID, scope.FacultyID, scope.DepartmentID, scope.ClassID, listID).Scan(&members)
	if err != nil {
		return fmt.Errorf("failed to count list members: %w", err)
	}
	if members > 0 {
		return ErrListHasRecords
	}

	_, err = tx.Exec(ctx, `
		DELETE FROM lists
		WHERE university_id = $1 AND faculty_id = $2 AND department_id = $3 AND class_id = $4 AND list_id = $5
	`, scope.UniversityID, scope.FacultyID, scope.DepartmentID, scope.ClassID, listID)
	if err != nil {
		return fmt.Errorf("failed to delete list: %w", err)
	}
	return tx.Commit(ctx)
}

// JoinList records a student on a list. Joining again overwrites the entry.
func (r *PostgresRepository) JoinList(ctx context.Context, scope domain.ClassScope, listID string, record domain.ListRecord) error {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM lists
			WHERE university_id = $1 AND faculty_id = $2 AND department_id = $3 AND class_id = $4 AND list_id = $5
		)
	`, scope.UniversityID, scope.FacultyID, scope.DepartmentID, scope.ClassID, listID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check list: %w", err)
	}
	if !exists {
		return ErrListNotFound
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO list_records (
			university_id, faculty_id, department_id, class_id, list_id,
			regno, name, email, phone, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (university_id, faculty_id, department_id, class_id, list_id, regno) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			created_at = EXCLUDED.created_at
	`, scope.UniversityID, scope.FacultyID, scope.DepartmentID, scope.ClassID, listID,
		record.Regno, record.Name, record.Email, record.Phone, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to join list: %w", err)
	}
	return nil
}

// ListListRecords returns a list's roster in join order.
func (r *PostgresRepository) ListListRecords(ctx context.Context, scope domain.ClassScope, listID string) ([]domain.ListRecord, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM lists
			WHERE university_id = $1 AND faculty_id = $2 AND department_id = $3 AND class_id = $4 AND list_id = $5
		)
	`, scope.UniversityID, scope.FacultyID, scope.DepartmentID, scope.ClassID, listID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check list: %w", err)
	}
	if !exists {
		return nil, ErrListNotFound
	}

	rows, err := r.db.Query(ctx, `
		SELECT regno, name, email, phone, created_at FROM list_records
		WHERE university_id = $1 AND faculty_id = $2 AND department_id = $3 AND class_id = $4 AND list_id = $5
		ORDER BY created_at ASC
	`, scope.UniversityID, scope.FacultyID, scope.DepartmentID, scope.ClassID, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []domain.ListRecord
	for rows.Next() {
		var rec domain.ListRecord
		if err := rows.Scan(&rec.Regno, &rec.Name, &rec.Email, &rec.Phone, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan list record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListPortalLists returns the payer-facing view of a class's active lists,
// flagging which the requesting student has already joined.
func (r *PostgresRepository) ListPortalLists(ctx context.Context, scope domain.ClassScope, regno string) ([]domain.PortalList, error) {
	rows, err := r.db.Query(ctx, `
		SELECT l.list_id, l.name, l.description, l.list_batch, l.is_compulsory, l.status, l.created_at,
			(r.regno IS NOT NULL) AS present
		FROM lists l
		LEFT JOIN list_records r ON r.university_id = l.university_id
			AND r.faculty_id = l.faculty_id
			AND r.department_id = l.department_id
			AND r.class_id = l.class_id
			AND r.list_id = l.list_id
			AND r.regno = $5
		WHERE l.university_id = $1 AND l.faculty_id = $2 AND l.department_id = $3 AND l.class_id = $4
			AND l.status = 'active'
		ORDER BY l.created_at DESC
	`, scope.UniversityID, scope.FacultyID, scope.DepartmentID, scope.ClassID, regno)
	if err != nil {
		return nil, fmt.Errorf("failed to list portal lists: %w", err)
	}
	defer rows.Close()

	var lists []domain.PortalList
	for rows.Next() {
		var pl domain.PortalList
		err := rows.Scan(&pl.ID, &pl.Name, &pl.Description, &pl.ListBatch,
			&pl.IsCompulsory, &pl.Status, &pl.CreatedAt, &pl.Present)
		if err != nil {
			return nil, fmt.Errorf("failed to scan portal list: %w", err)
		}
		lists = append(lists, pl)
	}
	return lists, rows.Err()
}
