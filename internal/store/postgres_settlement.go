/**
 * @description
 * The ledger-mutating transactions: settlement, timeout reclaim, synchronous
 * cancellation and the lazy cleanup after a confirmed success. Each runs as
 * one pgx transaction that re-reads the pending payment under FOR UPDATE, so
 * a settlement racing a sweep or cancel is decided by whoever commits first
 * and the loser degrades to ErrAlreadyProcessed.
 *
 * Per-due serial numbers are read under FOR UPDATE inside the settlement
 * transaction, which keeps them gapless and duplicate-free under concurrent
 * payments against the same due.
 */

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Ibuchukwu/bine-web/internal/domain"
)

// SettlePayment commits the full settlement of a pending payment.
func (r *PostgresRepository) SettlePayment(ctx context.Context, accountNumber string, reportedAmount float64, class domain.ClassDetails, gateway domain.GatewayMeta, now time.Time) (*SettlementResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		`SELECT `+pendingPaymentColumns+` FROM pending_payments WHERE account_number = $1 FOR UPDATE`,
		accountNumber)
	pending, err := scanPendingPayment(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPendingPaymentNotFound
		}
		return nil, fmt.Errorf("failed to lock pending payment: %w", err)
	}
	if pending.Status != domain.PaymentStatusPending {
		return nil, ErrAlreadyProcessed
	}

	charge := domain.GetUnCharge(reportedAmount)
	settled := domain.Round2(reportedAmount - charge)

	_, err = tx.Exec(ctx, `
		UPDATE pending_payments
		SET status = $2, verified_at = $3, gateway_payload = $4
		WHERE account_number = $1
	`, accountNumber, domain.PaymentStatusSuccess, now, []byte(gateway))
	if err != nil {
		return nil, fmt.Errorf("failed to mark payment successful: %w", err)
	}

	// Credit the class balance; create the class row on first payment.
	_, err = tx.Exec(ctx, `
		INSERT INTO classes (
			university_id, faculty_id, department_id, class_id,
			main_balance, last_tx_amount, last_tx_type, last_tx_id, last_tx_at
		)
		VALUES ($1, $2, $3, $4, $5, $5, 'credit', $6, $7)
		ON CONFLICT (university_id, faculty_id, department_id, class_id) DO UPDATE SET
			main_balance = classes.main_balance + EXCLUDED.main_balance,
			last_tx_amount = EXCLUDED.last_tx_amount,
			last_tx_type = EXCLUDED.last_tx_type,
			last_tx_id = EXCLUDED.last_tx_id,
			last_tx_at = EXCLUDED.last_tx_at
	`, class.UniversityID, class.FacultyID, class.DepartmentID, class.ClassID,
		settled, pending.TxID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to credit class balance: %w", err)
	}

	serials := make(map[string]int64, len(pending.Cart))
	for _, item := range pending.Cart {
		serial, err := r.recordDuePayment(ctx, tx, class.ClassScope, item, pending, now)
		if err != nil {
			return nil, err
		}
		serials[item.DueID] = serial
	}

	prePayment, err := json.Marshal(pending)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pre-payment snapshot: %w", err)
	}

	txInsert := func(table string) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO `+table+` (
				tx_id, university_id, faculty_id, department_id, class_id,
				amount, settled_amount, charge, regno, subject_name,
				type, status, pre_payment, created_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'due_payment', 'completed', $11, $12)
		`, pending.TxID, class.UniversityID, class.FacultyID, class.DepartmentID, class.ClassID,
			reportedAmount, settled, charge, pending.Regno, pending.StudentName,
			prePayment, now)
		return err
	}
	if err := txInsert("class_transactions"); err != nil {
		return nil, fmt.Errorf("failed to record class transaction: %w", err)
	}
	if err := txInsert("transactions"); err != nil {
		return nil, fmt.Errorf("failed to record global transaction: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO company_metrics (id, total, volume, collective_charge, gateway_remit, revenue, last_updated)
		VALUES (1, 1, $1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			total = company_metrics.total + 1,
			volume = company_metrics.volume + EXCLUDED.volume,
			collective_charge = company_metrics.collective_charge + EXCLUDED.collective_charge,
			gateway_remit = company_metrics.gateway_remit + EXCLUDED.gateway_remit,
			revenue = company_metrics.revenue + EXCLUDED.revenue,
			last_updated = EXCLUDED.last_updated
	`, reportedAmount, charge, charge*domain.GatewayPercentage, charge*domain.RevenuePercentage, now)
	if err != nil {
		return nil, fmt.Errorf("failed to update company metrics: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO company_metrics_university (university_id, total, volume)
		VALUES ($1, 1, $2)
		ON CONFLICT (university_id) DO UPDATE SET
			total = company_metrics_university.total + 1,
			volume = company_metrics_university.volume + EXCLUDED.volume
	`, pending.UniversityID, reportedAmount)
	if err != nil {
		return nil, fmt.Errorf("failed to update university metrics: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &SettlementResult{
		TxID:          pending.TxID,
		Amount:        reportedAmount,
		Charge:        charge,
		SettledAmount: settled,
		Serials:       serials,
	}, nil
}

// recordDuePayment writes one payment record and updates the due aggregates
// for a single cart line, inside the caller's transaction.
func (r *PostgresRepository) recordDuePayment(ctx context.Context, tx pgx.Tx, scope domain.ClassScope, item domain.CartItem, pending *domain.PendingPayment, now time.Time) (int64, error) {
	var lastSerial int64
	err := tx.QueryRow(ctx, `
		SELECT last_serial_number FROM dues
		WHERE university_id = $1 AND faculty_id = $2 AND department_id = $3 AND class_id = $4 AND due_id = $5
		FOR UPDATE
	`, scope.UniversityID, scope.FacultyID, scope.DepartmentID, scope.ClassID, item.DueID).Scan(&lastSerial)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, fmt.Errorf("due %s: %w", item.DueID, ErrDueNotFound)
		}
		return 0, fmt.Errorf("failed to lock due %s: %w", item.DueID, err)
	}
	serial := lastSerial + 1

	settled := domain.Round2(item.DueAmount - domain.GetUnCharge(item.DueAmount))
	_, err = tx.Exec(ctx, `
		INSERT INTO due_records (
			university_id, faculty_id, department_id, class_id, due_id, regno,
			serial_number, paid, amount, settled_amount, due_batch,
			student_name, receipt, paid_on, tx_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8, $9, $10, $11, FALSE, $12, $13)
		ON CONFLICT (university_id, faculty_id, department_id, class_id, due_id, regno) DO UPDATE SET
			serial_number = EXCLUDED.serial_number,
			paid = EXCLUDED.paid,
			amount = EXCLUDED.amount,
			settled_amount = EXCLUDED.settled_amount,
			due_batch = EXCLUDED.due_batch,
			student_name = EXCLUDED.student_name,
			receipt = EXCLUDED.receipt,
			paid_on = EXCLUDED.paid_on,
			tx_id = EXCLUDED.tx_id
	`, scope.UniversityID, scope.FacultyID, scope.DepartmentID, scope.ClassID, item.DueID, pending.Regno,
		serial, item.DueAmount, settled, item.DueBatch,
		pending.StudentName, now, pending.TxID)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert payment record for due %s: %w", item.DueID, err)
	}

	history, err := json.Marshal(domain.HistoryEntry{
		Amount: item.DueAmount,
		Regno:  pending.Regno,
		Date:   now,
		TxID:   pending.TxID,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal history entry: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE dues SET
			total_payments = total_payments + 1,
			total_amount = total_amount + $6,
			last_payment_date = $7,
			last_serial_number = $8,
			payment_history = payment_history || $9::jsonb
		WHERE university_id = $1 AND faculty_id = $2 AND department_id = $3 AND class_id = $4 AND due_id = $5
	`, scope.UniversityID, scope.FacultyID, scope.DepartmentID, scope.ClassID, item.DueID,
		item.DueAmount, now, serial, history)
	if err != nil {
		return 0, fmt.Errorf("failed to update due aggregates for %s: %w", item.DueID, err)
	}

	return serial, nil
}

// reclaimPendingPayment locks the pending payment, verifies it is still
// pending, releases its NUBAN and deletes the row, returning the snapshot
// for archiving by the caller inside the same transaction.
func reclaimPendingPayment(ctx context.Context, tx pgx.Tx, accountNumber string) (*domain.PendingPayment, error) {
	row := tx.QueryRow(ctx,
		`SELECT `+pendingPaymentColumns+` FROM pending_payments WHERE account_number = $1 FOR UPDATE`,
		accountNumber)
	pending, err := scanPendingPayment(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPendingPaymentNotFound
		}
		return nil, fmt.Errorf("failed to lock pending payment: %w", err)
	}
	if pending.Status != domain.PaymentStatusPending {
		return nil, ErrAlreadyProcessed
	}

	if _, err := tx.Exec(ctx, `UPDATE nubans SET available = TRUE WHERE account_number = $1`, accountNumber); err != nil {
		return nil, fmt.Errorf("failed to release nuban: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM pending_payments WHERE account_number = $1`, accountNumber); err != nil {
		return nil, fmt.Errorf("failed to delete pending payment: %w", err)
	}
	return pending, nil
}

// TimeoutPendingPayment reclaims one expired pending payment and archives it
// under the failed/timeout set.
func (r *PostgresRepository) TimeoutPendingPayment(ctx context.Context, accountNumber string, now time.Time) (*domain.PendingPayment, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	pending, err := reclaimPendingPayment(ctx, tx, accountNumber)
	if err != nil {
		return nil, err
	}

	cart, err := json.Marshal(pending.Cart)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cart: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO failed_payments (
			account_number, tx_id, amount, cart, account_name, bank_name,
			regno, student_name, university_id, status, created_at, expires_at, resolved_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (account_number) DO UPDATE SET
			tx_id = EXCLUDED.tx_id,
			amount = EXCLUDED.amount,
			cart = EXCLUDED.cart,
			regno = EXCLUDED.regno,
			student_name = EXCLUDED.student_name,
			university_id = EXCLUDED.university_id,
			status = EXCLUDED.status,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at,
			resolved_at = EXCLUDED.resolved_at
	`, pending.AccountNumber, pending.TxID, pending.Amount, cart,
		pending.AccountDetails.AccountName, pending.AccountDetails.BankName,
		pending.Regno, pending.StudentName, pending.UniversityID,
		domain.PaymentStatusTimeout, pending.CreatedAt, pending.ExpiresAt, now)
	if err != nil {
		return nil, fmt.Errorf("failed to archive timed out payment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	pending.Status = domain.PaymentStatusTimeout
	return pending, nil
}

// CancelPendingPayment is the synchronous, user-initiated reclaim.
func (r *PostgresRepository) CancelPendingPayment(ctx context.Context, accountNumber string, now time.Time) (*domain.PendingPayment, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	pending, err := reclaimPendingPayment(ctx, tx, accountNumber)
	if err != nil {
		return nil, err
	}

	cart, err := json.Marshal(pending.Cart)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cart: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO cancelled_transactions (
			tx_id, account_number, amount, cart, account_name, bank_name,
			regno, student_name, university_id, status, created_at, expires_at, cancelled_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, pending.TxID, pending.AccountNumber, pending.Amount, cart,
		pending.AccountDetails.AccountName, pending.AccountDetails.BankName,
		pending.Regno, pending.StudentName, pending.UniversityID,
		domain.PaymentStatusCancelled, pending.CreatedAt, pending.ExpiresAt, now)
	if err != nil {
		return nil, fmt.Errorf("failed to archive cancelled payment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	pending.Status = domain.PaymentStatusCancelled
	return pending, nil
}

// FinalizeSuccessfulPayment frees the NUBAN once the payer has observed the
// success status. Settled payments keep their NUBAN parked until this lazy
// cleanup runs.
func (r *PostgresRepository) FinalizeSuccessfulPayment(ctx context.Context, accountNumber string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx,
		`SELECT status FROM pending_payments WHERE account_number = $1 FOR UPDATE`,
		accountNumber).Scan(&status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil
		}
		return fmt.Errorf("failed to lock pending payment: %w", err)
	}
	if status != domain.PaymentStatusSuccess {
		return ErrAlreadyProcessed
	}

	if _, err := tx.Exec(ctx, `UPDATE nubans SET available = TRUE WHERE account_number = $1`, accountNumber); err != nil {
		return fmt.Errorf("failed to release nuban: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM pending_payments WHERE account_number = $1`, accountNumber); err != nil {
		return fmt.Errorf("failed to delete settled payment: %w", err)
	}

	return tx.Commit(ctx)
}
