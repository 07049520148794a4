package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/giygas/medicament-rotations/entities"
	"github.com/giygas/medicament-rotations/interfaces"
	"github.com/giygas/medicament-rotations/storage"
	"github.com/google/uuid"
)

var _ interfaces.RecordStore = (*Store)(nil)

type Store struct {
	db    *sql.DB
	newID func() uuid.UUID
}

func New(db *sql.DB) *Store {
	return &Store{db: db, newID: uuid.New}
}

func (s *Store) LoadBatch(ctx context.Context) ([]entities.Medicine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			id, name,
			group_id, group_name, group_order, group_start_date,
			frequency, schedule_anchor,
			last_taken_at, created_at
		FROM medicines
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("load medicines: %w", err)
	}
	defer rows.Close()

	batch := make([]entities.Medicine, 0)
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, fmt.Errorf("load medicines: %w", err)
		}
		batch = append(batch, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load medicines: %w", err)
	}
	return batch, nil
}

// ApplyPatches locks every patched row, checks it still carries the expected
// fields and updates it, all in one transaction.
func (s *Store) ApplyPatches(ctx context.Context, patches []entities.Patch) error {
	if len(patches) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("apply patches: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range patches {
		var (
			current entities.Medicine
			start   sql.NullTime
		)
		row := tx.QueryRowContext(ctx, `
			SELECT group_id, group_order, group_start_date
			FROM medicines
			WHERE id = $1
			FOR UPDATE
		`, p.MedicineID)
		if err := row.Scan(&current.GroupID, &current.GroupOrder, &start); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("apply patch: %w: %s", storage.ErrNotFound, p.MedicineID)
			}
			return fmt.Errorf("apply patch to %s: %w", p.MedicineID, err)
		}
		current.GroupStartDate = fromNullDate(start)

		if err := storage.CheckPatch(current, p); err != nil {
			return fmt.Errorf("apply patch: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE medicines
			SET
				group_id = $2,
				group_order = $3,
				group_start_date = $4
			WHERE id = $1
		`,
			p.MedicineID,
			p.After.GroupID,
			p.After.GroupOrder,
			toNullDate(p.After.GroupStartDate),
		); err != nil {
			return fmt.Errorf("apply patch to %s: %w", p.MedicineID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("apply patches: %w", err)
	}
	return nil
}

// RecordIntake appends to the intake history and moves last_taken_at forward
func (s *Store) RecordIntake(ctx context.Context, medicineID string, takenAt time.Time) error {
	medicineID = strings.TrimSpace(medicineID)
	if medicineID == "" {
		return fmt.Errorf("record intake: %w", storage.ErrNotFound)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record intake: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE medicines
		SET last_taken_at = GREATEST(COALESCE(last_taken_at, $2), $2)
		WHERE id = $1
	`, medicineID, takenAt)
	if err != nil {
		return fmt.Errorf("record intake for %s: %w", medicineID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record intake for %s: %w", medicineID, err)
	}
	if n == 0 {
		return fmt.Errorf("record intake: %w: %s", storage.ErrNotFound, medicineID)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO intakes (id, medicine_id, taken_at)
		VALUES ($1, $2, $3)
	`, s.newID().String(), medicineID, takenAt); err != nil {
		return fmt.Errorf("record intake for %s: %w", medicineID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record intake: %w", err)
	}
	return nil
}

// Intakes returns the intake history recorded since the given time
func (s *Store) Intakes(ctx context.Context, since time.Time) ([]entities.IntakeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT medicine_id, taken_at
		FROM intakes
		WHERE taken_at >= $1
		ORDER BY taken_at
	`, since)
	if err != nil {
		return nil, fmt.Errorf("load intakes: %w", err)
	}
	defer rows.Close()

	records := make([]entities.IntakeRecord, 0)
	for rows.Next() {
		var r entities.IntakeRecord
		if err := rows.Scan(&r.MedicineID, &r.TakenAt); err != nil {
			return nil, fmt.Errorf("load intakes: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load intakes: %w", err)
	}
	return records, nil
}

// Upsert inserts or replaces a medicine row
func (s *Store) Upsert(ctx context.Context, m entities.Medicine) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO medicines (
			id, name,
			group_id, group_name, group_order, group_start_date,
			frequency, schedule_anchor,
			last_taken_at, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			group_id = EXCLUDED.group_id,
			group_name = EXCLUDED.group_name,
			group_order = EXCLUDED.group_order,
			group_start_date = EXCLUDED.group_start_date,
			frequency = EXCLUDED.frequency,
			schedule_anchor = EXCLUDED.schedule_anchor,
			last_taken_at = EXCLUDED.last_taken_at,
			created_at = EXCLUDED.created_at
	`,
		m.ID,
		m.Name,
		m.GroupID,
		m.GroupName,
		m.GroupOrder,
		toNullDate(m.GroupStartDate),
		string(m.Frequency),
		toNullDate(m.ScheduleAnchor),
		toNullTime(m.LastTakenAt),
		toNullTime(&m.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert medicine %s: %w", m.ID, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMedicine(row scanner) (entities.Medicine, error) {
	var (
		m         entities.Medicine
		freq      string
		start     sql.NullTime
		anchor    sql.NullTime
		lastTaken sql.NullTime
		created   sql.NullTime
	)
	if err := row.Scan(
		&m.ID,
		&m.Name,
		&m.GroupID,
		&m.GroupName,
		&m.GroupOrder,
		&start,
		&freq,
		&anchor,
		&lastTaken,
		&created,
	); err != nil {
		return entities.Medicine{}, err
	}

	f, err := entities.ParseFrequency(freq)
	if err != nil {
		return entities.Medicine{}, fmt.Errorf("medicine %s: %w", m.ID, err)
	}
	m.Frequency = f
	m.GroupStartDate = fromNullDate(start)
	m.ScheduleAnchor = fromNullDate(anchor)
	if lastTaken.Valid {
		t := lastTaken.Time
		m.LastTakenAt = &t
	}
	if created.Valid {
		m.CreatedAt = created.Time
	}
	return m, nil
}

// DATE columns come back as midnight UTC
func fromNullDate(v sql.NullTime) entities.Day {
	if !v.Valid {
		return 0
	}
	return entities.DayOf(v.Time.UTC())
}

func toNullDate(d entities.Day) sql.NullTime {
	if d == 0 {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: d.In(time.UTC), Valid: true}
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
