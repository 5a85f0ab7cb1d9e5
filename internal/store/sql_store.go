package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BTreeMap/DealerPipe/internal/models"
)

// sqlStore implements the store interfaces on database/sql. SQLiteStore and
// PostgresStore embed it and differ only in driver, placeholders and setup.
type sqlStore struct {
	db   *sql.DB
	ph   placeholder
	name string
}

func (s *sqlStore) DistinctValues(ctx context.Context, column models.CarColumn, q models.CarQuery) ([]string, error) {
	query, args, err := distinctValuesSQL(column, q, s.ph)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Error(s.name+".DistinctValues: query failed", "error", err, "column", column)
		return nil, fmt.Errorf("distinct %s failed: %w", column, err)
	}
	values, err := scanStrings(rows)
	if err != nil {
		return nil, err
	}
	slog.Debug(s.name+".DistinctValues: succeeded", "column", column, "count", len(values))
	return values, nil
}

func (s *sqlStore) SearchCars(ctx context.Context, q models.CarQuery) ([]models.Car, error) {
	query, args := searchCarsSQL(q, s.ph)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Error(s.name+".SearchCars: query failed", "error", err)
		return nil, fmt.Errorf("search cars failed: %w", err)
	}
	cars, err := scanCars(rows)
	if err != nil {
		return nil, err
	}
	slog.Debug(s.name+".SearchCars: succeeded", "count", len(cars))
	return cars, nil
}

func (s *sqlStore) FindCarsByName(ctx context.Context, term string) ([]models.Car, error) {
	query, args := findCarsByNameSQL(term, s.ph)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Error(s.name+".FindCarsByName: query failed", "error", err, "term", term)
		return nil, fmt.Errorf("find cars by name %q failed: %w", term, err)
	}
	return scanCars(rows)
}

func (s *sqlStore) FindCarsByBrand(ctx context.Context, brand string, limit int) ([]models.Car, error) {
	query, args := findCarsByBrandSQL(brand, limit, s.ph)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Error(s.name+".FindCarsByBrand: query failed", "error", err, "brand", brand)
		return nil, fmt.Errorf("find cars by brand %q failed: %w", brand, err)
	}
	return scanCars(rows)
}

// UpsertCars inserts cars, replacing rows whose id already exists. Cars
// without an id are always inserted.
func (s *sqlStore) UpsertCars(ctx context.Context, cars []models.Car) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert cars: %w", err)
	}
	defer tx.Rollback()

	p := s.ph
	withID := fmt.Sprintf(`INSERT INTO cars (id, brand, model, variant, year, fuel_type, price, registration_number, type, transmission, image_url)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)
		ON CONFLICT (id) DO UPDATE SET brand = excluded.brand, model = excluded.model, variant = excluded.variant,
			year = excluded.year, fuel_type = excluded.fuel_type, price = excluded.price,
			registration_number = excluded.registration_number, type = excluded.type,
			transmission = excluded.transmission, image_url = excluded.image_url`,
		p(1), p(2), p(3), p(4), p(5), p(6), p(7), p(8), p(9), p(10), p(11))
	withoutID := fmt.Sprintf(`INSERT INTO cars (brand, model, variant, year, fuel_type, price, registration_number, type, transmission, image_url)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		p(1), p(2), p(3), p(4), p(5), p(6), p(7), p(8), p(9), p(10))

	for _, c := range cars {
		fields := []interface{}{c.Brand, c.Model, c.Variant, c.Year, c.FuelType, c.Price,
			nilIfEmpty(c.RegistrationNumber), c.Type, nilIfEmpty(c.Transmission), nilIfEmpty(c.ImageURL)}
		if c.ID != 0 {
			_, err = tx.ExecContext(ctx, withID, append([]interface{}{c.ID}, fields...)...)
		} else {
			_, err = tx.ExecContext(ctx, withoutID, fields...)
		}
		if err != nil {
			slog.Error(s.name+".UpsertCars: insert failed", "error", err, "car", c.DisplayName())
			return fmt.Errorf("upsert car %s: %w", c.DisplayName(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert cars: %w", err)
	}
	slog.Info(s.name+".UpsertCars: inventory loaded", "count", len(cars))
	return nil
}

func (s *sqlStore) SaveTestDrive(ctx context.Context, b models.TestDriveBooking) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	p := s.ph
	query := fmt.Sprintf(`INSERT INTO test_drives (reference, conversation_id, car, datetime, name, phone, has_license, pickup_option, address, created_at)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		p(1), p(2), p(3), p(4), p(5), p(6), p(7), p(8), p(9), p(10))
	_, err := s.db.ExecContext(ctx, query, b.Reference, b.ConversationID, b.Car, b.Datetime, b.Name, b.Phone,
		b.HasLicense, nilIfEmpty(b.PickupOption), nilIfEmpty(b.Address), b.CreatedAt)
	if err != nil {
		slog.Error(s.name+".SaveTestDrive: insert failed", "error", err, "reference", b.Reference)
		return fmt.Errorf("save test drive %s: %w", b.Reference, err)
	}
	slog.Debug(s.name+".SaveTestDrive: succeeded", "reference", b.Reference, "car", b.Car)
	return nil
}

func (s *sqlStore) CreateValuation(ctx context.Context, v models.ValuationRequest) (int64, error) {
	if v.Status == "" {
		v.Status = models.ValuationPending
	}
	now := time.Now()
	p := s.ph
	query := fmt.Sprintf(`INSERT INTO car_valuations (conversation_id, name, phone, location, brand, model, year, fuel, kms, owner, car_condition, status, created_at, updated_at)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s) RETURNING id`,
		p(1), p(2), p(3), p(4), p(5), p(6), p(7), p(8), p(9), p(10), p(11), p(12), p(13), p(14))
	var id int64
	err := s.db.QueryRowContext(ctx, query, v.ConversationID, v.Name, v.Phone, nilIfEmpty(v.Location), v.Brand, v.Model,
		nilIfEmpty(v.Year), nilIfEmpty(v.Fuel), nilIfEmpty(v.Kms), nilIfEmpty(v.Owner), nilIfEmpty(v.Condition),
		v.Status, now, now).Scan(&id)
	if err != nil {
		slog.Error(s.name+".CreateValuation: insert failed", "error", err)
		return 0, fmt.Errorf("create valuation: %w", err)
	}
	slog.Debug(s.name+".CreateValuation: succeeded", "id", id)
	return id, nil
}

func (s *sqlStore) UpdateValuationStatus(ctx context.Context, id int64, status string) error {
	query := fmt.Sprintf(`UPDATE car_valuations SET status = %s, updated_at = %s WHERE id = %s`, s.ph(1), s.ph(2), s.ph(3))
	if _, err := s.db.ExecContext(ctx, query, status, time.Now(), id); err != nil {
		slog.Error(s.name+".UpdateValuationStatus: update failed", "error", err, "id", id)
		return fmt.Errorf("update valuation %d: %w", id, err)
	}
	return nil
}

func (s *sqlStore) LoadSession(ctx context.Context, conversationID string) (*models.Session, error) {
	query := fmt.Sprintf(`SELECT data FROM sessions WHERE conversation_id = %s`, s.ph(1))
	var data []byte
	err := s.db.QueryRowContext(ctx, query, conversationID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		slog.Error(s.name+".LoadSession: query failed", "error", err, "conversationID", conversationID)
		return nil, fmt.Errorf("load session %s: %w", conversationID, err)
	}
	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", conversationID, err)
	}
	return &sess, nil
}

func (s *sqlStore) SaveSession(ctx context.Context, sess *models.Session) error {
	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = time.Now()
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.ConversationID, err)
	}
	query := fmt.Sprintf(`INSERT INTO sessions (conversation_id, data, updated_at) VALUES (%s, %s, %s)
		ON CONFLICT (conversation_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		s.ph(1), s.ph(2), s.ph(3))
	if _, err := s.db.ExecContext(ctx, query, sess.ConversationID, string(data), sess.UpdatedAt); err != nil {
		slog.Error(s.name+".SaveSession: upsert failed", "error", err, "conversationID", sess.ConversationID)
		return fmt.Errorf("save session %s: %w", sess.ConversationID, err)
	}
	return nil
}

func (s *sqlStore) DeleteSession(ctx context.Context, conversationID string) error {
	query := fmt.Sprintf(`DELETE FROM sessions WHERE conversation_id = %s`, s.ph(1))
	if _, err := s.db.ExecContext(ctx, query, conversationID); err != nil {
		return fmt.Errorf("delete session %s: %w", conversationID, err)
	}
	return nil
}

func (s *sqlStore) AddReceipt(r models.Receipt) error {
	query := fmt.Sprintf(`INSERT INTO receipts (recipient, status, time) VALUES (%s, %s, %s)`, s.ph(1), s.ph(2), s.ph(3))
	if _, err := s.db.Exec(query, r.To, r.Status, r.Time); err != nil {
		slog.Error(s.name+".AddReceipt: insert failed", "error", err, "to", r.To)
		return fmt.Errorf("failed to insert receipt for %s: %w", r.To, err)
	}
	return nil
}

func (s *sqlStore) GetReceipts() ([]models.Receipt, error) {
	rows, err := s.db.Query(`SELECT recipient, status, time FROM receipts ORDER BY id`)
	if err != nil {
		slog.Error(s.name+".GetReceipts: query failed", "error", err)
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer rows.Close()

	var receipts []models.Receipt
	for rows.Next() {
		var r models.Receipt
		if err := rows.Scan(&r.To, &r.Status, &r.Time); err != nil {
			return nil, fmt.Errorf("failed to scan receipt row: %w", err)
		}
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate receipt rows: %w", err)
	}
	return receipts, nil
}

func (s *sqlStore) IsDuplicate(messageID string) (bool, error) {
	query := fmt.Sprintf(`SELECT 1 FROM inbound_dedup WHERE message_id = %s`, s.ph(1))
	var one int
	err := s.db.QueryRow(query, messageID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("dedup check failed: %w", err)
	}
	return true, nil
}

func (s *sqlStore) RecordInbound(messageID, conversationID string) (bool, error) {
	query := fmt.Sprintf(`INSERT INTO inbound_dedup (message_id, conversation_id, received_at) VALUES (%s, %s, %s)
		ON CONFLICT (message_id) DO NOTHING`, s.ph(1), s.ph(2), s.ph(3))
	result, err := s.db.Exec(query, messageID, conversationID, time.Now())
	if err != nil {
		return false, fmt.Errorf("record inbound failed: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("dedup rows affected check failed: %w", err)
	}
	return n > 0, nil
}

func (s *sqlStore) MarkProcessed(messageID string) error {
	query := fmt.Sprintf(`UPDATE inbound_dedup SET processed_at = %s WHERE message_id = %s`, s.ph(1), s.ph(2))
	if _, err := s.db.Exec(query, time.Now(), messageID); err != nil {
		return fmt.Errorf("mark processed failed: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *sqlStore) Close() error {
	slog.Debug(s.name + ".Close: closing database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error(s.name+".Close: failed to close database", "error", err)
	}
	return err
}
