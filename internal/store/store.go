// Package store provides storage backends for DealerPipe.
//
// It persists the car inventory, test-drive bookings, valuation requests,
// conversation sessions, delivery receipts and inbound dedup records. SQLite,
// PostgreSQL and in-memory backends share the same interfaces.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/BTreeMap/DealerPipe/internal/models"
)

// ErrUnsupportedColumn is returned when DistinctValues is asked for a column
// outside the allow-list.
var ErrUnsupportedColumn = errors.New("unsupported inventory column")

// Opts holds configuration options for SQL stores.
type Opts struct {
	DSN string
}

// Option defines a configuration option for SQL stores.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// Inventory is the read side of the car inventory.
type Inventory interface {
	// DistinctValues lists the distinct values of one column among cars
	// matching q, sorted ascending.
	DistinctValues(ctx context.Context, column models.CarColumn, q models.CarQuery) ([]string, error)
	// SearchCars returns cars matching q ordered by price ascending.
	SearchCars(ctx context.Context, q models.CarQuery) ([]models.Car, error)
	// FindCarsByName matches term case-insensitively against the model, the
	// brand, or "brand model".
	FindCarsByName(ctx context.Context, term string) ([]models.Car, error)
	// FindCarsByBrand returns up to limit cars of a brand, ignoring case,
	// cheapest first.
	FindCarsByBrand(ctx context.Context, brand string, limit int) ([]models.Car, error)
}

// InventoryWriter loads cars into the inventory.
type InventoryWriter interface {
	UpsertCars(ctx context.Context, cars []models.Car) error
}

// BookingRepo persists test-drive bookings.
type BookingRepo interface {
	SaveTestDrive(ctx context.Context, b models.TestDriveBooking) error
}

// ValuationRepo persists valuation requests.
type ValuationRepo interface {
	CreateValuation(ctx context.Context, v models.ValuationRequest) (int64, error)
	UpdateValuationStatus(ctx context.Context, id int64, status string) error
}

// SessionRepo persists conversation sessions. LoadSession returns (nil, nil)
// when no session exists.
type SessionRepo interface {
	LoadSession(ctx context.Context, conversationID string) (*models.Session, error)
	SaveSession(ctx context.Context, s *models.Session) error
	DeleteSession(ctx context.Context, conversationID string) error
}

// ReceiptRepo records message delivery receipts.
type ReceiptRepo interface {
	AddReceipt(r models.Receipt) error
	GetReceipts() ([]models.Receipt, error)
}

// Store is implemented by every backend.
type Store interface {
	Inventory
	InventoryWriter
	BookingRepo
	ValuationRepo
	SessionRepo
	ReceiptRepo
	DedupRepo
	Close() error
}

// DetectDSNType returns "postgres" for PostgreSQL connection strings and
// "sqlite3" for everything else.
func DetectDSNType(dsn string) string {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return "postgres"
	case strings.Contains(lower, "host=") && (strings.Contains(lower, "dbname=") || strings.Contains(lower, "user=")):
		return "postgres"
	default:
		return "sqlite3"
	}
}

func validColumn(c models.CarColumn) bool {
	switch c {
	case models.ColumnType, models.ColumnBrand, models.ColumnModel:
		return true
	}
	return false
}
