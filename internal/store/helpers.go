package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/BTreeMap/DealerPipe/internal/models"
)

// carColumns is the column list every car query selects, in scanCar order.
const carColumns = "id, brand, model, variant, year, fuel_type, price, registration_number, type, transmission, image_url"

// placeholder renders the n-th (1-based) bind parameter for a SQL dialect.
type placeholder func(n int) string

func sqlitePlaceholder(int) string { return "?" }

func postgresPlaceholder(n int) string { return "$" + strconv.Itoa(n) }

// queryBuilder accumulates WHERE clauses and their arguments.
type queryBuilder struct {
	ph    placeholder
	where []string
	args  []interface{}
}

func (b *queryBuilder) bind(v interface{}) string {
	b.args = append(b.args, v)
	return b.ph(len(b.args))
}

func (b *queryBuilder) bindList(values []string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = b.bind(v)
	}
	return strings.Join(parts, ", ")
}

func (b *queryBuilder) add(clause string) {
	b.where = append(b.where, clause)
}

func (b *queryBuilder) whereSQL() string {
	if len(b.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.where, " AND ")
}

// applyCarQuery translates q into WHERE clauses.
func (b *queryBuilder) applyCarQuery(q models.CarQuery) {
	if q.Price != nil {
		b.add(fmt.Sprintf("price >= %s AND price <= %s", b.bind(q.Price.Min), b.bind(q.Price.Max)))
	}
	if q.Type != "" {
		b.add("type = " + b.bind(q.Type))
	}
	switch len(q.Brands) {
	case 0:
	case 1:
		b.add("brand = " + b.bind(q.Brands[0]))
	default:
		b.add("brand IN (" + b.bindList(q.Brands) + ")")
	}
	if q.MinYear != 0 {
		b.add("year >= " + b.bind(q.MinYear))
	}
	if q.MaxYear != 0 {
		b.add("year <= " + b.bind(q.MaxYear))
	}
	if len(q.FuelTypes) > 0 {
		b.add("fuel_type IN (" + b.bindList(q.FuelTypes) + ")")
	}
}

func searchCarsSQL(q models.CarQuery, ph placeholder) (string, []interface{}) {
	b := &queryBuilder{ph: ph}
	b.applyCarQuery(q)
	query := "SELECT " + carColumns + " FROM cars" + b.whereSQL() + " ORDER BY price ASC, id ASC"
	if q.Limit > 0 {
		query += " LIMIT " + b.bind(q.Limit)
	}
	return query, b.args
}

func distinctValuesSQL(column models.CarColumn, q models.CarQuery, ph placeholder) (string, []interface{}, error) {
	if !validColumn(column) {
		return "", nil, fmt.Errorf("%w: %q", ErrUnsupportedColumn, column)
	}
	b := &queryBuilder{ph: ph}
	b.applyCarQuery(q)
	b.add(fmt.Sprintf("%s IS NOT NULL AND %s <> ''", column, column))
	return fmt.Sprintf("SELECT DISTINCT %s FROM cars%s ORDER BY %s", column, b.whereSQL(), column), b.args, nil
}

func findCarsByNameSQL(term string, ph placeholder) (string, []interface{}) {
	b := &queryBuilder{ph: ph}
	like := "%" + strings.ToLower(strings.TrimSpace(term)) + "%"
	b.add(fmt.Sprintf("(LOWER(brand || ' ' || model) LIKE %s OR LOWER(model) LIKE %s OR LOWER(brand) LIKE %s)",
		b.bind(like), b.bind(like), b.bind(like)))
	return "SELECT " + carColumns + " FROM cars" + b.whereSQL() + " ORDER BY price ASC, id ASC", b.args
}

func findCarsByBrandSQL(brand string, limit int, ph placeholder) (string, []interface{}) {
	b := &queryBuilder{ph: ph}
	b.add("LOWER(brand) = " + b.bind(strings.ToLower(strings.TrimSpace(brand))))
	query := "SELECT " + carColumns + " FROM cars" + b.whereSQL() + " ORDER BY price ASC, id ASC"
	if limit > 0 {
		query += " LIMIT " + b.bind(limit)
	}
	return query, b.args
}

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// scanCars reads every row of a car query.
func scanCars(rows *sql.Rows) ([]models.Car, error) {
	defer rows.Close()
	var cars []models.Car
	for rows.Next() {
		var c models.Car
		var reg, transmission, image sql.NullString
		if err := rows.Scan(&c.ID, &c.Brand, &c.Model, &c.Variant, &c.Year, &c.FuelType, &c.Price,
			&reg, &c.Type, &transmission, &image); err != nil {
			return nil, fmt.Errorf("scan car failed: %w", err)
		}
		c.RegistrationNumber = reg.String
		c.Transmission = transmission.String
		c.ImageURL = image.String
		cars = append(cars, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cars failed: %w", err)
	}
	return cars, nil
}

// scanStrings reads a single string column from every row.
func scanStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan value failed: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate values failed: %w", err)
	}
	return out, nil
}
