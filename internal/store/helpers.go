package store

import (
	"database/sql"

	"github.com/KisanLab/MandiSaathi/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanPriceRecord scans a PriceRecord from a price-cache row.
func scanPriceRecord(row rowScanner) (*models.PriceRecord, error) {
	var rec models.PriceRecord
	var variety, grade, marketDate sql.NullString
	err := row.Scan(
		&rec.State, &rec.District, &rec.Commodity,
		&rec.ModalPrice, &rec.MinPrice, &rec.MaxPrice,
		&variety, &grade, &marketDate, &rec.RetrievedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Variety = variety.String
	rec.Grade = grade.String
	rec.MarketDate = marketDate.String
	return &rec, nil
}
