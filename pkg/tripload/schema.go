package tripload

import (
	"fmt"
	"strings"
)

// ColumnType is the semantic type of a destination column.
type ColumnType int

const (
	ColumnUnknown   ColumnType = iota
	ColumnInt64                // nullable 64-bit integer
	ColumnFloat64              // 64-bit float
	ColumnString               // UTF-8 text
	ColumnTimestamp            // timestamp without time zone
	ColumnBool                 // only produced by inference
)

// String returns the configuration name of the type.
func (t ColumnType) String() string {
	switch t {
	case ColumnInt64:
		return "int64"
	case ColumnFloat64:
		return "float64"
	case ColumnString:
		return "string"
	case ColumnTimestamp:
		return "timestamp"
	case ColumnBool:
		return "bool"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// IsValid returns true for every defined type except ColumnUnknown.
func (t ColumnType) IsValid() bool {
	return t >= ColumnInt64 && t <= ColumnBool
}

// ParseColumnType accepts the configuration names used in tripload.yaml.
// The pandas spellings (Int64, float64, string, datetime64) are accepted as aliases.
func ParseColumnType(s string) (ColumnType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "int64", "int", "integer", "bigint":
		return ColumnInt64, nil
	case "float64", "float", "double":
		return ColumnFloat64, nil
	case "string", "str", "text":
		return ColumnString, nil
	case "timestamp", "datetime", "datetime64":
		return ColumnTimestamp, nil
	case "bool", "boolean":
		return ColumnBool, nil
	default:
		return ColumnUnknown, fmt.Errorf("unknown column type %q: %w", s, ErrInvalidConfig)
	}
}

// TypeMap maps column names to declared types.
type TypeMap map[string]ColumnType

// Column is one destination column.
type Column struct {
	Name     string
	Type     ColumnType
	Declared bool // false when the type was inferred from the first batch
}

// Schema is the ordered column set of the destination table.
type Schema struct {
	Columns []Column
}

// Names returns the column names in order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Batch is a bounded group of typed rows in source order.
// Row values are int64, float64, string, bool, time.Time or nil.
type Batch struct {
	Schema   *Schema
	Rows     [][]any
	Index    int   // 1-based batch number
	FirstRow int64 // 1-based source data row of Rows[0]
}

// Len returns the number of rows in the batch.
func (b *Batch) Len() int { return len(b.Rows) }

// YellowTaxiTypes returns the declared column types of the yellow taxi trip files.
func YellowTaxiTypes() TypeMap {
	return TypeMap{
		"VendorID":              ColumnInt64,
		"passenger_count":       ColumnInt64,
		"trip_distance":         ColumnFloat64,
		"RatecodeID":            ColumnInt64,
		"store_and_fwd_flag":    ColumnString,
		"PULocationID":          ColumnInt64,
		"DOLocationID":          ColumnInt64,
		"payment_type":          ColumnInt64,
		"fare_amount":           ColumnFloat64,
		"extra":                 ColumnFloat64,
		"mta_tax":               ColumnFloat64,
		"tip_amount":            ColumnFloat64,
		"tolls_amount":          ColumnFloat64,
		"improvement_surcharge": ColumnFloat64,
		"total_amount":          ColumnFloat64,
		"congestion_surcharge":  ColumnFloat64,
	}
}

// YellowTaxiDateColumns returns the columns parsed as timestamps.
func YellowTaxiDateColumns() []string {
	return []string{"tpep_pickup_datetime", "tpep_dropoff_datetime"}
}
