package chunk

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/vvka-141/tripload/pkg/tripload"
)

// nullTokens are the source values read as NULL, whatever the column type.
var nullTokens = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "n/a": {}, "NULL": {}, "null": {},
	"NaN": {}, "nan": {}, "-NaN": {}, "-nan": {}, "#N/A": {}, "#NA": {},
	"<NA>": {}, "None": {}, "1.#IND": {}, "1.#QNAN": {}, "-1.#IND": {},
	"-1.#QNAN": {}, "#N/A N/A": {},
}

// IsNull reports whether raw is one of the NULL tokens.
func IsNull(raw string) bool {
	_, ok := nullTokens[raw]
	return ok
}

// timestampLayouts are tried in order. Fractional seconds are accepted by
// time.Parse for the layouts without them.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 03:04:05 PM",
	"01/02/2006 15:04",
	"01/02/2006",
}

var (
	errNotInteger  = errors.New("not an integer")
	errNotNumber   = errors.New("not a number")
	errNotBoolean  = errors.New("not a boolean")
	errNotDateTime = errors.New("unrecognized date/time format")
)

// converter turns a non-null source value into a typed value.
type converter func(raw string) (any, error)

func converterFor(t tripload.ColumnType) (converter, error) {
	switch t {
	case tripload.ColumnInt64:
		return parseInt64, nil
	case tripload.ColumnFloat64:
		return parseFloat64, nil
	case tripload.ColumnString:
		return func(raw string) (any, error) { return raw, nil }, nil
	case tripload.ColumnTimestamp:
		return parseTimestamp, nil
	case tripload.ColumnBool:
		return parseBool, nil
	default:
		return nil, fmt.Errorf("no converter for column type %s: %w", t, tripload.ErrInvalidConfig)
	}
}

// parseInt64 accepts integer literals and integral decimals such as "1.0".
func parseInt64(raw string) (any, error) {
	s := strings.TrimSpace(raw)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, errNotInteger
	}
	if math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return nil, errNotInteger
	}
	return int64(f), nil
}

func parseFloat64(raw string) (any, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil, errNotNumber
	}
	return f, nil
}

func parseBool(raw string) (any, error) {
	switch strings.TrimSpace(raw) {
	case "True", "TRUE", "true":
		return true, nil
	case "False", "FALSE", "false":
		return false, nil
	}
	return nil, errNotBoolean
}

func parseTimestamp(raw string) (any, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return nil, errNotDateTime
}

// inferType picks a type for an undeclared column from its first-batch values.
// Integers containing nulls widen to float64; a column of nulls is float64.
func inferType(values []string) tripload.ColumnType {
	var nulls, ints, floats, bools, total int
	for _, v := range values {
		total++
		if IsNull(v) {
			nulls++
			continue
		}
		s := strings.TrimSpace(v)
		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			ints++
			continue
		}
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			floats++
			continue
		}
		if _, err := parseBool(s); err == nil {
			bools++
			continue
		}
		return tripload.ColumnString
	}

	nonNull := total - nulls
	switch {
	case nonNull == 0:
		return tripload.ColumnFloat64
	case ints == nonNull && nulls == 0:
		return tripload.ColumnInt64
	case ints+floats == nonNull:
		return tripload.ColumnFloat64
	case bools == nonNull:
		return tripload.ColumnBool
	default:
		return tripload.ColumnString
	}
}
