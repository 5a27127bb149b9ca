package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/johnharveymath/oxcovid19db/internal/gid"
	"github.com/johnharveymath/oxcovid19db/internal/table"
)

// cell converts one scanned driver value. dbType is the column's database
// type name as reported by lib/pq (e.g. "NUMERIC", "_TEXT"). gid arrays
// become composite identifiers.
func cell(col, dbType string, v any) (table.Value, error) {
	if v == nil {
		return table.Null(), nil
	}
	dbType = strings.ToUpper(dbType)
	isArray := strings.HasPrefix(dbType, "_")
	switch x := v.(type) {
	case time.Time:
		return table.Date(x), nil
	case int64:
		return table.Number(float64(x)), nil
	case float64:
		return table.Number(x), nil
	case float32:
		return table.Number(float64(x)), nil
	case bool:
		if x {
			return table.Number(1), nil
		}
		return table.Number(0), nil
	case []byte:
		return textCell(col, dbType, isArray, x)
	case string:
		return textCell(col, dbType, isArray, []byte(x))
	}
	return table.String(fmt.Sprint(v)), nil
}

func textCell(col, dbType string, isArray bool, b []byte) (table.Value, error) {
	if isArray {
		var arr pq.StringArray
		if err := arr.Scan(b); err != nil {
			return table.Null(), fmt.Errorf("%w: column %s: %v", errDecode, col, err)
		}
		if col == table.ColGID {
			if len(arr) == 0 {
				return table.Null(), nil
			}
			return table.String(gid.Compose(arr...).String()), nil
		}
		return table.String(strings.Join(arr, gid.Sep)), nil
	}
	s := string(b)
	switch dbType {
	case "NUMERIC", "DECIMAL", "MONEY":
		f, err := strconv.ParseFloat(strings.TrimPrefix(strings.ReplaceAll(s, ",", ""), "$"), 64)
		if err != nil {
			return table.Null(), fmt.Errorf("%w: column %s: %v", errDecode, col, err)
		}
		return table.Number(f), nil
	case "DATE", "TIMESTAMP", "TIMESTAMPTZ":
		if t, ok := table.ParseTime(s); ok {
			return table.Date(t), nil
		}
	}
	return table.String(s), nil
}
