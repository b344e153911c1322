package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// timeLayout is fixed-width so that SQLite's text comparison of timestamps
// matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// dialect captures the SQL differences between the supported engines.
// Queries are written with ? placeholders and rebound per dialect.
type dialect struct {
	name string
}

func newDialect(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
		return dialect{name: driver}, nil
	}
	return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
}

// rebind rewrites ? placeholders as $1..$n for postgres.
func (d dialect) rebind(query string) string {
	if d.name != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// contains is a case-sensitive substring predicate on col. SQLite's LIKE
// ignores ASCII case, so it is not used.
func (d dialect) contains(col string) string {
	if d.name == DriverPostgres {
		return "strpos(" + col + ", ?) > 0"
	}
	return "instr(" + col + ", ?) > 0"
}

// distinctList aggregates the distinct values of col as a comma-joined string.
func (d dialect) distinctList(col string) string {
	if d.name == DriverPostgres {
		return "string_agg(DISTINCT " + col + ", ',')"
	}
	return "GROUP_CONCAT(DISTINCT " + col + ")"
}

// timeArg converts t into the column's storage representation.
func (d dialect) timeArg(t time.Time) any {
	t = t.UTC()
	if d.name == DriverPostgres {
		return t
	}
	return t.Format(timeLayout)
}

// dbTime scans timestamps stored either natively or as text.
type dbTime struct {
	Time time.Time
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v.UTC()
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	}
	return fmt.Errorf("cannot scan %T into timestamp", src)
}

func (t *dbTime) parse(s string) error {
	for _, layout := range []string{timeLayout, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("cannot parse timestamp %q", s)
}
