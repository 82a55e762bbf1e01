package tabular

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Table is an immutable tabular dataset loaded into an in-memory SQLite
// database. All cells are stored as text.
type Table struct {
	db      *sql.DB
	name    string
	columns []string
}

// New creates a table with the given name, columns and rows.
func New(name string, columns []string, rows [][]string) (*Table, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %q: no columns", name)
	}
	for _, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf(
				"table %q: row has %d cells, expected %d", name, len(row), len(columns))
		}
	}

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("table %q: open database: %w", name, err)
	}
	// A second pooled connection would see a fresh, empty :memory: database.
	db.SetMaxOpenConns(1)

	cols := make([]string, len(columns))
	for i, col := range columns {
		cols[i] = quoteIdent(col) + " TEXT"
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(name), strings.Join(cols, ", "))
	if _, err := db.Exec(create); err != nil {
		db.Close()
		return nil, fmt.Errorf("table %q: create: %w", name, err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(columns)), ",")
	insert := fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(name), placeholders)
	for _, row := range rows {
		args := make([]any, len(row))
		for i, cell := range row {
			args[i] = cell
		}
		if _, err := db.Exec(insert, args...); err != nil {
			db.Close()
			return nil, fmt.Errorf("table %q: insert: %w", name, err)
		}
	}

	return &Table{
		db:      db,
		name:    name,
		columns: append([]string(nil), columns...),
	}, nil
}

// Close releases the underlying database.
func (t *Table) Close() error {
	return t.db.Close()
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// Columns returns the column names in declaration order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// HasColumn reports whether the table has a column of the given name.
func (t *Table) HasColumn(name string) bool {
	for _, col := range t.columns {
		if col == name {
			return true
		}
	}
	return false
}

// NRows returns the number of rows.
func (t *Table) NRows() (int, error) {
	var n int
	err := t.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdent(t.name))).Scan(&n)
	return n, err
}

// IdentifyingColumns returns the columns whose values are unique per row.
func (t *Table) IdentifyingColumns() ([]string, error) {
	nrows, err := t.NRows()
	if err != nil {
		return nil, err
	}
	var unique []string
	for _, col := range t.columns {
		var n int
		q := fmt.Sprintf("SELECT COUNT(DISTINCT %s) FROM %s", quoteIdent(col), quoteIdent(t.name))
		if err := t.db.QueryRow(q).Scan(&n); err != nil {
			return nil, err
		}
		if n == nrows {
			unique = append(unique, col)
		}
	}
	return unique, nil
}

// DuplicateRows returns the values occurring more than once in the given column.
func (t *Table) DuplicateRows(column string) ([]string, error) {
	q := fmt.Sprintf(
		"SELECT %[1]s FROM %[2]s WHERE %[1]s IN"+
			" (SELECT %[1]s FROM %[2]s GROUP BY %[1]s HAVING COUNT(%[1]s) > 1)",
		quoteIdent(column), quoteIdent(t.name))
	rows, err := t.db.Query(q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// Distinct returns the distinct value tuples of cols, optionally constrained
// to rows where each matchCols column equals the corresponding matchValues
// entry. matchCols and matchValues must have equal length.
func (t *Table) Distinct(cols []string, matchCols []string, matchValues []string) ([][]string, error) {
	if len(matchCols) != len(matchValues) {
		return nil, fmt.Errorf(
			"table %q: %d filter columns but %d values", t.name, len(matchCols), len(matchValues))
	}

	quoted := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = quoteIdent(col)
	}
	q := fmt.Sprintf("SELECT DISTINCT %s FROM %s", strings.Join(quoted, ", "), quoteIdent(t.name))

	var args []any
	if len(matchCols) > 0 {
		conds := make([]string, len(matchCols))
		for i, col := range matchCols {
			conds[i] = quoteIdent(col) + " = ?"
			args = append(args, matchValues[i])
		}
		q += " WHERE " + strings.Join(conds, " AND ")
	}

	rows, err := t.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result [][]string
	for rows.Next() {
		tuple := make([]string, len(cols))
		dest := make([]any, len(cols))
		for i := range tuple {
			dest[i] = &tuple[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		result = append(result, tuple)
	}
	return result, rows.Err()
}

// GroupByDedup drops columns that are functionally redundant given the
// columns kept before them. A column is redundant if grouping by the kept
// columns leaves only one distinct value of it per group.
func (t *Table) GroupByDedup(cols []string) ([]string, error) {
	skip := make(map[string]bool)
	var result []string
	for _, group := range cols {
		if skip[group] {
			continue
		}
		result = append(result, group)

		counts := make([]string, len(cols))
		for i, col := range cols {
			counts[i] = fmt.Sprintf("COUNT(DISTINCT %s)", quoteIdent(col))
		}
		groups := make([]string, len(result))
		for i, col := range result {
			groups[i] = quoteIdent(col)
		}
		q := fmt.Sprintf("SELECT %s FROM %s GROUP BY %s",
			strings.Join(counts, ", "), quoteIdent(t.name), strings.Join(groups, ", "))

		rows, err := t.db.Query(q)
		if err != nil {
			return nil, err
		}
		redundant := make([]bool, len(cols))
		for i := range redundant {
			redundant[i] = true
		}
		for rows.Next() {
			dest := make([]any, len(cols))
			tuple := make([]int, len(cols))
			for i := range tuple {
				dest[i] = &tuple[i]
			}
			if err := rows.Scan(dest...); err != nil {
				rows.Close()
				return nil, err
			}
			for i, n := range tuple {
				if n != 1 {
					redundant[i] = false
				}
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()

		for i, col := range cols {
			if redundant[i] {
				skip[col] = true
			}
		}
	}
	return result, nil
}

// quoteIdent quotes an SQL identifier, doubling embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
