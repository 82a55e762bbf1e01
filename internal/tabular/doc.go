// Package tabular implements the sample table backing a project. The table
// holds one row per input unit (sample, library, run) and arbitrary metadata
// columns. Grouping resolution needs group-by and count-distinct sweeps over
// this data, so the rows are kept in an in-memory SQLite database and
// queried through database/sql.
package tabular
