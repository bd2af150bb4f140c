package executor

// Result is the generic query result returned to the caller: a row set for
// SELECT, an affected-row count for DML, an empty acknowledgment for DDL.
type Result struct {
	Columns []string
	Rows    [][]any

	// For DML:
	AffectedRows int64
}
