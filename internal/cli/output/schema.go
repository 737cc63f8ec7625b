package output

// Typed JSON documents emitted by CLI commands in JSON mode. Field names
// are stable: scripts and agents parse them.

// RunEvent is a single JSON line of run progress. The run command emits a
// run_start event, one query_start and query_complete pair per query, and
// a final run_complete event.
type RunEvent struct {
	Event        string   `json:"event"`
	Timestamp    string   `json:"timestamp,omitempty"`
	RunID        string   `json:"run_id,omitempty"`
	Queries      []string `json:"queries,omitempty"`
	Query        string   `json:"query,omitempty"`
	Status       string   `json:"status,omitempty"`
	Rows         int64    `json:"rows,omitempty"`
	ElapsedMS    int64    `json:"elapsed_ms,omitempty"`
	Error        string   `json:"error,omitempty"`
	TotalQueries int      `json:"total_queries,omitempty"`
	Successful   int      `json:"successful,omitempty"`
	Failed       int      `json:"failed,omitempty"`
	TotalMS      int64    `json:"total_ms,omitempty"`
}

// CompileOutput is the compile command's JSON document.
type CompileOutput struct {
	File    string          `json:"file"`
	Dialect string          `json:"dialect"`
	Queries []CompiledQuery `json:"queries"`
}

// CompiledQuery is one compiled query within a CompileOutput.
type CompiledQuery struct {
	Name    string   `json:"name"`
	SQL     string   `json:"sql"`
	Columns []string `json:"columns,omitempty"`
}

// DescribeOutput is the describe command's JSON document.
type DescribeOutput struct {
	Table   string       `json:"table"`
	Columns []ColumnInfo `json:"columns"`
}

// ColumnInfo describes one column of a table. Type is the engine's native
// type name; Mapped is the relational type queries are checked with.
type ColumnInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Mapped   string `json:"mapped,omitempty"`
	Nullable bool   `json:"nullable"`
}

// HistoryOutput is the history command's JSON document.
type HistoryOutput struct {
	Runs  []HistoryEntry `json:"runs"`
	Count int            `json:"count"`
}

// HistoryEntry is one recorded query run.
type HistoryEntry struct {
	ID        string `json:"id"`
	Query     string `json:"query"`
	Target    string `json:"target"`
	Dialect   string `json:"dialect"`
	SQL       string `json:"sql"`
	Status    string `json:"status"`
	Rows      int64  `json:"rows"`
	ElapsedMS int64  `json:"elapsed_ms"`
	StartedAt string `json:"started_at"`
	Error     string `json:"error,omitempty"`
}

// DoctorOutput is the doctor command's JSON document.
type DoctorOutput struct {
	Checks  []DoctorCheck `json:"checks"`
	Healthy bool          `json:"healthy"`
}

// DoctorCheck is one environment check result.
type DoctorCheck struct {
	Group  string `json:"group"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}
