package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"graph2sql/internal/logging"
)

// DefaultMaxRows caps the rows written per table when the caller passes zero.
const DefaultMaxRows = 100

// maxKeptErrors bounds LoadStats.Errors.
const maxKeptErrors = 10

// InsertFn writes a single row. It matches Session.Insert with the table
// location already bound.
type InsertFn func(ctx context.Context, values []string) error

// LoadStats summarizes one LoadRows call.
type LoadStats struct {
	Inserted int      `json:"inserted"`
	Skipped  int      `json:"skipped"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// LoadRows inserts at most maxRows of rows, one statement per row. Rows past
// the cap are counted as skipped and never written. A failed row is logged
// and counted; loading continues with the next row. Cancellation stops the
// loop and the remaining rows are counted as failed.
func LoadRows(ctx context.Context, table string, rows [][]string, maxRows int, insert InsertFn, logger *log.Logger) (LoadStats, error) {
	if insert == nil {
		return LoadStats{}, fmt.Errorf("insert must not be nil")
	}
	logger = logging.Or(logger)
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	var st LoadStats
	n := len(rows)
	if n > maxRows {
		st.Skipped = n - maxRows
		n = maxRows
	}

	start := time.Now()
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			st.Failed += n - i
			return st, err
		}
		if err := insert(ctx, rows[i]); err != nil {
			st.Failed++
			if len(st.Errors) < maxKeptErrors {
				st.Errors = append(st.Errors, fmt.Sprintf("row %d: %v", i, err))
			}
			logger.Warn("row insert failed", "table", table, "row", i, "err", err)
			continue
		}
		st.Inserted++
	}

	logger.Info("rows loaded",
		"table", table,
		"inserted", st.Inserted,
		"skipped", st.Skipped,
		"failed", st.Failed,
		"elapsed", time.Since(start).Truncate(time.Millisecond),
	)
	return st, nil
}
