package history

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run         Run
		startedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&run.RunID,
		&startedRaw,
		&finishedRaw,
		&run.Counts.Accepted,
		&run.Counts.BusyExhausted,
		&run.Counts.Rejected,
		&run.Counts.Errored,
		&run.Counts.Skipped,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Started = parseTime(startedRaw)
	if finishedRaw.Valid {
		run.Finished = parseTime(finishedRaw.String)
	}
	return run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}
