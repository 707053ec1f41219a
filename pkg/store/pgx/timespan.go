package pgx

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/OFFIS-RIT/chronograph/pkg/identifier"
)

type tstzrange = pgtype.Range[pgtype.Timestamptz]

// timespanFromRange converts a half-open tstzrange. Unbounded ends become
// zero timestamps.
func timespanFromRange(r tstzrange) (identifier.Timespan, error) {
	if !r.Valid {
		return identifier.Timespan{}, fmt.Errorf("timespan is null")
	}
	if r.LowerType == pgtype.Empty {
		return identifier.Timespan{}, fmt.Errorf("timespan is empty")
	}

	var span identifier.Timespan
	if r.LowerType != pgtype.Unbounded {
		span.Start = identifier.NewTimestamp(r.Lower.Time)
	}
	if r.UpperType != pgtype.Unbounded {
		span.End = identifier.NewTimestamp(r.Upper.Time)
	}
	return span, nil
}

func rangeFromTimespan(s identifier.Timespan) tstzrange {
	r := tstzrange{LowerType: pgtype.Unbounded, UpperType: pgtype.Unbounded, Valid: true}
	if !s.Start.IsZero() {
		r.Lower = pgtype.Timestamptz{Time: s.Start.Time(), Valid: true}
		r.LowerType = pgtype.Inclusive
	}
	if !s.End.IsZero() {
		r.Upper = pgtype.Timestamptz{Time: s.End.Time(), Valid: true}
		r.UpperType = pgtype.Exclusive
	}
	return r
}

func versionFromRanges(decision, transaction tstzrange) (identifier.EntityVersion, error) {
	d, err := timespanFromRange(decision)
	if err != nil {
		return identifier.EntityVersion{}, fmt.Errorf("decision time: %w", err)
	}
	t, err := timespanFromRange(transaction)
	if err != nil {
		return identifier.EntityVersion{}, fmt.Errorf("transaction time: %w", err)
	}
	return identifier.NewEntityVersion(
		identifier.DecisionTimespan{Timespan: d},
		identifier.TransactionTimespan{Timespan: t},
	), nil
}

func timestamptzArg(ts *identifier.Timestamp) pgtype.Timestamptz {
	if ts == nil || ts.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: ts.Time(), Valid: true}
}
