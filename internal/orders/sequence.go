package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// maxDailySequence is the largest sequence the four-digit suffix can carry.
// Overflow is reported, never wrapped.
const maxDailySequence = 9999

var ErrSequenceExhausted = errors.New("daily order sequence exhausted")

// Querier is the slice of pgx needed to claim a sequence number. Both
// *pgxpool.Pool and pgx.Tx satisfy it; the order store claims on the same
// transaction that inserts the order, so a failed create never burns a
// number.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Allocator produces order numbers of the form ORD-YYYYMMDD-NNNN, unique
// across the store, with NNNN restarting at 0001 each calendar day in the
// service's time zone.
type Allocator struct {
	clock Clock
}

func NewAllocator(clock Clock) *Allocator {
	return &Allocator{clock: clock}
}

// Next claims the next number for today. The claim is a single conditional
// write on the per-day counter row, so concurrent callers each get a
// distinct, contiguous value. The day is read from the clock here, not
// cached, so a retry after midnight claims against the new day.
func (a *Allocator) Next(ctx context.Context, q Querier) (string, error) {
	day := a.clock.Now().Format("20060102")

	var seq int
	err := q.QueryRow(ctx, `
		INSERT INTO order_sequences (day, seq) VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET seq = order_sequences.seq + 1
		RETURNING seq`, day).Scan(&seq)
	if err != nil {
		return "", &AllocationError{Day: day, Err: err}
	}
	if seq > maxDailySequence {
		return "", &AllocationError{Day: day, Err: ErrSequenceExhausted}
	}
	return FormatOrderNumber(day, seq), nil
}

func FormatOrderNumber(day string, seq int) string {
	return fmt.Sprintf("ORD-%s-%04d", day, seq)
}
