package checkout

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/freshkart/freshkart-backend/pkg/errors"
)

const orderNumberAttempts = 5

// generateOrderNumber produces a human-readable ORD-<year>-<6 digits> number,
// retrying on the rare random collision. The unique index on order_number is
// the real guarantee; this just avoids burning an insert on a known duplicate.
func generateOrderNumber(ctx context.Context, taken func(ctx context.Context, orderNumber string) (bool, error)) (string, error) {
	var number string
	backoff := retry.WithMaxRetries(orderNumberAttempts, retry.NewConstant(time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		candidate := fmt.Sprintf("ORD-%d-%06d", time.Now().UTC().Year(), rand.IntN(1000000))
		exists, err := taken(ctx, candidate)
		if err != nil {
			return err
		}
		if exists {
			return retry.RetryableError(fmt.Errorf("order number %s already taken", candidate))
		}
		number = candidate
		return nil
	})
	if err != nil {
		return "", errors.Wrap(errors.CodeInternal, err, "generating order number")
	}
	return number, nil
}
