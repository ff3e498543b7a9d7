package storage

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/near/lake-flows-into-sql/model"
)

var _ Backend = (*NullStorage)(nil)

// A NullStorage ignores any requests to persist rows and always looks empty.
type NullStorage struct {
}

//revive:disable
func (*NullStorage) Insert(ctx context.Context, t model.Table, rows []model.Row) error {
	return nil
}

func (*NullStorage) DeleteFrom(ctx context.Context, t model.Table, ts decimal.Decimal) (int, error) {
	return 0, nil
}

func (*NullStorage) Max(ctx context.Context, t model.Table, column string) (decimal.NullDecimal, error) {
	return decimal.NullDecimal{}, nil
}

func (*NullStorage) CountAt(ctx context.Context, t model.Table, ts decimal.Decimal) (int64, error) {
	return 0, nil
}

func (*NullStorage) Close() error {
	return nil
}
