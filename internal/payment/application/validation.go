package application

import (
	"fmt"

	validation "github.com/jellydator/validation"
	"github.com/shopspring/decimal"

	"github.com/orderflow/payment-service/internal/payment/domain"
)

// positiveAmount rejects zero and negative monetary amounts.
var positiveAmount = validation.By(func(value interface{}) error {
	d, ok := value.(decimal.Decimal)
	if !ok {
		return validation.NewError("validation_amount_type", "must be a decimal amount")
	}
	if !d.IsPositive() {
		return validation.NewError("validation_amount_positive", "must be greater than 0")
	}
	return nil
})

type createInput struct {
	OrderID int64
	UserID  int64
	Amount  decimal.Decimal
}

func (in createInput) validate() error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.OrderID, validation.Required, validation.Min(int64(1))),
		validation.Field(&in.UserID, validation.Required, validation.Min(int64(1))),
		validation.Field(&in.Amount, positiveAmount),
	)
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, err.Error())
	}
	return nil
}
