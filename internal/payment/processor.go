package payment

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Supported payment methods.
const (
	MethodCard           = "card"
	MethodBankTransfer   = "bank_transfer"
	MethodEWallet        = "ewallet"
	MethodCashOnDelivery = "cash_on_delivery"
)

// Charge is a request to collect the total of an order.
type Charge struct {
	OrderID string
	Amount  int64
	Method  string
}

// Receipt is the processor's answer to a charge.
type Receipt struct {
	Reference string
	Approved  bool
}

// Processor collects payments. There is no external gateway; Simulated
// stands in for one.
type Processor interface {
	Charge(ctx context.Context, c Charge) (Receipt, error)
}

// Simulated approves every charge unless Decline says otherwise.
type Simulated struct {
	Decline func(Charge) bool
}

// Charge implements Processor.
func (s Simulated) Charge(ctx context.Context, c Charge) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	approved := s.Decline == nil || !s.Decline(c)
	return Receipt{Reference: NewReference(), Approved: approved}, nil
}

// NewReference returns a unique payment reference such as PAY-1F0C9A2B7D3E4C56.
func NewReference() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "PAY-" + strings.ToUpper(raw[:16])
}
