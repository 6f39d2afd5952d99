package customers

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmaflow/pharmaflow/internal/shared"
)

func d(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func TestCheckCreditUnlimited(t *testing.T) {
	c := &CreditAccount{ID: 1, CreditLimitType: CreditUnlimited, CurrentBalance: d(1_000_000)}
	require.NoError(t, CheckCredit(c, d(500_000)))
}

func TestCheckCreditWithinLimit(t *testing.T) {
	c := &CreditAccount{ID: 1, CreditLimitType: CreditLimited, CreditLimit: d(50_000), CurrentBalance: d(20_000)}
	require.NoError(t, CheckCredit(c, d(30_000)), "exact limit is allowed")
}

func TestCheckCreditExceeded(t *testing.T) {
	// credit_limit=50,000 current_balance=40,000 requesting 20,000: 60,000 > 50,000.
	c := &CreditAccount{ID: 7, CreditLimitType: CreditLimited, CreditLimit: d(50_000), CurrentBalance: d(40_000)}
	err := CheckCredit(c, d(20_000))
	require.Error(t, err)

	var credit *shared.CreditLimitExceededError
	require.True(t, errors.As(err, &credit))
	assert.Equal(t, int64(7), credit.CustomerID)
	assert.True(t, credit.Limit.Equal(d(50_000)))
	assert.True(t, credit.Balance.Equal(d(40_000)))
	assert.True(t, credit.Requested.Equal(d(20_000)))
}

func TestAvailableCredit(t *testing.T) {
	limited := &CreditAccount{CreditLimitType: CreditLimited, CreditLimit: d(50_000), CurrentBalance: d(15_000)}
	avail := AvailableCredit(limited)
	require.NotNil(t, avail)
	assert.True(t, avail.Equal(d(35_000)))

	assert.Nil(t, AvailableCredit(&CreditAccount{CreditLimitType: CreditUnlimited}))
}
