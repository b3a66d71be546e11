package rewards

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booknook/internal/models"
	"booknook/internal/store"
)

func TestLedger_AwardAndBalance(t *testing.T) {
	ledger := NewLedger(store.NewInMemoryStore())
	ctx := context.Background()

	require.NoError(t, ledger.Award(ctx, 1, 100, "Finished reading Dune"))
	require.NoError(t, ledger.Award(ctx, 1, 20, "Rated Dune"))

	b, err := ledger.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 120, b.Earned)
	assert.Equal(t, 0, b.Redeemed)
	assert.Equal(t, 120, b.Available())
}

func TestLedger_BalanceForNewUserIsZero(t *testing.T) {
	ledger := NewLedger(store.NewInMemoryStore())

	b, err := ledger.Balance(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 0, b.Earned)
	assert.Equal(t, 0, b.Available())
}

func TestLedger_RejectsInvalidInput(t *testing.T) {
	ledger := NewLedger(store.NewInMemoryStore())
	ctx := context.Background()

	assert.ErrorIs(t, ledger.Award(ctx, 1, 0, "nothing"), ErrInvalidInput)
	assert.ErrorIs(t, ledger.Award(ctx, 1, -5, "negative"), ErrInvalidInput)
	assert.ErrorIs(t, ledger.Award(ctx, 1, 10, "  "), ErrInvalidInput)
	assert.ErrorIs(t, ledger.Redeem(ctx, 1, 0, "nothing"), ErrInvalidInput)
}

// Redeeming past the available balance fails and leaves the balance
// untouched.
func TestLedger_RedeemBeyondBalanceFails(t *testing.T) {
	ledger := NewLedger(store.NewInMemoryStore())
	ctx := context.Background()

	require.NoError(t, ledger.Award(ctx, 1, 50, "streak"))
	err := ledger.Redeem(ctx, 1, 51, "avatar unlock")
	assert.ErrorIs(t, err, store.ErrInsufficientBalance)

	b, err := ledger.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 50, b.Earned)
	assert.Equal(t, 0, b.Redeemed)
}

// redeemed <= earned must hold after every operation in any sequence of
// awards and redemptions.
func TestLedger_BalanceInvariantHolds(t *testing.T) {
	ledger := NewLedger(store.NewInMemoryStore())
	ctx := context.Background()

	ops := []struct {
		award  bool
		amount int
	}{
		{true, 10}, {false, 4}, {false, 20}, {true, 5}, {false, 11},
		{false, 1}, {true, 2}, {false, 100}, {false, 2},
	}

	for i, op := range ops {
		if op.award {
			require.NoError(t, ledger.Award(ctx, 1, op.amount, "earn"))
		} else {
			err := ledger.Redeem(ctx, 1, op.amount, "spend")
			if err != nil {
				require.ErrorIs(t, err, store.ErrInsufficientBalance, "op %d", i)
			}
		}
		b, err := ledger.Balance(ctx, 1)
		require.NoError(t, err)
		assert.LessOrEqual(t, b.Redeemed, b.Earned, "op %d broke the invariant", i)
		assert.GreaterOrEqual(t, b.Available(), 0, "op %d made balance negative", i)
	}
}

func TestLedger_HistoryIsAppendOnlyAudit(t *testing.T) {
	ledger := NewLedger(store.NewInMemoryStore())
	ctx := context.Background()

	require.NoError(t, ledger.Award(ctx, 1, 100, "Finished reading Dune"))
	require.NoError(t, ledger.Redeem(ctx, 1, 30, "avatar unlock"))

	txs, err := ledger.History(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	var kinds []string
	total := 0
	for _, tx := range txs {
		kinds = append(kinds, tx.Kind)
		total += tx.Amount
		assert.NotEmpty(t, tx.ID)
		assert.NotEmpty(t, tx.Reason)
	}
	assert.ElementsMatch(t, []string{models.TxEarned, models.TxRedeemed}, kinds)
	assert.Equal(t, 70, total)
}
