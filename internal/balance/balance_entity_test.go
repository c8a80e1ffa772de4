package balance_test

import (
	"testing"

	"leaveledger/internal/balance"
	"leaveledger/internal/leavetype"

	"github.com/stretchr/testify/assert"
)

func TestBalanceRecalc(t *testing.T) {
	t.Run("remaining is allocated plus carried minus used", func(t *testing.T) {
		b := balance.Balance{
			Annual: balance.CategoryBalance{Allocated: 20, CarriedForward: 5, Used: 8},
			Sick:   balance.CategoryBalance{Allocated: 10, Used: 3},
			Casual: balance.CategoryBalance{Allocated: 10},
		}
		b.Recalc()

		assert.Equal(t, 17, b.Annual.Remaining)
		assert.Equal(t, 7, b.Sick.Remaining)
		assert.Equal(t, 10, b.Casual.Remaining)
		assert.True(t, b.IsCarriedForward)
		assert.True(t, b.Consistent())
	})

	t.Run("overuse keeps the negative remaining and records the advance", func(t *testing.T) {
		b := balance.Balance{
			Annual: balance.CategoryBalance{Allocated: 20, Used: 23},
		}
		b.Recalc()

		assert.Equal(t, -3, b.Annual.Remaining)
		assert.Equal(t, 3, b.Annual.Advance)
		assert.False(t, b.Consistent())
	})

	t.Run("advance clears when usage drops back", func(t *testing.T) {
		b := balance.Balance{
			Annual: balance.CategoryBalance{Allocated: 20, Used: 23},
		}
		b.Recalc()
		b.Annual.Used = 10
		b.Recalc()

		assert.Equal(t, 10, b.Annual.Remaining)
		assert.Equal(t, 0, b.Annual.Advance)
		assert.True(t, b.Consistent())
	})
}

func TestBalanceCategory(t *testing.T) {
	b := balance.Balance{}

	assert.Same(t, &b.Annual, b.Category(leavetype.CategoryAnnual))
	assert.Same(t, &b.Sick, b.Category(leavetype.CategorySick))
	assert.Same(t, &b.Sick, b.Category(leavetype.CategoryMedical))
	assert.Same(t, &b.Casual, b.Category(leavetype.CategoryCasual))
	assert.Nil(t, b.Category(leavetype.Category("maternity")))
}
