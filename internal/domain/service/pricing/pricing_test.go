package pricing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"cardshop/internal/domain/service/pricing"
	"cardshop/internal/domain/value"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestResolve(t *testing.T) {
	tiers, ok := value.ParseWholesaleTiers([]byte(`[{"min":5,"price":"8.00"},{"min":10,"price":"6.00"}]`))
	require.True(t, ok)

	testCases := []struct {
		name      string
		base      string
		markup    string
		tiers     value.WholesaleTiers
		quantity  int
		selection bool
		want      string
	}{
		{
			name:     "tier 5 wins at quantity 7",
			base:     "10.00",
			tiers:    tiers,
			quantity: 7,
			want:     "8.00",
		},
		{
			name:     "tier 10 wins at quantity 12",
			base:     "10.00",
			tiers:    tiers,
			quantity: 12,
			want:     "6.00",
		},
		{
			name:     "no tier matches below threshold",
			base:     "10.00",
			tiers:    tiers,
			quantity: 4,
			want:     "10.00",
		},
		{
			name:      "selection adds markup and ignores tiers",
			base:      "10.00",
			markup:    "2.00",
			tiers:     tiers,
			quantity:  1,
			selection: true,
			want:      "12.00",
		},
		{
			name:     "no tiers at all",
			base:     "3.50",
			quantity: 100,
			want:     "3.50",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rq := require.New(t)

			markup := decimal.Zero
			if tc.markup != "" {
				markup = d(tc.markup)
			}

			got := pricing.Resolve(d(tc.base), markup, tc.tiers, tc.quantity, tc.selection)
			rq.True(d(tc.want).Equal(got), "want %s got %s", tc.want, got)

			// Детерминированность: повторный вызов даёт ту же цену
			again := pricing.Resolve(d(tc.base), markup, tc.tiers, tc.quantity, tc.selection)
			rq.True(got.Equal(again))
		})
	}
}

func TestTotal(t *testing.T) {
	rq := require.New(t)

	rq.True(d("56.00").Equal(pricing.Total(d("8.00"), 7)))
	rq.True(d("12.00").Equal(pricing.Total(d("12.00"), 1)))
}

func TestParseWholesaleTiers(t *testing.T) {
	rq := require.New(t)

	// Кривой конфиг — не ошибка заказа, просто нет оптовых цен
	tiers, ok := value.ParseWholesaleTiers([]byte(`{"oops": true`))
	rq.False(ok)
	rq.Nil(tiers)

	// Пустой конфиг валиден
	tiers, ok = value.ParseWholesaleTiers(nil)
	rq.True(ok)
	rq.Nil(tiers)

	// Дубликаты порогов и мусор отбрасываются, порядок — по убыванию порога
	tiers, ok = value.ParseWholesaleTiers([]byte(`[
		{"min":5,"price":"8.00"},
		{"min":5,"price":"7.00"},
		{"min":0,"price":"1.00"},
		{"min":10,"price":"6.00"}
	]`))
	rq.True(ok)
	rq.Len(tiers, 2)
	rq.Equal(10, tiers[0].MinQuantity)
	rq.Equal(5, tiers[1].MinQuantity)

	price, found := tiers.PriceFor(7)
	rq.True(found)
	rq.True(decimal.RequireFromString("8.00").Equal(price))

	_, found = tiers.PriceFor(2)
	rq.False(found)
}
