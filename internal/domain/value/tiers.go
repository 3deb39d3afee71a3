package value

import (
	"sort"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals // skip

// WholesaleTier — правило оптовой цены: от MinQuantity штук цена Price за единицу.
type WholesaleTier struct {
	MinQuantity int             `json:"min"`
	Price       decimal.Decimal `json:"price"`
}

// WholesaleTiers хранится отсортированным по убыванию MinQuantity,
// поэтому при подборе выигрывает первое подошедшее правило.
type WholesaleTiers []WholesaleTier

// ParseWholesaleTiers разбирает слаботипизированный конфиг из БД.
// Кривые данные не валят заказ: возвращается nil и ok=false,
// цена в этом случае остаётся базовой.
func ParseWholesaleTiers(raw []byte) (WholesaleTiers, bool) {
	if len(raw) == 0 {
		return nil, true
	}

	var tiers WholesaleTiers
	if err := json.Unmarshal(raw, &tiers); err != nil {
		return nil, false
	}

	// Дубликаты порогов и мусорные правила выкидываем
	seen := make(map[int]struct{}, len(tiers))
	valid := tiers[:0]

	for _, t := range tiers {
		if t.MinQuantity < 1 || t.Price.IsNegative() {
			continue
		}
		if _, ok := seen[t.MinQuantity]; ok {
			continue
		}
		seen[t.MinQuantity] = struct{}{}
		valid = append(valid, t)
	}

	sort.Slice(valid, func(i, j int) bool {
		return valid[i].MinQuantity > valid[j].MinQuantity
	})

	return valid, true
}

// PriceFor возвращает цену первого правила с MinQuantity <= quantity, если есть.
func (t WholesaleTiers) PriceFor(quantity int) (decimal.Decimal, bool) {
	for _, tier := range t {
		if tier.MinQuantity <= quantity {
			return tier.Price, true
		}
	}

	return decimal.Decimal{}, false
}
