package config

import "time"

// Settlement — параметры отложенного подтверждения оплаты.
// Delay имитирует латентность колбэка платёжного шлюза.
type Settlement struct {
	Delay      time.Duration `env:"SETTLEMENT_DELAY" envDefault:"15s"`
	SessionTTL time.Duration `env:"PAYMENT_SESSION_TTL" envDefault:"30m"`
}
