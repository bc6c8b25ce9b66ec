package services

import "time"

const (
	KeyPuzzle        = "mathler:puzzle:%s"
	KeyUserProgress  = "mathler:user:%s:progress"
	KeyRateLimit     = "mathler:ratelimit:%s:%s"
	KeyPriceSnapshot = "mathler:price:btc"

	TTLPriceSnapshot = 10 * time.Minute

	DefaultRateLimitSubmit = 60 // Max 60 guesses per minute per client
)
