package redis

import "time"

const (
	healthCheckInterval = 5 * time.Second
	pingTimeout         = 3 * time.Second
)
