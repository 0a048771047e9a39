package constant

import "time"

const (
	EventRemainingCapacityKey = "event:%s:remaining"
	PurchasePhoneLock         = "purchase:phone_lock:%s"
)

const (
	PurchasePhoneLockDefaultTTL = 1 * time.Minute
)
