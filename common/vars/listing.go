package vars

import (
	"sync/atomic"
	"unsafe"

	"ticketera/model"
)

// listingDataPtr holds a pointer to the current snapshot of the public event
// listing. This approach allows for lock-free reads with atomic updates.
var listingDataPtr unsafe.Pointer

// GetListing returns the current public listing snapshot.
// This operation is lock-free and safe for concurrent access.
func GetListing() []model.Event {
	ptr := atomic.LoadPointer(&listingDataPtr)
	if ptr == nil {
		return nil
	}
	return *(*[]model.Event)(ptr)
}

// SetListing atomically replaces the public listing snapshot.
// It creates a copy of the input data to ensure consistency.
func SetListing(events []model.Event) {
	var ptr unsafe.Pointer

	if len(events) > 0 {
		eventsCopy := make([]model.Event, len(events))
		copy(eventsCopy, events)
		ptr = unsafe.Pointer(&eventsCopy)
	}

	atomic.StorePointer(&listingDataPtr, ptr)
}

func init() {
	atomic.StorePointer(&listingDataPtr, nil)
}
