package store

import (
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Resource is a reference to remote image content. The payload is filled in
// once the content has been fetched.
type Resource struct {
	ID         uuid.UUID
	AcquiredAt time.Time
	Locator    *url.URL

	mu      sync.RWMutex
	payload []byte
}

func NewResource(locator *url.URL) *Resource {
	return &Resource{
		ID:         uuid.New(),
		AcquiredAt: time.Now(),
		Locator:    locator,
	}
}

func (r *Resource) Payload() []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.payload
}

func (r *Resource) setPayload(data []byte) {
	r.mu.Lock()
	r.payload = data
	r.mu.Unlock()
}

func (r *Resource) String() string {
	if r == nil || r.Locator == nil {
		return ""
	}
	return r.Locator.String()
}
