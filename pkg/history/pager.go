package history

import (
	"context"
	"sync"

	"github.com/xhist/travel-buddy-client-sub000/pkg/models"
)

// Pager walks one conversation's history backwards. It owns the
// pagination cursor: after each page the cursor moves to the oldest
// loaded message identifier, and an empty page marks the conversation
// exhausted.
type Pager struct {
	fetcher        *Fetcher
	conversationID string

	mu        sync.Mutex
	cursor    string
	exhausted bool
}

// NewPager creates a pager starting from the newest messages.
func NewPager(fetcher *Fetcher, conversationID string) *Pager {
	return &Pager{
		fetcher:        fetcher,
		conversationID: conversationID,
	}
}

// NextPage fetches the next (older) page in older-first order. After
// exhaustion it returns an empty page and no error. Concurrent calls
// are serialized so the cursor advances consistently.
func (p *Pager) NextPage(ctx context.Context) ([]models.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.exhausted {
		return nil, nil
	}

	page, err := p.fetcher.FetchPage(ctx, p.conversationID, p.cursor)
	if err != nil {
		return nil, err
	}
	if len(page) == 0 {
		p.exhausted = true
		return nil, nil
	}
	// Pages are older-first, so the oldest loaded message is first.
	p.cursor = page[0].ID
	return page, nil
}

// Exhausted reports whether the conversation has no more history.
func (p *Pager) Exhausted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exhausted
}

// Cursor returns the current pagination cursor (the oldest loaded
// message identifier, or empty before the first page).
func (p *Pager) Cursor() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}
