package realtime

import (
	"fmt"
	"sync"

	"github.com/xhist/travel-buddy-client-sub000/internal/observability"
	"github.com/xhist/travel-buddy-client-sub000/pkg/models"
)

// PollAggregator maintains the polls of one conversation. Vote rules
// are enforced client-side for responsiveness; the server remains the
// authority, and Apply reconciles its returned state over local
// mutations.
type PollAggregator struct {
	logger *observability.Logger

	mu         sync.RWMutex
	polls      map[string]*models.Poll
	organizers map[string]bool
}

// NewPollAggregator creates an empty aggregator.
func NewPollAggregator(logger *observability.Logger) *PollAggregator {
	if logger == nil {
		logger = observability.NewLogger(observability.LogConfig{})
	}
	return &PollAggregator{
		logger:     logger,
		polls:      make(map[string]*models.Poll),
		organizers: make(map[string]bool),
	}
}

// SetOrganizer grants or revokes organizer privilege for a user.
// Organizers may finalize or edit any poll before finalization.
func (a *PollAggregator) SetOrganizer(userID string, organizer bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if organizer {
		a.organizers[userID] = true
	} else {
		delete(a.organizers, userID)
	}
}

// CreatePoll inserts a new poll. A duplicate identifier is logged and
// dropped rather than erroring.
func (a *PollAggregator) CreatePoll(poll models.Poll) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.polls[poll.ID]; exists {
		a.logger.Warn("dropping duplicate poll", "poll_id", poll.ID)
		return
	}
	clone := clonePoll(&poll)
	a.polls[poll.ID] = clone
}

// Apply replaces a poll with server-returned state. The server is the
// authority; its state wins over any local mutation. Unknown polls
// are inserted.
func (a *PollAggregator) Apply(poll models.Poll) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.polls[poll.ID] = clonePoll(&poll)
}

// Vote records userID's vote for optionID. Single-choice semantics: a
// prior vote by the same user on any other option of the poll is
// retracted first. Voting on a finalized poll fails with an
// ErrCodePollFinalized error and leaves vote lists unchanged.
func (a *PollAggregator) Vote(pollID, optionID, userID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	poll, ok := a.polls[pollID]
	if !ok {
		return NewError(ErrCodeNotFound, fmt.Sprintf("poll %q not found", pollID), nil)
	}
	if poll.Finalized {
		return ErrPollFinalized(pollID)
	}

	target := -1
	for i := range poll.Options {
		if poll.Options[i].ID == optionID {
			target = i
			break
		}
	}
	if target < 0 {
		return NewError(ErrCodeNotFound, fmt.Sprintf("option %q not found in poll %q", optionID, pollID), nil)
	}

	// Retract any prior vote across all options, then add.
	for i := range poll.Options {
		poll.Options[i].Voters = removeVoter(poll.Options[i].Voters, userID)
	}
	poll.Options[target].Voters = append(poll.Options[target].Voters, userID)
	return nil
}

// Finalize marks the poll terminal. Only the creator or an organizer
// may finalize; subsequent votes fail.
func (a *PollAggregator) Finalize(pollID, actorID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	poll, ok := a.polls[pollID]
	if !ok {
		return NewError(ErrCodeNotFound, fmt.Sprintf("poll %q not found", pollID), nil)
	}
	if poll.Finalized {
		return ErrPollFinalized(pollID)
	}
	if actorID != poll.CreatorID && !a.organizers[actorID] {
		return NewError(ErrCodePermission, fmt.Sprintf("user %q may not finalize poll %q", actorID, pollID), nil)
	}
	poll.Finalized = true
	return nil
}

// Edit replaces the question and option labels of an open poll. Only
// the creator or an organizer may edit; votes are preserved for
// options whose identifiers survive the edit.
func (a *PollAggregator) Edit(pollID, actorID, question string, options []models.PollOption) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	poll, ok := a.polls[pollID]
	if !ok {
		return NewError(ErrCodeNotFound, fmt.Sprintf("poll %q not found", pollID), nil)
	}
	if poll.Finalized {
		return ErrPollFinalized(pollID)
	}
	if actorID != poll.CreatorID && !a.organizers[actorID] {
		return NewError(ErrCodePermission, fmt.Sprintf("user %q may not edit poll %q", actorID, pollID), nil)
	}

	prior := make(map[string][]string, len(poll.Options))
	for i := range poll.Options {
		prior[poll.Options[i].ID] = poll.Options[i].Voters
	}

	poll.Question = question
	poll.Options = make([]models.PollOption, len(options))
	for i, opt := range options {
		poll.Options[i] = models.PollOption{ID: opt.ID, Label: opt.Label}
		if voters, ok := prior[opt.ID]; ok {
			poll.Options[i].Voters = append([]string(nil), voters...)
		}
	}
	return nil
}

// Tally computes per-option counts and percentages. Every option is
// present in the result; with zero total votes all percentages are 0.
func (a *PollAggregator) Tally(pollID string) (map[string]models.OptionTally, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	poll, ok := a.polls[pollID]
	if !ok {
		return nil, NewError(ErrCodeNotFound, fmt.Sprintf("poll %q not found", pollID), nil)
	}

	total := poll.TotalVotes()
	result := make(map[string]models.OptionTally, len(poll.Options))
	for i := range poll.Options {
		count := len(poll.Options[i].Voters)
		tally := models.OptionTally{Count: count}
		if total > 0 {
			tally.Percentage = float64(count) / float64(total) * 100
		}
		result[poll.Options[i].ID] = tally
	}
	return result, nil
}

// Get returns a copy of a poll.
func (a *PollAggregator) Get(pollID string) (models.Poll, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	poll, ok := a.polls[pollID]
	if !ok {
		return models.Poll{}, false
	}
	return *clonePoll(poll), true
}

// Polls returns copies of all known polls.
func (a *PollAggregator) Polls() []models.Poll {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]models.Poll, 0, len(a.polls))
	for _, poll := range a.polls {
		out = append(out, *clonePoll(poll))
	}
	return out
}

// clonePoll deep-copies a poll so callers cannot mutate shared state.
func clonePoll(p *models.Poll) *models.Poll {
	clone := *p
	clone.Options = make([]models.PollOption, len(p.Options))
	for i, opt := range p.Options {
		clone.Options[i] = models.PollOption{
			ID:     opt.ID,
			Label:  opt.Label,
			Voters: append([]string(nil), opt.Voters...),
		}
	}
	return &clone
}

// removeVoter returns voters without userID.
func removeVoter(voters []string, userID string) []string {
	out := voters[:0]
	for _, v := range voters {
		if v != userID {
			out = append(out, v)
		}
	}
	return out
}
