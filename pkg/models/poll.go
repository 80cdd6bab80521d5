package models

// PollOption is one choice in a poll. Voters has set semantics: a
// user appears at most once, and at most once across all options of
// the same poll.
type PollOption struct {
	ID     string   `json:"id"`
	Label  string   `json:"label"`
	Voters []string `json:"voters,omitempty"`
}

// HasVoter reports whether userID has voted for this option.
func (o *PollOption) HasVoter(userID string) bool {
	for _, v := range o.Voters {
		if v == userID {
			return true
		}
	}
	return false
}

// Poll is a single-choice poll attached to a conversation. Once
// Finalized is set no further vote mutations apply.
type Poll struct {
	ID        string       `json:"id"`
	Question  string       `json:"question"`
	CreatorID string       `json:"creator_id"`
	Finalized bool         `json:"finalized"`
	Options   []PollOption `json:"options"`
}

// TotalVotes returns the number of votes across all options.
func (p *Poll) TotalVotes() int {
	total := 0
	for i := range p.Options {
		total += len(p.Options[i].Voters)
	}
	return total
}

// VoteEvent is the outbound payload for casting a vote. The server
// responds with a poll_update frame carrying authoritative state.
type VoteEvent struct {
	PollID   string `json:"poll_id"`
	OptionID string `json:"option_id"`
	UserID   string `json:"user_id"`
}

// PollFinalizeEvent is the outbound payload requesting finalization.
type PollFinalizeEvent struct {
	PollID  string `json:"poll_id"`
	ActorID string `json:"actor_id"`
}

// OptionTally holds the computed result for one poll option.
type OptionTally struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}
