package models

import "testing"

func TestHasReaction(t *testing.T) {
	msg := Message{
		ID: "m1",
		Reactions: []Reaction{
			{Kind: "👍", UserID: "alice"},
		},
	}
	if !msg.HasReaction("👍", "alice") {
		t.Fatal("existing reaction not found")
	}
	if msg.HasReaction("👍", "bob") {
		t.Fatal("matched wrong user")
	}
	if msg.HasReaction("🎉", "alice") {
		t.Fatal("matched wrong kind")
	}
}

func TestPollTotalVotesAndHasVoter(t *testing.T) {
	poll := Poll{
		ID: "p1",
		Options: []PollOption{
			{ID: "o1", Voters: []string{"alice", "bob"}},
			{ID: "o2", Voters: []string{"carol"}},
			{ID: "o3"},
		},
	}
	if poll.TotalVotes() != 3 {
		t.Fatalf("TotalVotes = %d, want 3", poll.TotalVotes())
	}
	if !poll.Options[0].HasVoter("bob") {
		t.Fatal("HasVoter missed bob on o1")
	}
	if poll.Options[2].HasVoter("bob") {
		t.Fatal("HasVoter matched an empty option")
	}
}
