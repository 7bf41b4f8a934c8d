package domain

import (
	"math/rand"
	"reflect"
	"testing"
	"time"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func callWithSlots(id string, slots int) Call {
	line := []Part{TextPart("Why is there ")}
	for i := 0; i < slots; i++ {
		line = append(line, SlotPart(TransformNone), TextPart(" and "))
	}
	return Call{ID: id, Source: Source{Kind: SourceBuiltIn}, Parts: [][]Part{line}}
}

func playOf(cards ...Response) Play { return Play(cards) }

func TestRoundWaitingForPlaying(t *testing.T) {
	r := NewRound(0, "czar", []string{"a", "b", "c"}, callWithSlots("c1", 1), testNow)
	hand := responses("h", 3)

	if got := r.WaitingFor(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("WaitingFor() = %v, want [a b c]", got)
	}
	for i, id := range []string{"a", "b", "c"} {
		if _, err := r.Submit(id, playOf(hand[i])); err != nil {
			t.Fatalf("Submit(%s) error: %v", id, err)
		}
	}
	if got := r.WaitingFor(); got != nil {
		t.Fatalf("WaitingFor() = %v, want nil", got)
	}
}

func TestRoundSubmitInvalid(t *testing.T) {
	hand := responses("h", 4)
	tests := []struct {
		name   string
		setup  func(r *Round)
		user   string
		play   Play
		reason string
	}{
		{name: "not in round", user: "czar", play: playOf(hand[0]), reason: "You are not playing in this round."},
		{name: "stranger", user: "zed", play: playOf(hand[0]), reason: "You are not playing in this round."},
		{
			name:   "twice",
			setup:  func(r *Round) { _, _ = r.Submit("a", playOf(hand[0])) },
			user:   "a",
			play:   playOf(hand[1]),
			reason: "You have already submitted a play this round.",
		},
		{name: "wrong size", user: "a", play: playOf(hand[0], hand[1]), reason: "The play must contain exactly 1 cards."},
		{
			name:   "wrong stage",
			setup:  func(r *Round) { r.Stage = StageJudging },
			user:   "a",
			play:   playOf(hand[0]),
			reason: "Plays can only be submitted while the round is in the playing stage.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRound(0, "czar", []string{"a", "b"}, callWithSlots("c1", 1), testNow)
			if tt.setup != nil {
				tt.setup(r)
			}
			_, err := r.Submit(tt.user, tt.play)
			reason, ok := InvalidActionReason(err)
			if !ok {
				t.Fatalf("Submit error = %v, want invalid action", err)
			}
			if reason != tt.reason {
				t.Fatalf("reason = %q, want %q", reason, tt.reason)
			}
		})
	}
}

func TestRoundStageProgression(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	hand := responses("h", 2)
	r := NewRound(3, "czar", []string{"a", "b"}, callWithSlots("c1", 1), testNow)
	if _, err := r.StartRevealing(rng, testNow); err == nil {
		t.Fatalf("StartRevealing succeeded while still waiting")
	}

	_, _ = r.Submit("a", playOf(hand[0]))
	_, _ = r.Submit("b", playOf(hand[1]))

	revealing, err := r.StartRevealing(rng, testNow)
	if err != nil {
		t.Fatalf("StartRevealing error: %v", err)
	}
	if r.Stage != StagePlaying {
		t.Fatalf("original round stage = %s, want Playing", r.Stage)
	}
	if got := revealing.WaitingFor(); !reflect.DeepEqual(got, []string{"czar"}) {
		t.Fatalf("Revealing WaitingFor() = %v, want [czar]", got)
	}
	if _, err := revealing.StartJudging(rng, testNow); err == nil {
		t.Fatalf("StartJudging succeeded with unrevealed plays")
	}
	for _, p := range revealing.Plays {
		if _, changed, err := revealing.Reveal(p.ID); err != nil || !changed {
			t.Fatalf("Reveal(%s) = %v, %v", p.ID, changed, err)
		}
	}
	if _, changed, _ := revealing.Reveal(revealing.Plays[0].ID); changed {
		t.Fatalf("second Reveal reported a change")
	}
	if got := revealing.WaitingFor(); got != nil {
		t.Fatalf("Revealing WaitingFor() = %v, want nil", got)
	}

	judging, err := revealing.StartJudging(rng, testNow)
	if err != nil {
		t.Fatalf("StartJudging error: %v", err)
	}
	if got := judging.WaitingFor(); !reflect.DeepEqual(got, []string{"czar"}) {
		t.Fatalf("Judging WaitingFor() = %v, want [czar]", got)
	}

	winner := judging.Plays[0]
	complete, err := judging.Complete(winner.ID, testNow)
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if complete.Stage != StageComplete || complete.Winner != winner.PlayedBy {
		t.Fatalf("complete = %s winner %s, want Complete winner %s", complete.Stage, complete.Winner, winner.PlayedBy)
	}
	if complete.WaitingFor() != nil {
		t.Fatalf("Complete WaitingFor() should be nil")
	}
	if complete.ID != 3 {
		t.Fatalf("round id changed to %d", complete.ID)
	}
}

func TestRoundStartJudgingSkipsReveal(t *testing.T) {
	hand := responses("h", 1)
	r := NewRound(0, "czar", []string{"a"}, callWithSlots("c1", 1), testNow)
	_, _ = r.Submit("a", playOf(hand[0]))

	judging, err := r.StartJudging(rand.New(rand.NewSource(1)), testNow)
	if err != nil {
		t.Fatalf("StartJudging error: %v", err)
	}
	if !judging.Plays[0].Revealed {
		t.Fatalf("plays should be revealed when skipping the revealing stage")
	}
}

func TestRoundRemovePlayer(t *testing.T) {
	hand := responses("h", 1)
	r := NewRound(0, "czar", []string{"a", "b"}, callWithSlots("c1", 1), testNow)
	_, _ = r.Submit("a", playOf(hand[0]))

	if r.RemovePlayer("a") {
		t.Fatalf("RemovePlayer removed a player who already played")
	}
	if !r.RemovePlayer("b") {
		t.Fatalf("RemovePlayer(b) = false, want true")
	}
	if r.WaitingFor() != nil {
		t.Fatalf("WaitingFor() = %v, want nil", r.WaitingFor())
	}
}

func TestRoundTakeBack(t *testing.T) {
	hand := responses("h", 1)
	r := NewRound(0, "czar", []string{"a"}, callWithSlots("c1", 1), testNow)
	_, _ = r.Submit("a", playOf(hand[0]))

	play, err := r.TakeBack("a")
	if err != nil {
		t.Fatalf("TakeBack error: %v", err)
	}
	if play.Play[0].ID != hand[0].ID {
		t.Fatalf("TakeBack returned %v", play.Play.IDs())
	}
	if !r.IsWaitingFor("a") {
		t.Fatalf("round should wait for a again")
	}
}

func TestRoundLike(t *testing.T) {
	hand := responses("h", 2)
	r := NewRound(0, "czar", []string{"a", "b"}, callWithSlots("c1", 1), testNow)
	_, _ = r.Submit("a", playOf(hand[0]))
	_, _ = r.Submit("b", playOf(hand[1]))
	judging, _ := r.StartJudging(rand.New(rand.NewSource(1)), testNow)

	var aPlay StoredPlay
	for _, p := range judging.Plays {
		if p.PlayedBy == "a" {
			aPlay = p
		}
	}
	if _, err := judging.Like("a", aPlay.ID); err == nil {
		t.Fatalf("liking your own play should fail")
	}
	if changed, err := judging.Like("b", aPlay.ID); err != nil || !changed {
		t.Fatalf("Like = %v, %v", changed, err)
	}
	if changed, _ := judging.Like("b", aPlay.ID); changed {
		t.Fatalf("repeated like counted twice")
	}
}

func TestRoundPublicHidesAuthorsUntilComplete(t *testing.T) {
	hand := responses("h", 2)
	r := NewRound(0, "czar", []string{"a", "b"}, callWithSlots("c1", 1), testNow)
	_, _ = r.Submit("a", playOf(hand[0]))

	pub := r.Public()
	if len(pub.Plays) != 0 || !reflect.DeepEqual(pub.Played, []string{"a"}) {
		t.Fatalf("Playing public view = %+v", pub)
	}

	_, _ = r.Submit("b", playOf(hand[1]))
	revealing, _ := r.StartRevealing(rand.New(rand.NewSource(1)), testNow)
	_, _, _ = revealing.Reveal(revealing.Plays[0].ID)
	pub = revealing.Public()
	if pub.Plays[0].Play == nil || pub.Plays[1].Play != nil {
		t.Fatalf("only the revealed play should carry content: %+v", pub.Plays)
	}
	for _, p := range pub.Plays {
		if p.PlayedBy != "" {
			t.Fatalf("author leaked before completion: %+v", p)
		}
	}
}
