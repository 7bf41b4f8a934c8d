package domain

import (
	"math/rand"
	"time"
)

// Stage is the tag of a Round.
type Stage string

const (
	StagePlaying   Stage = "Playing"
	StageRevealing Stage = "Revealing"
	StageJudging   Stage = "Judging"
	StageComplete  Stage = "Complete"
)

// Valid reports whether s is one of the four round stages.
func (s Stage) Valid() bool {
	switch s {
	case StagePlaying, StageRevealing, StageJudging, StageComplete:
		return true
	}
	return false
}

// Round is one call being answered and judged. The Stage tag decides which
// fields are meaningful; Winner is only set once Complete. Stage changes
// produce a new Round rather than editing the current one.
type Round struct {
	ID        int          `json:"id"`
	Stage     Stage        `json:"stage"`
	Czar      string       `json:"czar"`
	Players   []string     `json:"players"`
	Call      Call         `json:"call"`
	Plays     []StoredPlay `json:"plays"`
	Winner    string       `json:"winner,omitempty"`
	StartedAt time.Time    `json:"startedAt"`
	TimedOut  bool         `json:"timedOut,omitempty"`
}

// NewRound starts a round in the Playing stage.
func NewRound(id int, czar string, players []string, call Call, now time.Time) *Round {
	return &Round{
		ID:        id,
		Stage:     StagePlaying,
		Czar:      czar,
		Players:   append([]string(nil), players...),
		Call:      call,
		StartedAt: now,
	}
}

// WaitingFor lists the users whose action would move the round on, in roster
// order. It is nil when the round is ready to advance.
func (r *Round) WaitingFor() []string {
	switch r.Stage {
	case StagePlaying:
		var waiting []string
		for _, id := range r.Players {
			if r.playIndex(id) < 0 {
				waiting = append(waiting, id)
			}
		}
		return waiting
	case StageRevealing:
		for _, p := range r.Plays {
			if !p.Revealed {
				return []string{r.Czar}
			}
		}
		return nil
	case StageJudging:
		return []string{r.Czar}
	default:
		return nil
	}
}

// IsWaitingFor reports whether userID is in WaitingFor.
func (r *Round) IsWaitingFor(userID string) bool {
	for _, id := range r.WaitingFor() {
		if id == userID {
			return true
		}
	}
	return false
}

// HasPlayer reports whether userID is expected to play this round.
func (r *Round) HasPlayer(userID string) bool {
	for _, id := range r.Players {
		if id == userID {
			return true
		}
	}
	return false
}

// PlayBy returns the play submitted by userID.
func (r *Round) PlayBy(userID string) (StoredPlay, bool) {
	if i := r.playIndex(userID); i >= 0 {
		return r.Plays[i], true
	}
	return StoredPlay{}, false
}

// PlayByID returns the play with the given id.
func (r *Round) PlayByID(playID string) (StoredPlay, bool) {
	if i := r.playIDIndex(playID); i >= 0 {
		return r.Plays[i], true
	}
	return StoredPlay{}, false
}

// Submit records a play for userID during Playing.
func (r *Round) Submit(userID string, play Play) (StoredPlay, error) {
	if r.Stage != StagePlaying {
		return StoredPlay{}, InvalidAction("Plays can only be submitted while the round is in the playing stage.")
	}
	if !r.HasPlayer(userID) {
		return StoredPlay{}, InvalidAction("You are not playing in this round.")
	}
	if r.playIndex(userID) >= 0 {
		return StoredPlay{}, InvalidAction("You have already submitted a play this round.")
	}
	if len(play) != r.Call.SlotCount() {
		return StoredPlay{}, InvalidAction("The play must contain exactly %d cards.", r.Call.SlotCount())
	}
	seen := make(map[string]struct{}, len(play))
	for _, card := range play {
		if _, dup := seen[card.ID]; dup {
			return StoredPlay{}, InvalidAction("The same card cannot be played twice.")
		}
		seen[card.ID] = struct{}{}
	}

	stored := StoredPlay{
		ID:       NewPlayID(),
		Play:     append(Play(nil), play...),
		PlayedBy: userID,
	}
	r.Plays = append(r.Plays, stored)
	return stored, nil
}

// TakeBack withdraws the play userID submitted during Playing.
func (r *Round) TakeBack(userID string) (StoredPlay, error) {
	if r.Stage != StagePlaying {
		return StoredPlay{}, InvalidAction("Plays can only be taken back while the round is in the playing stage.")
	}
	i := r.playIndex(userID)
	if i < 0 {
		return StoredPlay{}, InvalidAction("You have not submitted a play this round.")
	}
	play := r.Plays[i]
	r.Plays = append(r.Plays[:i:i], r.Plays[i+1:]...)
	return play, nil
}

// RemovePlayer drops userID from the roster when they have not played yet.
// It reports whether the roster changed.
func (r *Round) RemovePlayer(userID string) bool {
	if r.playIndex(userID) >= 0 {
		return false
	}
	for i, id := range r.Players {
		if id == userID {
			r.Players = append(r.Players[:i:i], r.Players[i+1:]...)
			return true
		}
	}
	return false
}

// StartRevealing moves a finished Playing round into Revealing. Plays are
// shuffled so their order does not give away who played them.
func (r *Round) StartRevealing(rng *rand.Rand, now time.Time) (*Round, error) {
	if r.Stage != StagePlaying {
		return nil, InvalidAction("The round is not in the playing stage.")
	}
	if r.WaitingFor() != nil {
		return nil, InvalidAction("Not every player has submitted a play yet.")
	}
	next := r.clone()
	next.Stage = StageRevealing
	next.StartedAt = now
	next.TimedOut = false
	shufflePlays(rng, next.Plays)
	for i := range next.Plays {
		next.Plays[i].Revealed = false
	}
	return next, nil
}

// StartJudging moves a round into Judging, either straight from Playing when
// revealing is disabled or from a fully revealed Revealing round.
func (r *Round) StartJudging(rng *rand.Rand, now time.Time) (*Round, error) {
	switch r.Stage {
	case StagePlaying, StageRevealing:
	default:
		return nil, InvalidAction("The round cannot move to judging from the %s stage.", r.Stage)
	}
	if r.WaitingFor() != nil {
		if r.Stage == StagePlaying {
			return nil, InvalidAction("Not every player has submitted a play yet.")
		}
		return nil, InvalidAction("Every play must be revealed before judging.")
	}
	next := r.clone()
	if r.Stage == StagePlaying {
		shufflePlays(rng, next.Plays)
		for i := range next.Plays {
			next.Plays[i].Revealed = true
		}
	}
	next.Stage = StageJudging
	next.StartedAt = now
	next.TimedOut = false
	return next, nil
}

// Reveal flips one play face up during Revealing. Revealing a play twice is a no-op.
func (r *Round) Reveal(playID string) (StoredPlay, bool, error) {
	if r.Stage != StageRevealing {
		return StoredPlay{}, false, InvalidAction("Plays can only be revealed during the revealing stage.")
	}
	i := r.playIDIndex(playID)
	if i < 0 {
		return StoredPlay{}, false, InvalidAction("There is no such play in this round.")
	}
	if r.Plays[i].Revealed {
		return r.Plays[i], false, nil
	}
	r.Plays[i].Revealed = true
	return r.Plays[i], true, nil
}

// Complete picks the winning play during Judging and returns the finished round.
func (r *Round) Complete(playID string, now time.Time) (*Round, error) {
	if r.Stage != StageJudging {
		return nil, InvalidAction("A winner can only be picked during the judging stage.")
	}
	i := r.playIDIndex(playID)
	if i < 0 {
		return nil, InvalidAction("There is no such play in this round.")
	}
	next := r.clone()
	next.Stage = StageComplete
	next.Winner = r.Plays[i].PlayedBy
	next.StartedAt = now
	next.TimedOut = false
	return next, nil
}

// Like records userID liking a play. Players cannot like their own play and
// repeated likes are ignored.
func (r *Round) Like(userID, playID string) (bool, error) {
	if r.Stage == StagePlaying {
		return false, InvalidAction("Plays cannot be liked before they are revealed.")
	}
	if r.Stage == StageComplete {
		return false, InvalidAction("The round is already over.")
	}
	i := r.playIDIndex(playID)
	if i < 0 {
		return false, InvalidAction("There is no such play in this round.")
	}
	play := &r.Plays[i]
	if !play.Revealed {
		return false, InvalidAction("Plays cannot be liked before they are revealed.")
	}
	if play.PlayedBy == userID {
		return false, InvalidAction("You cannot like your own play.")
	}
	if play.likedBy(userID) {
		return false, nil
	}
	play.Likes = append(play.Likes, userID)
	return true, nil
}

// PlayedCards is every response currently in play.
func (r *Round) PlayedCards() []Response {
	var cards []Response
	for _, p := range r.Plays {
		cards = append(cards, p.Play...)
	}
	return cards
}

func (r *Round) playIndex(userID string) int {
	for i, p := range r.Plays {
		if p.PlayedBy == userID {
			return i
		}
	}
	return -1
}

func (r *Round) playIDIndex(playID string) int {
	for i, p := range r.Plays {
		if p.ID == playID {
			return i
		}
	}
	return -1
}

func (r *Round) clone() *Round {
	next := *r
	next.Players = append([]string(nil), r.Players...)
	next.Plays = make([]StoredPlay, len(r.Plays))
	for i, p := range r.Plays {
		next.Plays[i] = p.clone()
	}
	return &next
}

func shufflePlays(rng *rand.Rand, plays []StoredPlay) {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	rng.Shuffle(len(plays), func(i, j int) { plays[i], plays[j] = plays[j], plays[i] })
}
