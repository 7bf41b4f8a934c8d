package bot

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"fillblank/internal/domain"
)

func call(slots int, transform domain.Transform) domain.Call {
	line := []domain.Part{domain.TextPart("Because ")}
	for i := 0; i < slots; i++ {
		line = append(line, domain.SlotPart(transform))
	}
	return domain.Call{ID: "call", Parts: [][]domain.Part{line}}
}

func hand(texts ...string) []domain.Response {
	out := make([]domain.Response, len(texts))
	for i, text := range texts {
		out[i] = domain.Response{ID: fmt.Sprintf("r%d", i), Source: domain.Source{Kind: domain.SourceBuiltIn}, Text: text}
	}
	return out
}

func TestFirstBrainPlaysFirstPrintedCards(t *testing.T) {
	h := append([]domain.Response{domain.NewBlankResponse()}, hand("one", "two", "three")...)

	play, err := FirstBrain{}.ChoosePlay(call(2, domain.TransformNone), h)
	if err != nil {
		t.Fatalf("ChoosePlay error: %v", err)
	}
	if len(play) != 2 || play[0].Text != "one" || play[1].Text != "two" {
		t.Fatalf("play = %+v, want one, two", play)
	}
}

func TestBrainsWriteOnForcedBlanks(t *testing.T) {
	h := []domain.Response{domain.NewBlankResponse()}
	brains := map[string]Brain{
		"first":  FirstBrain{},
		"random": NewRandomBrain(rand.New(rand.NewSource(1))),
		"smart":  NewSmartBrain(),
	}
	for name, b := range brains {
		t.Run(name, func(t *testing.T) {
			play, err := b.ChoosePlay(call(1, domain.TransformNone), h)
			if err != nil {
				t.Fatalf("ChoosePlay error: %v", err)
			}
			if play[0].IsBlank() || play[0].Text == "" {
				t.Fatalf("blank card played without text: %+v", play[0])
			}
			if play[0].ID != h[0].ID {
				t.Fatalf("played card id = %s, want %s", play[0].ID, h[0].ID)
			}
		})
	}
}

func TestBrainsRejectSmallHands(t *testing.T) {
	brains := []Brain{FirstBrain{}, NewRandomBrain(nil), NewSmartBrain()}
	for _, b := range brains {
		if _, err := b.ChoosePlay(call(3, domain.TransformNone), hand("a", "b")); !errors.Is(err, ErrHandTooSmall) {
			t.Fatalf("%T ChoosePlay error = %v, want ErrHandTooSmall", b, err)
		}
		if _, err := b.ChooseWinner(call(1, domain.TransformNone), nil); !errors.Is(err, ErrNoPlays) {
			t.Fatalf("%T ChooseWinner error = %v, want ErrNoPlays", b, err)
		}
	}
}

func TestRandomBrainIsSeeded(t *testing.T) {
	h := hand("a", "b", "c", "d", "e", "f", "g")
	first, _ := NewRandomBrain(rand.New(rand.NewSource(5))).ChoosePlay(call(3, domain.TransformNone), h)
	second, _ := NewRandomBrain(rand.New(rand.NewSource(5))).ChoosePlay(call(3, domain.TransformNone), h)
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("same seed produced different plays: %v vs %v", first.IDs(), second.IDs())
		}
	}
}

func TestSmartBrainAvoidsBlanks(t *testing.T) {
	h := append([]domain.Response{domain.NewBlankResponse(), domain.NewBlankResponse()}, hand("a reasonably sized card")...)
	play, err := NewSmartBrain().ChoosePlay(call(1, domain.TransformNone), h)
	if err != nil {
		t.Fatalf("ChoosePlay error: %v", err)
	}
	if play[0].IsCustom() {
		t.Fatalf("smart brain played a blank over a printed card")
	}
}

func TestSmartBrainLearnsWinningLength(t *testing.T) {
	b := NewSmartBrain()
	b.Observe(domain.PublicRound{
		Stage:  domain.StageComplete,
		Winner: "u1",
		Plays: []domain.PublicPlay{
			{ID: "p1", PlayedBy: "u1", Play: domain.Play(hand("ab"))},
			{ID: "p2", PlayedBy: "u2", Play: domain.Play(hand("a much longer losing card text"))},
		},
	})
	if avg, ok := b.Memory.AverageWinningLength(); !ok || avg != 2 {
		t.Fatalf("AverageWinningLength() = %v, %v, want 2, true", avg, ok)
	}

	play, err := b.ChoosePlay(call(1, domain.TransformNone), hand("a very long card that rambles on", "ok"))
	if err != nil {
		t.Fatalf("ChoosePlay error: %v", err)
	}
	if play[0].Text != "ok" {
		t.Fatalf("play = %q, want the short card", play[0].Text)
	}
}

func TestSmartBrainJudgesByLikes(t *testing.T) {
	plays := []domain.StoredPlay{
		{ID: "p1", Play: domain.Play(hand("twenty-four characters!!"))},
		{ID: "p2", Play: domain.Play(hand("twenty-four characters!!")), Likes: []string{"a", "b"}},
	}
	id, err := NewSmartBrain().ChooseWinner(call(1, domain.TransformNone), plays)
	if err != nil {
		t.Fatalf("ChooseWinner error: %v", err)
	}
	if id != "p2" {
		t.Fatalf("winner = %s, want p2", id)
	}
}

func TestNewBrain(t *testing.T) {
	for _, s := range []string{"", "random", "first", "smart"} {
		level, err := ParseBotLevel(s)
		if err != nil {
			t.Fatalf("ParseBotLevel(%q) error: %v", s, err)
		}
		if _, err := NewBrain(level, nil); err != nil {
			t.Fatalf("NewBrain(%d) error: %v", level, err)
		}
	}
	if _, err := ParseBotLevel("god"); err == nil {
		t.Fatalf("ParseBotLevel(god) should fail")
	}
}

func TestGetBotIdentityDefaults(t *testing.T) {
	identity := GetBotIdentity(0)
	if identity.UserID == "" || identity.DisplayName == "" {
		t.Fatalf("default identity incomplete: %+v", identity)
	}
	if GetBotIdentity(1).UserID == identity.UserID {
		t.Fatalf("identities should have distinct ids")
	}
}

func TestLoadedIdentities(t *testing.T) {
	setIdentities([]BotIdentity{
		{UserID: "bot-1", DisplayName: "Deep Thought", Difficulty: "first"},
		{Username: "spare"},
	})
	defer setIdentities(nil)

	identity, ok := IdentityFor("bot-1")
	if !ok || identity.Difficulty != "first" {
		t.Fatalf("IdentityFor(bot-1) = %+v, %v", identity, ok)
	}
	if _, ok := IdentityFor("ai-1"); ok {
		t.Fatalf("identities without a user id should not be indexed")
	}
	spare := GetBotIdentity(1)
	if spare.UserID != "ai-1" || spare.DisplayName != "spare" {
		t.Fatalf("GetBotIdentity(1) = %+v", spare)
	}
	if GetBotIdentity(2).UserID != "bot-1" {
		t.Fatalf("identities should wrap around the pool")
	}
}
