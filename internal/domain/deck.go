package domain

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"
)

// Card is anything a Deck can hold.
type Card interface {
	CardID() string
}

// Deck is a pool of cards of one kind. Every card it was built with is either
// drawable, discarded, or held by a player or round.
type Deck[C Card] struct {
	drawable  []C
	discarded []C
	inDiscard map[string]struct{}
	rng       *rand.Rand
}

// NewDeck builds a shuffled deck from the union of the given card sets.
// Cards sharing an id are only included once.
func NewDeck[C Card](rng *rand.Rand, sets ...[]C) (*Deck[C], error) {
	seen := make(map[string]struct{})
	var cards []C
	for _, set := range sets {
		for _, card := range set {
			if _, dup := seen[card.CardID()]; dup {
				continue
			}
			seen[card.CardID()] = struct{}{}
			cards = append(cards, card)
		}
	}
	if len(cards) == 0 {
		return nil, ErrOutOfCards
	}

	d := &Deck[C]{
		drawable:  cards,
		inDiscard: make(map[string]struct{}),
		rng:       rng,
	}
	d.shuffle(d.drawable)
	return d, nil
}

// SetRand replaces the shuffle source, typically after restoring a snapshot.
func (d *Deck[C]) SetRand(rng *rand.Rand) {
	d.rng = rng
}

// Drawable is the number of cards left before a reshuffle.
func (d *Deck[C]) Drawable() int { return len(d.drawable) }

// Discarded is the number of cards waiting to be reshuffled.
func (d *Deck[C]) Discarded() int { return len(d.discarded) }

// Draw takes n cards from the front of the deck, reshuffling the discard pile
// behind the remaining cards when needed. Nothing changes on failure.
func (d *Deck[C]) Draw(n int) ([]C, error) {
	if n <= 0 {
		return nil, nil
	}
	if n > len(d.drawable)+len(d.discarded) {
		return nil, ErrOutOfCards
	}
	if n > len(d.drawable) {
		d.reshuffle()
	}

	drawn := make([]C, n)
	copy(drawn, d.drawable[:n])
	d.drawable = append([]C(nil), d.drawable[n:]...)
	return drawn, nil
}

// Discard moves cards onto the discard pile. Cards already discarded or
// still drawable are ignored.
func (d *Deck[C]) Discard(cards ...C) {
	var drawable map[string]struct{}
	for _, card := range cards {
		id := card.CardID()
		if _, ok := d.inDiscard[id]; ok {
			continue
		}
		if drawable == nil {
			drawable = make(map[string]struct{}, len(d.drawable))
			for _, c := range d.drawable {
				drawable[c.CardID()] = struct{}{}
			}
		}
		if _, ok := drawable[id]; ok {
			continue
		}
		d.inDiscard[id] = struct{}{}
		d.discarded = append(d.discarded, card)
	}
}

// Replace discards the given cards and draws the same number back.
func (d *Deck[C]) Replace(cards ...C) ([]C, error) {
	d.Discard(cards...)
	return d.Draw(len(cards))
}

func (d *Deck[C]) reshuffle() {
	pile := d.discarded
	d.shuffle(pile)
	d.drawable = append(d.drawable, pile...)
	d.discarded = nil
	d.inDiscard = make(map[string]struct{})
}

func (d *Deck[C]) shuffle(cards []C) {
	if d.rng == nil {
		d.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	d.rng.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })
}

type deckSnapshot[C Card] struct {
	Drawable  []C `json:"drawable"`
	Discarded []C `json:"discarded"`
}

// MarshalJSON stores both piles in order.
func (d *Deck[C]) MarshalJSON() ([]byte, error) {
	return json.Marshal(deckSnapshot[C]{Drawable: d.drawable, Discarded: d.discarded})
}

// UnmarshalJSON restores both piles, rejecting snapshots that hold a card twice.
func (d *Deck[C]) UnmarshalJSON(data []byte) error {
	var snap deckSnapshot[C]
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(snap.Drawable)+len(snap.Discarded))
	inDiscard := make(map[string]struct{}, len(snap.Discarded))
	for i, pile := range [][]C{snap.Drawable, snap.Discarded} {
		for _, card := range pile {
			if _, dup := seen[card.CardID()]; dup {
				return fmt.Errorf("deck snapshot holds card %s twice", card.CardID())
			}
			seen[card.CardID()] = struct{}{}
			if i == 1 {
				inDiscard[card.CardID()] = struct{}{}
			}
		}
	}
	d.drawable = snap.Drawable
	d.discarded = snap.Discarded
	d.inDiscard = inDiscard
	return nil
}

// Decks holds the two pools a game plays with.
type Decks struct {
	Calls     *Deck[Call]     `json:"calls"`
	Responses *Deck[Response] `json:"responses"`
}

// SetRand points both pools at the same shuffle source.
func (d Decks) SetRand(rng *rand.Rand) {
	if d.Calls != nil {
		d.Calls.SetRand(rng)
	}
	if d.Responses != nil {
		d.Responses.SetRand(rng)
	}
}
