package bot

import (
	"errors"
	"fmt"

	"fillblank/internal/domain"
)

var (
	ErrHandTooSmall = errors.New("hand has fewer cards than the call has slots")
	ErrNoPlays      = errors.New("no plays to judge")
)

// blankText is what computer players write on blank cards.
const blankText = "something I can't say on a family server"

// pickInOrder builds a play from hand indexes, writing on any blanks.
func pickInOrder(hand []domain.Response, order []int, slots int) (domain.Play, error) {
	if slots > len(hand) || slots > len(order) {
		return nil, fmt.Errorf("%w: need %d, hold %d", ErrHandTooSmall, slots, len(hand))
	}
	play := make(domain.Play, 0, slots)
	for _, idx := range order[:slots] {
		card := hand[idx]
		if card.IsBlank() {
			card = card.Written(blankText)
		}
		play = append(play, card)
	}
	return play, nil
}

// preferPrinted orders hand indexes so printed cards come before blanks,
// keeping the relative order otherwise.
func preferPrinted(hand []domain.Response, order []int) []int {
	out := make([]int, 0, len(order))
	var blanks []int
	for _, idx := range order {
		if hand[idx].IsBlank() {
			blanks = append(blanks, idx)
			continue
		}
		out = append(out, idx)
	}
	return append(out, blanks...)
}
