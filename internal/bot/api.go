package bot

import (
	"fillblank/internal/domain"
)

// Brain is the interface that all computer player strategies must implement.
type Brain interface {
	// ChoosePlay picks call.SlotCount() cards from hand, in slot order.
	// Blank cards in the result must carry written text.
	ChoosePlay(call domain.Call, hand []domain.Response) (domain.Play, error)
	// ChooseWinner picks the id of the winning play when a computer judges.
	ChooseWinner(call domain.Call, plays []domain.StoredPlay) (string, error)
	// Observe is told about every round that completes.
	Observe(round domain.PublicRound)
}
