package domain

import "testing"

func TestCallSlotCountAndFill(t *testing.T) {
	call := Call{
		ID: "c",
		Parts: [][]Part{
			{SlotPart(TransformCapitalize), TextPart(" walks into a bar.")},
			{TextPart("The bartender says: "), SlotPart(TransformUpperCase), TextPart("!")},
		},
	}
	if got := call.SlotCount(); got != 2 {
		t.Fatalf("SlotCount() = %d, want 2", got)
	}

	got := call.Fill([]Response{{Text: "a horse"}, {Text: "why the long face"}})
	want := "A horse walks into a bar.\nThe bartender says: WHY THE LONG FACE!"
	if got != want {
		t.Fatalf("Fill() = %q, want %q", got, want)
	}

	if got := call.Fill(nil); got != "____ walks into a bar.\nThe bartender says: ____!" {
		t.Fatalf("Fill(nil) = %q", got)
	}
}

func TestBlankResponses(t *testing.T) {
	blank := NewBlankResponse()
	if !blank.IsBlank() {
		t.Fatalf("new blank card is not blank")
	}
	written := blank.Written("my joke")
	if written.IsBlank() || written.ID != blank.ID {
		t.Fatalf("written card = %+v", written)
	}
	if !written.Erased().IsBlank() {
		t.Fatalf("erased card should be blank again")
	}

	normal := Response{ID: "r", Source: Source{Kind: SourceBuiltIn}, Text: "text"}
	if normal.Erased().Text != "text" {
		t.Fatalf("erasing a printed card changed its text")
	}
}

func TestPlayerTake(t *testing.T) {
	p := NewPlayer(responses("h", 4))
	taken, err := p.Take([]string{"h-2", "h-0"})
	if err != nil {
		t.Fatalf("Take error: %v", err)
	}
	if taken[0].ID != "h-2" || taken[1].ID != "h-0" || len(p.Hand) != 2 {
		t.Fatalf("taken = %v, hand = %v", ids(taken), ids(p.Hand))
	}
	if _, err := p.Take([]string{"h-1", "h-0"}); err == nil {
		t.Fatalf("taking a card not held should fail")
	}
	if len(p.Hand) != 2 {
		t.Fatalf("failed Take changed the hand: %v", ids(p.Hand))
	}
}
