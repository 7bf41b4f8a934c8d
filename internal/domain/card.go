package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// SourceKind identifies where a card came from.
type SourceKind string

const (
	// SourceCustom marks cards created in-game, such as blank "write your own" responses.
	SourceCustom SourceKind = "Custom"
	// SourceJSONAgainstHumanity marks cards loaded from a JSON Against Humanity file.
	SourceJSONAgainstHumanity SourceKind = "JsonAgainstHumanity"
	// SourceBuiltIn marks cards bundled with the server.
	SourceBuiltIn SourceKind = "BuiltIn"
)

// Source references a card library. It doubles as the key the source resolver loads by.
type Source struct {
	Kind SourceKind `json:"source"`
	ID   string     `json:"id,omitempty"`
}

// Transform is applied to the text placed into a slot.
type Transform string

const (
	TransformNone       Transform = ""
	TransformCapitalize Transform = "Capitalize"
	TransformUpperCase  Transform = "UpperCase"
)

// Slot is a blank in a call.
type Slot struct {
	Transform Transform `json:"transform,omitempty"`
}

// Part is one segment of a call line: either literal text or a slot.
type Part struct {
	Text string `json:"text,omitempty"`
	Slot *Slot  `json:"slot,omitempty"`
}

// TextPart returns a literal segment.
func TextPart(text string) Part {
	return Part{Text: text}
}

// SlotPart returns a slot segment with the given transform.
func SlotPart(transform Transform) Part {
	return Part{Slot: &Slot{Transform: transform}}
}

// IsSlot reports whether the part is a blank.
func (p Part) IsSlot() bool {
	return p.Slot != nil
}

// Call is a prompt card. Parts holds one entry per line.
type Call struct {
	ID     string   `json:"id"`
	Source Source   `json:"source"`
	Parts  [][]Part `json:"parts"`
}

// CardID implements Card.
func (c Call) CardID() string { return c.ID }

// SlotCount is the number of slots across all lines.
func (c Call) SlotCount() int {
	count := 0
	for _, line := range c.Parts {
		for _, part := range line {
			if part.IsSlot() {
				count++
			}
		}
	}
	return count
}

// Fill renders the call with the given responses placed into its slots in order.
// Slots without a response render as an underscore run.
func (c Call) Fill(responses []Response) string {
	next := 0
	lines := make([]string, 0, len(c.Parts))
	for _, line := range c.Parts {
		var b strings.Builder
		for _, part := range line {
			if !part.IsSlot() {
				b.WriteString(part.Text)
				continue
			}
			if next >= len(responses) {
				b.WriteString("____")
				continue
			}
			b.WriteString(part.Slot.Transform.Apply(responses[next].Text))
			next++
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

// Apply transforms text placed into a slot.
func (t Transform) Apply(text string) string {
	switch t {
	case TransformUpperCase:
		return strings.ToUpper(text)
	case TransformCapitalize:
		r, size := utf8.DecodeRuneInString(text)
		if r == utf8.RuneError {
			return text
		}
		return string(unicode.ToUpper(r)) + text[size:]
	default:
		return text
	}
}

// Response is an answer card.
type Response struct {
	ID     string `json:"id"`
	Source Source `json:"source"`
	Text   string `json:"text"`
}

// CardID implements Card.
func (r Response) CardID() string { return r.ID }

// IsBlank reports whether this is an unwritten "write your own" card.
func (r Response) IsBlank() bool {
	return r.Source.Kind == SourceCustom && r.Text == ""
}

// IsCustom reports whether the card was created in-game, written or not.
func (r Response) IsCustom() bool {
	return r.Source.Kind == SourceCustom
}

// Written returns a copy of a custom card carrying the player's text.
func (r Response) Written(text string) Response {
	r.Text = text
	return r
}

// Erased returns custom cards to their blank state so they can be recycled.
func (r Response) Erased() Response {
	if r.IsCustom() {
		r.Text = ""
	}
	return r
}

// NewCardID returns a fresh random card id.
func NewCardID() string {
	return uuid.NewString()
}

// NewBlankResponse returns a fresh "write your own" card.
func NewBlankResponse() Response {
	return Response{ID: NewCardID(), Source: Source{Kind: SourceCustom}}
}

// Templates is the card content one source contributes to a game.
type Templates struct {
	Calls     []Call     `json:"calls"`
	Responses []Response `json:"responses"`
}

// Summary describes a resolved source for display.
type Summary struct {
	Name      string `json:"name"`
	Calls     int    `json:"calls"`
	Responses int    `json:"responses"`
}
