package sources

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"fillblank/internal/domain"
)

// rawDecks is the JSON Against Humanity "compact" export.
type rawDecks struct {
	Cards struct {
		White []rawResponse `json:"white"`
		Black []rawCall     `json:"black"`
	} `json:"cards"`
	Decks map[string]rawDeck `json:"decks"`
}

type rawResponse struct {
	Text string `json:"text"`
}

type rawCall struct {
	Text string `json:"text"`
	Pick int    `json:"pick"`
}

type rawDeck struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Official    bool            `json:"official"`
	Icon        json.RawMessage `json:"icon,omitempty"`
	White       []int           `json:"white"`
	Black       []int           `json:"black"`
}

// DeckInfo is a deck a lobby can pick.
type DeckInfo struct {
	Source      domain.Source `json:"source"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Official    bool          `json:"official,omitempty"`
}

func parseDecks(data []byte) (*rawDecks, error) {
	var raw rawDecks
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decks: %w", err)
	}
	for id, deck := range raw.Decks {
		for _, i := range deck.White {
			if i < 0 || i >= len(raw.Cards.White) {
				return nil, fmt.Errorf("deck %s references missing response %d", id, i)
			}
		}
		for _, i := range deck.Black {
			if i < 0 || i >= len(raw.Cards.Black) {
				return nil, fmt.Errorf("deck %s references missing call %d", id, i)
			}
		}
	}
	return &raw, nil
}

// templates builds the cards of one deck, stamping them with source.
func (raw *rawDecks) templates(id string, source domain.Source) (domain.Templates, domain.Summary, bool) {
	deck, ok := raw.Decks[id]
	if !ok {
		return domain.Templates{}, domain.Summary{}, false
	}
	t := domain.Templates{
		Calls:     make([]domain.Call, 0, len(deck.Black)),
		Responses: make([]domain.Response, 0, len(deck.White)),
	}
	for _, i := range deck.Black {
		t.Calls = append(t.Calls, toCall(raw.Cards.Black[i], source))
	}
	for _, i := range deck.White {
		t.Responses = append(t.Responses, toResponse(raw.Cards.White[i], source))
	}
	return t, domain.Summary{Name: deck.Name, Calls: len(t.Calls), Responses: len(t.Responses)}, true
}

// infos lists the decks official first, then third party ("[$]"), then
// community ("[C]"), by id within each group.
func (raw *rawDecks) infos(kind domain.SourceKind) []DeckInfo {
	infos := make([]DeckInfo, 0, len(raw.Decks))
	for id, deck := range raw.Decks {
		infos = append(infos, DeckInfo{
			Source:      domain.Source{Kind: kind, ID: id},
			Name:        deck.Name,
			Description: deck.Description,
			Official:    deck.Official,
		})
	}
	rank := func(d DeckInfo) int {
		switch {
		case d.Official:
			return 0
		case strings.HasPrefix(d.Name, "[$]"):
			return 1
		case strings.HasPrefix(d.Name, "[C]"):
			return 2
		default:
			return 3
		}
	}
	sort.Slice(infos, func(i, j int) bool {
		if ri, rj := rank(infos[i]), rank(infos[j]); ri != rj {
			return ri < rj
		}
		return infos[i].Source.ID < infos[j].Source.ID
	})
	return infos
}

func toCall(raw rawCall, source domain.Source) domain.Call {
	lines := strings.Split(raw.Text, "\n")
	parts := make([][]domain.Part, 0, len(lines))
	for _, line := range lines {
		parts = append(parts, introduceSlots(line))
	}
	call := domain.Call{ID: domain.NewCardID(), Source: source, Parts: parts}
	for extra := raw.Pick - call.SlotCount(); extra > 0; extra-- {
		call.Parts = append(call.Parts, []domain.Part{domain.SlotPart(domain.TransformNone)})
	}
	return call
}

// introduceSlots turns each "_" into a slot. A slot at the start of a line or
// after the end of a sentence capitalizes what goes into it.
func introduceSlots(line string) []domain.Part {
	pieces := strings.Split(line, "_")
	parts := make([]domain.Part, 0, 2*len(pieces))
	for i, piece := range pieces {
		if i > 0 {
			transform := domain.TransformNone
			if endsSentence(pieces[i-1]) {
				transform = domain.TransformCapitalize
			}
			parts = append(parts, domain.SlotPart(transform))
		}
		if piece != "" {
			parts = append(parts, domain.TextPart(piece))
		}
	}
	return parts
}

func endsSentence(text string) bool {
	trimmed := strings.TrimRight(text, " \t")
	if text == "" {
		return true
	}
	if trimmed == "" {
		return false
	}
	switch trimmed[len(trimmed)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}

func toResponse(raw rawResponse, source domain.Source) domain.Response {
	text := strings.ReplaceAll(raw.Text, "\n", "")
	text = strings.TrimSuffix(text, ".")
	return domain.Response{ID: domain.NewCardID(), Source: source, Text: text}
}
