package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"fillblank/internal/domain"
	"fillblank/internal/ports/sources"
	"fillblank/internal/ports/store"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

type fakeMatchFinder struct {
	running map[string]string
	queries []string
	created []map[string]interface{}
	err     error
}

func (f *fakeMatchFinder) MatchList(ctx context.Context, limit int, authoritative bool, label string, minSize, maxSize *int, query string) ([]*api.Match, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.queries = append(f.queries, query)
	for code, id := range f.running {
		if query == "+label.code:"+code {
			return []*api.Match{{MatchId: id}}, nil
		}
	}
	return nil, nil
}

func (f *fakeMatchFinder) MatchCreate(ctx context.Context, module string, params map[string]interface{}) (string, error) {
	if module != MatchNameFillBlank {
		return "", errors.New("unknown module " + module)
	}
	f.created = append(f.created, params)
	return "match-new", nil
}

func newTestRPCs(t *testing.T) (*lobbyRPCs, *store.Memory) {
	t.Helper()
	decks, err := sources.NewResolver("")
	if err != nil {
		t.Fatalf("NewResolver error: %v", err)
	}
	s := store.NewMemory()
	return &lobbyRPCs{store: s, decks: decks}, s
}

func decodeLobby(t *testing.T, payload string) LobbyResponse {
	t.Helper()
	var resp LobbyResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	return resp
}

func TestCreateLobbyNew(t *testing.T) {
	r, _ := newTestRPCs(t)
	nk := &fakeMatchFinder{}

	payload := `{"rules":{"handSize":8,"stages":{"playing":{},"judging":{}}},"decks":[{"source":"BuiltIn","id":"mini"}]}`
	out, err := r.createLobby(context.Background(), noopLogger{}, nk, payload)
	if err != nil {
		t.Fatalf("createLobby error: %v", err)
	}
	if resp := decodeLobby(t, out); resp.MatchID != "match-new" || !resp.IsNew {
		t.Fatalf("response = %+v", resp)
	}
	params := nk.created[0]
	var rules domain.Rules
	if err := json.Unmarshal([]byte(params["rules"].(string)), &rules); err != nil || rules.HandSize != 8 {
		t.Fatalf("rules param = %v (%v)", params["rules"], err)
	}
	var decks []domain.Source
	if err := json.Unmarshal([]byte(params["decks"].(string)), &decks); err != nil || len(decks) != 1 || decks[0].ID != "mini" {
		t.Fatalf("decks param = %v (%v)", params["decks"], err)
	}
}

func TestCreateLobbyRejectsBadInput(t *testing.T) {
	r, _ := newTestRPCs(t)
	nk := &fakeMatchFinder{}

	if _, err := r.createLobby(context.Background(), noopLogger{}, nk, "{"); err != errBadPayload {
		t.Fatalf("bad JSON error = %v, want errBadPayload", err)
	}
	_, err := r.createLobby(context.Background(), noopLogger{}, nk, `{"rules":{"handSize":1}}`)
	var rerr *runtime.Error
	if !errors.As(err, &rerr) || rerr.Code != codeInvalidArgument {
		t.Fatalf("bad rules error = %v, want invalid argument", err)
	}
	if len(nk.created) != 0 {
		t.Fatalf("a match was created for bad input")
	}
}

func TestCreateLobbyByCode(t *testing.T) {
	r, s := newTestRPCs(t)
	nk := &fakeMatchFinder{running: map[string]string{"LIVE01": "match-live"}}
	ctx := context.Background()

	out, err := r.createLobby(ctx, noopLogger{}, nk, `{"code":"LIVE01"}`)
	if err != nil {
		t.Fatalf("createLobby error: %v", err)
	}
	if resp := decodeLobby(t, out); resp.MatchID != "match-live" || resp.IsNew {
		t.Fatalf("running lobby response = %+v", resp)
	}
	if len(nk.created) != 0 {
		t.Fatalf("a running lobby was created twice")
	}

	if _, err := r.createLobby(ctx, noopLogger{}, nk, `{"code":"GONE01"}`); err != errLobbyMissing {
		t.Fatalf("unknown code error = %v, want errLobbyMissing", err)
	}

	if err := s.Save(ctx, "SAVED1", []byte("{}")); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if _, err := r.createLobby(ctx, noopLogger{}, nk, `{"code":"SAVED1"}`); err != nil {
		t.Fatalf("restore error: %v", err)
	}
	if got := nk.created[0]["code"]; got != "SAVED1" {
		t.Fatalf("restore params code = %v", got)
	}

	nk.err = errors.New("boom")
	if _, err := r.createLobby(ctx, noopLogger{}, nk, `{"code":"LIVE01"}`); err != errInternal {
		t.Fatalf("list failure error = %v, want errInternal", err)
	}
}

func TestFindLobby(t *testing.T) {
	r, _ := newTestRPCs(t)
	nk := &fakeMatchFinder{running: map[string]string{"LIVE01": "match-live"}}
	ctx := context.Background()

	out, err := r.findLobby(ctx, noopLogger{}, nk, `{"code":"LIVE01"}`)
	if err != nil {
		t.Fatalf("findLobby error: %v", err)
	}
	if resp := decodeLobby(t, out); resp.MatchID != "match-live" {
		t.Fatalf("response = %+v", resp)
	}
	if _, err := r.findLobby(ctx, noopLogger{}, nk, `{"code":"NOPE00"}`); err != errLobbyMissing {
		t.Fatalf("missing lobby error = %v", err)
	}
	if _, err := r.findLobby(ctx, noopLogger{}, nk, `{}`); err != errBadPayload {
		t.Fatalf("empty code error = %v", err)
	}
}

func TestListDecks(t *testing.T) {
	r, _ := newTestRPCs(t)
	out, err := r.listDecks(noopLogger{})
	if err != nil {
		t.Fatalf("listDecks error: %v", err)
	}
	var resp struct {
		Decks []sources.DeckInfo `json:"decks"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("unmarshal decks: %v", err)
	}
	if len(resp.Decks) != 2 || resp.Decks[0].Source.ID != "base" {
		t.Fatalf("decks = %+v", resp.Decks)
	}
}

func TestExtractUserIDFromToken(t *testing.T) {
	// header.{"uid":"user-1"}.signature
	token := "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJ1aWQiOiJ1c2VyLTEifQ.c2ln"
	uid, err := extractUserIDFromToken(token)
	if err != nil {
		t.Fatalf("extractUserIDFromToken error: %v", err)
	}
	if uid != "user-1" {
		t.Fatalf("uid = %q, want user-1", uid)
	}
	if _, err := extractUserIDFromToken("not-a-token"); err == nil {
		t.Fatalf("garbage token accepted")
	}
}
