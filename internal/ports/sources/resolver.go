// Package sources resolves the card decks a lobby plays with.
package sources

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sync"

	"fillblank/internal/domain"
	"fillblank/internal/ports"
)

// ErrSourceNotFound is returned for decks neither the bundled nor the loaded file has.
var ErrSourceNotFound = errors.New("card source not found")

//go:embed builtin.json
var builtinDecks []byte

type resolved struct {
	templates domain.Templates
	summary   domain.Summary
}

// Resolver serves the decks bundled with the server as SourceBuiltIn and the
// decks of a JSON Against Humanity file as SourceJSONAgainstHumanity. Each
// deck is built once and cached, so card ids stay stable for the process.
type Resolver struct {
	path string

	loadOnce sync.Once
	file     *rawDecks
	loadErr  error

	builtin *rawDecks

	mu    sync.Mutex
	cache map[domain.Source]resolved
}

// NewResolver reads the bundled decks. path names a JSON Against Humanity
// export and may be empty; it is read on first use.
func NewResolver(path string) (*Resolver, error) {
	builtin, err := parseDecks(builtinDecks)
	if err != nil {
		return nil, fmt.Errorf("bundled decks: %w", err)
	}
	return &Resolver{path: path, builtin: builtin, cache: make(map[domain.Source]resolved)}, nil
}

func (r *Resolver) loadFile() (*rawDecks, error) {
	r.loadOnce.Do(func() {
		if r.path == "" {
			return
		}
		data, err := os.ReadFile(r.path)
		if err != nil {
			r.loadErr = fmt.Errorf("failed to read decks file: %w", err)
			return
		}
		r.file, r.loadErr = parseDecks(data)
	})
	return r.file, r.loadErr
}

// Resolve implements ports.SourceResolver.
func (r *Resolver) Resolve(ctx context.Context, source domain.Source) (domain.Templates, domain.Summary, error) {
	if err := ctx.Err(); err != nil {
		return domain.Templates{}, domain.Summary{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if hit, ok := r.cache[source]; ok {
		return hit.templates, hit.summary, nil
	}

	var raw *rawDecks
	switch source.Kind {
	case domain.SourceBuiltIn:
		raw = r.builtin
	case domain.SourceJSONAgainstHumanity:
		file, err := r.loadFile()
		if err != nil {
			return domain.Templates{}, domain.Summary{}, err
		}
		raw = file
	}
	if raw == nil {
		return domain.Templates{}, domain.Summary{}, fmt.Errorf("%w: %s %q", ErrSourceNotFound, source.Kind, source.ID)
	}
	templates, summary, ok := raw.templates(source.ID, source)
	if !ok {
		return domain.Templates{}, domain.Summary{}, fmt.Errorf("%w: %s %q", ErrSourceNotFound, source.Kind, source.ID)
	}
	r.cache[source] = resolved{templates: templates, summary: summary}
	return templates, summary, nil
}

// Decks lists every deck a lobby may choose, bundled ones first.
func (r *Resolver) Decks() ([]DeckInfo, error) {
	decks := r.builtin.infos(domain.SourceBuiltIn)
	file, err := r.loadFile()
	if err != nil {
		return decks, err
	}
	if file != nil {
		decks = append(decks, file.infos(domain.SourceJSONAgainstHumanity)...)
	}
	return decks, nil
}

var _ ports.SourceResolver = (*Resolver)(nil)
