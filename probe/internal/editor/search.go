package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-rod/rod/lib/proto"
)

// ErrNotArray indicates the registry search response was not array-shaped.
var ErrNotArray = errors.New("editor: search response is not an array")

// Search types term into the inserter search box and waits for the block
// directory's search response, returning the number of matching block
// descriptors. The event subscription is armed before the input so a fast
// response cannot slip past.
func (s *Session) Search(ctx context.Context, term string) (int, error) {
	page := s.tab.Page

	type searchResult struct {
		count int
		err   error
	}
	resCh := make(chan searchResult, 1)

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	wait := page.Context(waitCtx).EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if !strings.Contains(e.Response.URL, searchEndpoint) {
			return false
		}

		body, err := proto.NetworkGetResponseBody{RequestID: e.RequestID}.Call(page)
		if err != nil {
			resCh <- searchResult{err: fmt.Errorf("editor: search response body: %w", err)}
			return true
		}

		var items []json.RawMessage
		if err := json.Unmarshal([]byte(body.Body), &items); err != nil {
			resCh <- searchResult{err: fmt.Errorf("%w: %v", ErrNotArray, err)}
			return true
		}

		resCh <- searchResult{count: len(items)}
		return true
	})
	go wait()

	input, err := page.Context(ctx).Element(selInserterSearch)
	if err != nil {
		return 0, fmt.Errorf("editor: search input: %w", err)
	}
	if err := input.Input(term); err != nil {
		return 0, fmt.Errorf("editor: type search term: %w", err)
	}

	select {
	case r := <-resCh:
		if r.err != nil {
			return 0, r.err
		}
		s.logger.Info("editor: search settled", "term", term, "results", r.count)
		return r.count, nil
	case <-ctx.Done():
		return 0, fmt.Errorf("editor: search %q: %w", term, ctx.Err())
	}
}
