package editor

import (
	"context"
	"fmt"

	"github.com/go-rod/rod/lib/proto"
)

// TriggerInstall clicks the first downloadable block in the search results,
// which installs the extension and inserts its block.
func (s *Session) TriggerInstall(ctx context.Context) error {
	item, err := s.tab.Page.Context(ctx).Element(selDownloadItem)
	if err != nil {
		return fmt.Errorf("editor: downloadable block item: %w", err)
	}
	if err := item.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("editor: trigger install: %w", err)
	}
	return nil
}

// RegisteredBlocks returns the names of every block type currently
// registered in the editing surface.
func (s *Session) RegisteredBlocks(ctx context.Context) ([]string, error) {
	res, err := s.tab.Page.Context(ctx).Eval(`() => {
		if (!window.wp || !wp.data) {
			return [];
		}
		return wp.data.select('core/blocks').getBlockTypes().map(b => b.name);
	}`)
	if err != nil {
		return nil, fmt.Errorf("editor: registered blocks: %w", err)
	}

	arr := res.Value.Arr()
	names := make([]string, 0, len(arr))
	for _, v := range arr {
		if n := v.Str(); n != "" {
			names = append(names, n)
		}
	}
	return names, nil
}

// InsertedInDocument reports whether a block of the given type is present in
// the document.
func (s *Session) InsertedInDocument(ctx context.Context, blockType string) (bool, error) {
	res, err := s.tab.Page.Context(ctx).Eval(`(t) =>
		document.querySelector('[data-type="' + t + '"]') !== null`, blockType)
	if err != nil {
		return false, fmt.Errorf("editor: check inserted block: %w", err)
	}
	return res.Value.Bool(), nil
}
