package editor

import (
	"context"
	"fmt"
	"html"
	"strings"

	"winamp-block/internal/database"
)

// SaveBlock renders the saved markup of every audio item and of the player
// block itself. Items saved this way load as Persisted afterwards.
func (s *Service) SaveBlock(ctx context.Context, blockID string) (*database.Block, error) {
	bs := s.block(blockID)
	bs.mu.Lock()
	defer bs.mu.Unlock()

	pl, b, err := s.load(ctx, blockID)
	if err != nil {
		return nil, err
	}

	var inner strings.Builder
	for _, item := range pl {
		markup := renderAudio(item.URL, item.ID)
		if err := s.store.SetOriginalContent(ctx, item.ClientID, markup); err != nil {
			return nil, fmt.Errorf("save audio %s: %w", item.ClientID, err)
		}
		inner.WriteString(markup)
	}

	outer := renderPlayer(b.Attributes.String(AttrCurrentSkin), inner.String())
	if err := s.store.SetOriginalContent(ctx, blockID, outer); err != nil {
		return nil, fmt.Errorf("save player %s: %w", blockID, err)
	}
	s.log.Info("Saved block %s with %d tracks", blockID, len(pl))

	return s.store.GetBlock(ctx, blockID)
}

func renderAudio(src, id string) string {
	class := "wp-block-audio"
	if id != "" {
		class += " wp-audio-" + html.EscapeString(id)
	}
	return fmt.Sprintf(`<figure class="%s"><audio controls src="%s"></audio></figure>`, class, html.EscapeString(src))
}

func renderPlayer(skin, inner string) string {
	return fmt.Sprintf(`<div class="wp-block-winamp-block-player" data-skin="%s">%s</div>`, html.EscapeString(skin), inner)
}
