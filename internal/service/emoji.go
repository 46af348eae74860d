package service

import (
	"fmt"

	"github.com/forPelevin/gomoji"

	"github.com/driftchat/chat-service/pkg/apperrors"
)

// validateReaction accepts exactly one emoji and nothing else.
func validateReaction(reaction string) error {
	found := gomoji.CollectAll(reaction)
	if len(found) != 1 || found[0].Character != reaction {
		return fmt.Errorf("%w: reaction must be a single emoji", apperrors.ErrBadRequest)
	}
	return nil
}
