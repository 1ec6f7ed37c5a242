// Package reconciler maintains the ordered, columnar card view for one
// retrospective board. Authoritative state arrives as full snapshots from a
// remote store while local mutations are applied optimistically, so the view
// the UI renders never flickers or regresses during in-flight operations.
package reconciler

import (
	"context"

	"github.com/clear-retro/clearretro/shared/domain"
)

// Store is the remote side the reconciler writes through. Implementations
// must keep vote/reaction toggles commutative under concurrent writers
// (set union/remove, not read-modify-write) and must make MergeCards atomic
// across the two affected cards.
type Store interface {
	CreateCard(ctx context.Context, data domain.CardCreationData, order float64) (*domain.Card, error)
	WriteCard(ctx context.Context, board domain.BoardId, card domain.CardId, patch domain.CardPatch) error
	DeleteCard(ctx context.Context, board domain.BoardId, card domain.CardId) error

	// ToggleVote flips the user's membership in the card's voter set.
	ToggleVote(ctx context.Context, board domain.BoardId, card domain.CardId, user domain.UserId) error
	// ToggleReaction flips the user's membership in the card's reaction set
	// for one emoji.
	ToggleReaction(ctx context.Context, board domain.BoardId, card domain.CardId, emoji domain.Emoji, user domain.UserId) error

	AddReply(ctx context.Context, board domain.BoardId, card domain.CardId, text string, author domain.User) error

	// MergeCards folds source into target: concatenated text, summed votes,
	// per-emoji unioned reactions, concatenated provenance, source deleted.
	MergeCards(ctx context.Context, board domain.BoardId, target, source domain.CardId) error
}
