package reconciler

import (
	"context"
	"sort"
	"strings"

	"github.com/clear-retro/clearretro/shared/domain"
	"github.com/clear-retro/clearretro/shared/order"
)

// MergeTargetPrefix distinguishes a card's merge-zone overlay from the card
// itself in drag identifiers: dropping on "merge-<cardId>" merges instead of
// reordering.
const MergeTargetPrefix = "merge-"

// Collision is one geometric hit reported by the drag surface for the
// current pointer position.
type Collision struct {
	Id             string  // card id, column id, or merge-<cardId>
	Intersecting   bool    // pointer directly overlaps the target
	CornerDistance float64 // nearest-corner distance, for the fallback pass
}

// ResolveTarget picks the authoritative drop target out of the collision
// set. Merge zones win outright, then direct pointer intersections, then
// nearest-corner proximity (which is what catches an empty column that has
// nothing under the pointer to intersect).
func ResolveTarget(collisions []Collision) (string, bool) {
	for _, c := range collisions {
		if strings.HasPrefix(c.Id, MergeTargetPrefix) {
			return c.Id, true
		}
	}
	for _, c := range collisions {
		if c.Intersecting {
			return c.Id, true
		}
	}
	best, found := "", false
	bestDist := 0.0
	for _, c := range collisions {
		if !found || c.CornerDistance < bestDist {
			best, bestDist, found = c.Id, c.CornerDistance, true
		}
	}
	return best, found
}

// DragStart records the active card.
func (r *Reconciler) DragStart(active domain.CardId) {
	r.mu.Lock()
	r.dragging = active
	r.mu.Unlock()
}

// DragOver gives the same-frame visual preview while hovering: if the
// hovered target sits in a different column, the dragged card is reassigned
// there immediately. No rank is computed yet; the preview is allowed to be
// approximate and DragEnd settles the real position.
func (r *Reconciler) DragOver(active domain.CardId, over string) {
	if over == "" || strings.HasPrefix(over, MergeTargetPrefix) {
		return
	}
	r.mu.Lock()
	card := r.findLocked(active)
	if card == nil {
		r.mu.Unlock()
		return
	}
	col := r.hoverColumnLocked(over)
	if col == "" || col == card.Column {
		r.mu.Unlock()
		return
	}
	card.Column = col
	r.mu.Unlock()
	r.notify()
}

// DragEnd settles the drag: it resolves the final column and fractional
// rank from what the card was dropped on, commits it optimistically and
// writes it through. An unresolvable target reverts the view to the last
// snapshot-derived state.
func (r *Reconciler) DragEnd(ctx context.Context, active domain.CardId, over string) error {
	r.mu.Lock()
	r.dragging = ""
	card := r.findLocked(active)
	if card == nil {
		r.mu.Unlock()
		return nil
	}

	if over == "" {
		r.rebuildLocked()
		r.mu.Unlock()
		r.notify()
		return nil
	}

	if strings.HasPrefix(over, MergeTargetPrefix) {
		target := strings.TrimPrefix(over, MergeTargetPrefix)
		r.mu.Unlock()
		if target == active {
			return nil
		}
		return r.MergeCards(ctx, target, active)
	}

	var destCol domain.ColumnId
	var rank float64
	if r.meta.Column(over) != nil {
		// Dropped on the column surface itself: land last.
		destCol = over
		rank = r.appendRankLocked(destCol, active)
	} else if overCard := r.findLocked(over); overCard != nil && overCard.Id != active {
		// Dropped on a card: insert at its display position. The active
		// card is excluded from the neighbor scan because the drag-over
		// preview may have already moved it into this column.
		destCol = overCard.Column
		ranks, idx := r.columnRanksLocked(destCol, active, over)
		rank = order.ForPosition(ranks, idx)
	} else {
		r.rebuildLocked()
		r.mu.Unlock()
		r.notify()
		return nil
	}

	card.Column = destCol
	card.Order = rank
	r.sortLocked()
	r.mu.Unlock()
	r.notify()

	patch := domain.CardPatch{Column: &destCol, Order: &rank}
	if err := r.store.WriteCard(ctx, r.meta.Id, active, patch); err != nil {
		r.mu.Lock()
		r.rebuildLocked()
		r.mu.Unlock()
		r.notify()
		r.errorf("move failed: %v", err)
		return err
	}
	return nil
}

// hoverColumnLocked maps a hover target to a column id.
func (r *Reconciler) hoverColumnLocked(over string) domain.ColumnId {
	if r.meta.Column(over) != nil {
		return over
	}
	if c := r.findLocked(over); c != nil {
		return c.Column
	}
	return ""
}

// columnRanksLocked returns the ranks of a column's cards in display order
// with the active card excluded, plus the insertion index corresponding to
// the over card's position.
func (r *Reconciler) columnRanksLocked(col domain.ColumnId, active, over domain.CardId) ([]float64, int) {
	type slot struct {
		id   domain.CardId
		rank float64
	}
	var slots []slot
	for _, c := range r.view {
		if c.Column != col || c.Id == active {
			continue
		}
		slots = append(slots, slot{c.Id, c.Order})
	}
	sort.SliceStable(slots, func(i, j int) bool { return slots[i].rank < slots[j].rank })

	ranks := make([]float64, len(slots))
	idx := len(slots)
	for i, s := range slots {
		ranks[i] = s.rank
		if s.id == over {
			idx = i
		}
	}
	return ranks, idx
}
