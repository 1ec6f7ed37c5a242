package reconciler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/clear-retro/clearretro/shared/domain"
	"github.com/clear-retro/clearretro/shared/errors"
	"github.com/clear-retro/clearretro/shared/order"
)

// MergeSeparator aliases the shared constant for callers of this package.
const MergeSeparator = domain.MergeSeparator

// DefaultMergeGrace is how long after a merge settles we keep suppressing
// snapshots, so the post-merge snapshot usually arrives before suppression
// lifts and the UI never snaps back to the un-merged state.
const DefaultMergeGrace = 1500 * time.Millisecond

// Reconciler owns the local view of one board's cards. All methods are safe
// for concurrent use; mutating operations apply their optimistic change
// before the store round trip and roll back (or rebuild) on failure.
type Reconciler struct {
	mu    sync.Mutex
	store Store
	user  func() domain.User
	meta  domain.BoardMetadata

	remote []*domain.Card // last snapshot from the store, unordered
	view   []*domain.Card // what the UI renders, sorted

	// pendingCritical suppresses snapshot application during a merge round
	// trip so a stale snapshot cannot un-merge the view. Deliberately scoped
	// to merges only: broader suppression would hide other participants'
	// edits.
	pendingCritical bool
	stashed         []*domain.Card
	hasStashed      bool

	mergeGrace time.Duration
	now        func() time.Time

	onChange         func(view []*domain.Card)
	onError          func(msg string)
	onComposeRestore func(column domain.ColumnId, text string)

	dragging domain.CardId
}

type Option func(*Reconciler)

// WithMergeGrace overrides the suppression grace period after a merge
// settles. Tests use a zero grace to lift suppression synchronously.
func WithMergeGrace(d time.Duration) Option {
	return func(r *Reconciler) { r.mergeGrace = d }
}

// WithOnChange registers the render callback. Invoked without the internal
// lock held; the slice is owned by the reconciler and must not be mutated.
func WithOnChange(fn func([]*domain.Card)) Option {
	return func(r *Reconciler) { r.onChange = fn }
}

// WithOnError registers the user-facing message callback.
func WithOnError(fn func(string)) Option {
	return func(r *Reconciler) { r.onError = fn }
}

// WithOnComposeRestore registers the callback that puts a failed card's text
// back into the compose field.
func WithOnComposeRestore(fn func(domain.ColumnId, string)) Option {
	return func(r *Reconciler) { r.onComposeRestore = fn }
}

// New builds a reconciler for one board. user is an identity accessor rather
// than a full auth object; it is consulted on every attributed operation so
// a re-join with a fresh identity takes effect immediately.
func New(store Store, user func() domain.User, meta domain.BoardMetadata, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:      store,
		user:       user,
		meta:       meta,
		mergeGrace: DefaultMergeGrace,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ApplySnapshot ingests the full authoritative card list. During a pending
// merge the snapshot is stashed instead of applied; the latest stashed
// snapshot is applied when suppression lifts.
func (r *Reconciler) ApplySnapshot(cards []*domain.Card) {
	r.mu.Lock()
	if r.pendingCritical {
		r.stashed = cards
		r.hasStashed = true
		r.mu.Unlock()
		return
	}
	r.remote = cards
	r.rebuildLocked()
	r.mu.Unlock()
	r.notify()
}

// ApplyBoardMeta ingests updated board settings (sort mode, vote limit,
// timer). A sort mode change re-derives the view immediately.
func (r *Reconciler) ApplyBoardMeta(meta domain.BoardMetadata) {
	r.mu.Lock()
	r.meta = meta
	r.sortLocked()
	r.mu.Unlock()
	r.notify()
}

// Attach consumes a snapshot stream until ctx is done or the channel closes.
func (r *Reconciler) Attach(ctx context.Context, snapshots <-chan []*domain.Card) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case cards, ok := <-snapshots:
				if !ok {
					return
				}
				r.ApplySnapshot(cards)
			}
		}
	}()
}

// View returns the current render list. Read-only for the caller.
func (r *Reconciler) View() []*domain.Card {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Card, len(r.view))
	copy(out, r.view)
	return out
}

// PendingCritical reports whether snapshot application is suppressed.
func (r *Reconciler) PendingCritical() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pendingCritical
}

// AddCard appends a locally fabricated card so the UI shows it with zero
// latency, then creates it remotely. The temp card is never reconciled
// explicitly: the next snapshot contains the real card and the temp one is
// dropped when the view is rebuilt.
func (r *Reconciler) AddCard(ctx context.Context, column domain.ColumnId, text string, isActionItem bool) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return &errors.ErrorWithStatusCode{Message: "card text is empty", StatusCode: 400}
	}
	if r.meta.Column(column) == nil {
		return errors.New(400, "unknown column %q", column)
	}
	user := r.user()

	r.mu.Lock()
	rank := r.appendRankLocked(column, "")
	temp := &domain.Card{
		Id:           fmt.Sprintf("%s%d", domain.TempCardPrefix, r.now().UnixNano()),
		Board:        r.meta.Id,
		Column:       column,
		Text:         text,
		Order:        rank,
		CreatedAt:    r.now(),
		AuthorId:     user.Id,
		AuthorName:   user.Name,
		IsActionItem: isActionItem,
		Action:       domain.ActionItem{Status: domain.StatusTodo},
		Reactions:    domain.Reactions{},
	}
	r.view = append(r.view, temp)
	r.sortLocked()
	r.mu.Unlock()
	r.notify()

	_, err := r.store.CreateCard(ctx, domain.CardCreationData{
		Board:        r.meta.Id,
		Column:       column,
		Text:         text,
		AuthorId:     user.Id,
		AuthorName:   user.Name,
		IsActionItem: isActionItem,
	}, rank)
	if err != nil {
		r.mu.Lock()
		r.removeLocked(temp.Id)
		r.mu.Unlock()
		r.notify()
		if r.onComposeRestore != nil {
			r.onComposeRestore(column, text)
		}
		r.errorf("could not add card: %v", err)
		return err
	}
	return nil
}

// ErrVoteLimit is surfaced when adding a vote would exceed the board's
// per-user limit. Removing a held vote is always allowed.
var ErrVoteLimit = &errors.ErrorWithStatusCode{Message: "vote limit reached", StatusCode: 409}

// VoteToggle flips the acting user's vote on a card.
func (r *Reconciler) VoteToggle(ctx context.Context, card domain.CardId) error {
	user := r.user()

	r.mu.Lock()
	c := r.findLocked(card)
	if c == nil {
		r.mu.Unlock()
		return errors.New(404, "card %q not found", card)
	}
	adding := !c.HasVote(user.Id)
	if adding && r.meta.VoteLimit > 0 && r.votesUsedLocked(user.Id) >= r.meta.VoteLimit {
		r.mu.Unlock()
		r.errorf("vote limit of %d reached", r.meta.VoteLimit)
		return ErrVoteLimit
	}
	r.flipVoteLocked(c, user.Id)
	r.sortLocked() // vote counts participate in the votes sort mode
	r.mu.Unlock()
	r.notify()

	if err := r.store.ToggleVote(ctx, r.meta.Id, card, user.Id); err != nil {
		r.mu.Lock()
		if c := r.findLocked(card); c != nil {
			r.flipVoteLocked(c, user.Id)
			r.sortLocked()
		}
		r.mu.Unlock()
		r.notify()
		r.errorf("vote failed: %v", err)
		return err
	}
	return nil
}

// ToggleReaction flips the acting user's emoji reaction on a card.
func (r *Reconciler) ToggleReaction(ctx context.Context, card domain.CardId, emoji domain.Emoji) error {
	if emoji == "" {
		return &errors.ErrorWithStatusCode{Message: "emoji is empty", StatusCode: 400}
	}
	user := r.user()

	r.mu.Lock()
	c := r.findLocked(card)
	if c == nil {
		r.mu.Unlock()
		return errors.New(404, "card %q not found", card)
	}
	r.flipReactionLocked(c, emoji, user.Id)
	r.mu.Unlock()
	r.notify()

	if err := r.store.ToggleReaction(ctx, r.meta.Id, card, emoji, user.Id); err != nil {
		r.mu.Lock()
		if c := r.findLocked(card); c != nil {
			r.flipReactionLocked(c, emoji, user.Id)
		}
		r.mu.Unlock()
		r.notify()
		r.errorf("reaction failed: %v", err)
		return err
	}
	return nil
}

// AddReply appends a reply optimistically and persists it.
func (r *Reconciler) AddReply(ctx context.Context, card domain.CardId, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return &errors.ErrorWithStatusCode{Message: "reply text is empty", StatusCode: 400}
	}
	user := r.user()

	r.mu.Lock()
	c := r.findLocked(card)
	if c == nil {
		r.mu.Unlock()
		return errors.New(404, "card %q not found", card)
	}
	tempId := fmt.Sprintf("%s%d", domain.TempCardPrefix, r.now().UnixNano())
	c.Replies = append(c.Replies, domain.Reply{
		Id: tempId, Text: text, AuthorId: user.Id, Author: user.Name, CreatedAt: r.now(),
	})
	r.mu.Unlock()
	r.notify()

	if err := r.store.AddReply(ctx, r.meta.Id, card, text, user); err != nil {
		r.mu.Lock()
		if c := r.findLocked(card); c != nil {
			for i := range c.Replies {
				if c.Replies[i].Id == tempId {
					c.Replies = append(c.Replies[:i], c.Replies[i+1:]...)
					break
				}
			}
		}
		r.mu.Unlock()
		r.notify()
		r.errorf("reply failed: %v", err)
		return err
	}
	return nil
}

// DeleteCard removes a card optimistically; on failure the view is rebuilt
// from the last snapshot.
func (r *Reconciler) DeleteCard(ctx context.Context, card domain.CardId) error {
	r.mu.Lock()
	if r.findLocked(card) == nil {
		r.mu.Unlock()
		return errors.New(404, "card %q not found", card)
	}
	r.removeLocked(card)
	r.mu.Unlock()
	r.notify()

	if err := r.store.DeleteCard(ctx, r.meta.Id, card); err != nil {
		r.mu.Lock()
		r.rebuildLocked()
		r.mu.Unlock()
		r.notify()
		r.errorf("delete failed: %v", err)
		return err
	}
	return nil
}

// MergeCards folds source into target. The optimistic fold is applied at
// once and snapshot application is suppressed until a grace period after
// the store settles, so the in-between snapshots cannot un-merge the UI.
// On store failure the optimistic merge is NOT rolled back; the store and
// view converge on the next applied snapshot.
func (r *Reconciler) MergeCards(ctx context.Context, target, source domain.CardId) error {
	if target == source {
		return &errors.ErrorWithStatusCode{Message: "cannot merge a card into itself", StatusCode: 400}
	}

	r.mu.Lock()
	tgt := r.findLocked(target)
	src := r.findLocked(source)
	if tgt == nil || src == nil {
		r.mu.Unlock()
		return errors.New(404, "merge cards not found")
	}
	if tgt.IsTemp() || src.IsTemp() {
		r.mu.Unlock()
		return &errors.ErrorWithStatusCode{Message: "cards are still saving", StatusCode: 409}
	}
	r.pendingCritical = true
	foldCards(tgt, src)
	r.removeLocked(source)
	r.sortLocked()
	r.mu.Unlock()
	r.notify()

	err := r.store.MergeCards(ctx, r.meta.Id, target, source)
	r.scheduleLift()
	if err != nil {
		r.errorf("merge failed: %v", err)
		return err
	}
	return nil
}

// scheduleLift clears suppression after the grace period and applies the
// snapshot that arrived in the meantime, if any.
func (r *Reconciler) scheduleLift() {
	lift := func() {
		r.mu.Lock()
		r.pendingCritical = false
		if r.hasStashed {
			r.remote = r.stashed
			r.stashed = nil
			r.hasStashed = false
			r.rebuildLocked()
		}
		r.mu.Unlock()
		r.notify()
	}
	if r.mergeGrace <= 0 {
		lift()
		return
	}
	time.AfterFunc(r.mergeGrace, lift)
}

// foldCards applies the optimistic merge effect to the target in place.
func foldCards(tgt, src *domain.Card) {
	tgt.Text = tgt.Text + MergeSeparator + src.Text
	tgt.Votes += src.Votes
	for _, u := range src.VotedBy {
		if !tgt.HasVote(u) {
			tgt.VotedBy = append(tgt.VotedBy, u)
		}
	}
	if tgt.Reactions == nil {
		tgt.Reactions = domain.Reactions{}
	}
	for emoji, users := range src.Reactions {
		for _, u := range users {
			if !containsUser(tgt.Reactions[emoji], u) {
				tgt.Reactions[emoji] = append(tgt.Reactions[emoji], u)
			}
		}
	}
	tgt.Replies = append(tgt.Replies, src.Replies...)
	tgt.MergedFrom = append(tgt.MergedFrom, domain.MergeSource{Id: src.Id, Text: src.Text})
	tgt.MergedFrom = append(tgt.MergedFrom, src.MergedFrom...)
}

// SetActionItem updates action-item state. Transitions are validated here so
// a broken UI cannot skip the todo -> in_progress -> done machine; done ->
// todo reopens. Toggling the flag off hides but keeps the metadata.
func (r *Reconciler) SetActionItem(ctx context.Context, card domain.CardId, patch domain.ActionItem, isActionItem *bool) error {
	r.mu.Lock()
	c := r.findLocked(card)
	if c == nil {
		r.mu.Unlock()
		return errors.New(404, "card %q not found", card)
	}
	if patch.Status != "" && !domain.ValidStatusTransition(c.Action.Status, patch.Status) {
		cur := c.Action.Status
		r.mu.Unlock()
		return errors.New(409, "cannot move action item from %q to %q", cur, patch.Status)
	}
	prevAction, prevFlag := c.Action, c.IsActionItem
	applyActionPatch(c, patch, isActionItem)
	after := c.Action
	flag := c.IsActionItem
	r.mu.Unlock()
	r.notify()

	err := r.store.WriteCard(ctx, r.meta.Id, card, domain.CardPatch{Action: &after, IsActionItem: boolPtrOr(isActionItem, flag)})
	if err != nil {
		r.mu.Lock()
		if c := r.findLocked(card); c != nil {
			c.Action, c.IsActionItem = prevAction, prevFlag
		}
		r.mu.Unlock()
		r.notify()
		r.errorf("action item update failed: %v", err)
		return err
	}
	return nil
}

func applyActionPatch(c *domain.Card, patch domain.ActionItem, isActionItem *bool) {
	if isActionItem != nil {
		c.IsActionItem = *isActionItem
	}
	if patch.Status != "" {
		c.Action.Status = patch.Status
		c.Action.Done = patch.Status == domain.StatusDone
	}
	if patch.AssigneeId != "" {
		c.Action.AssigneeId = patch.AssigneeId
		c.Action.AssigneeName = patch.AssigneeName
	}
	if patch.Priority != "" {
		c.Action.Priority = patch.Priority
	}
	if patch.DueDate != nil {
		c.Action.DueDate = patch.DueDate
	}
}

func boolPtrOr(p *bool, v bool) *bool {
	if p != nil {
		return p
	}
	return &v
}

// --- internal state helpers, caller holds r.mu ---

// rebuildLocked re-derives the view from the last snapshot. Optimistic
// cards that never reached the store disappear here, which is the intended
// reconciliation for temp cards.
func (r *Reconciler) rebuildLocked() {
	r.view = make([]*domain.Card, 0, len(r.remote))
	for _, c := range r.remote {
		r.view = append(r.view, c.Clone())
	}
	r.sortLocked()
}

// sortLocked orders the view: votes descending first when the board sorts
// by votes, then fractional order ascending. Stable so equal cards keep
// their relative position and the UI does not jitter.
func (r *Reconciler) sortLocked() {
	byVotes := r.meta.SortMode == domain.SortByVotes
	sort.SliceStable(r.view, func(i, j int) bool {
		a, b := r.view[i], r.view[j]
		if byVotes && a.Votes != b.Votes {
			return a.Votes > b.Votes
		}
		return a.Order < b.Order
	})
}

func (r *Reconciler) findLocked(id domain.CardId) *domain.Card {
	for _, c := range r.view {
		if c.Id == id {
			return c
		}
	}
	return nil
}

func (r *Reconciler) removeLocked(id domain.CardId) {
	for i, c := range r.view {
		if c.Id == id {
			r.view = append(r.view[:i], r.view[i+1:]...)
			return
		}
	}
}

// appendRankLocked computes the rank landing a card last in a column,
// excluding the card with the given id from consideration.
func (r *Reconciler) appendRankLocked(column domain.ColumnId, exclude domain.CardId) float64 {
	max, found := 0.0, false
	for _, c := range r.view {
		if c.Column != column || c.Id == exclude {
			continue
		}
		if !found || c.Order > max {
			max, found = c.Order, true
		}
	}
	if !found {
		return order.Initial()
	}
	return order.After(max)
}

func (r *Reconciler) votesUsedLocked(user domain.UserId) int {
	n := 0
	for _, c := range r.view {
		if c.HasVote(user) {
			n++
		}
	}
	return n
}

func (r *Reconciler) flipVoteLocked(c *domain.Card, user domain.UserId) {
	if c.HasVote(user) {
		for i, u := range c.VotedBy {
			if u == user {
				c.VotedBy = append(c.VotedBy[:i], c.VotedBy[i+1:]...)
				break
			}
		}
		if c.Votes > 0 {
			c.Votes--
		}
		return
	}
	c.VotedBy = append(c.VotedBy, user)
	c.Votes++
}

func (r *Reconciler) flipReactionLocked(c *domain.Card, emoji domain.Emoji, user domain.UserId) {
	if c.Reactions == nil {
		c.Reactions = domain.Reactions{}
	}
	users := c.Reactions[emoji]
	if containsUser(users, user) {
		next := make([]domain.UserId, 0, len(users)-1)
		for _, u := range users {
			if u != user {
				next = append(next, u)
			}
		}
		if len(next) == 0 {
			delete(c.Reactions, emoji)
		} else {
			c.Reactions[emoji] = next
		}
		return
	}
	c.Reactions[emoji] = append(users, user)
}

func containsUser(users []domain.UserId, user domain.UserId) bool {
	for _, u := range users {
		if u == user {
			return true
		}
	}
	return false
}

func (r *Reconciler) notify() {
	if r.onChange == nil {
		return
	}
	r.onChange(r.View())
}

func (r *Reconciler) errorf(format string, args ...any) {
	if r.onError == nil {
		return
	}
	r.onError(fmt.Sprintf(format, args...))
}
