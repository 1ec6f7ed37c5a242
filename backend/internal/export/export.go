// Package export renders a finished board for download, as markdown and as
// sanitized HTML.
package export

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/clear-retro/clearretro/shared/domain"
)

type Renderer struct {
	md goldmark.Markdown
}

func New() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		),
	}
}

// Markdown renders the board as a document: one section per column, cards
// ordered the way the board displays them, action items as task lists.
func (r *Renderer) Markdown(board *domain.Board) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", board.Name)
	if !board.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "_%s_\n\n", board.CreatedAt.Format("January 2, 2006"))
	}

	for _, column := range board.Columns {
		fmt.Fprintf(&b, "## %s\n\n", column.Title)
		cards := columnCards(board, column.Id)
		if len(cards) == 0 {
			b.WriteString("_No cards._\n\n")
			continue
		}
		for _, card := range cards {
			r.writeCard(&b, card)
		}
	}

	return b.String()
}

// HTML converts the markdown rendering and strips anything a card text could
// have smuggled past the input sanitizer.
func (r *Renderer) HTML(board *domain.Board) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(r.Markdown(board)), &buf); err != nil {
		return "", err
	}
	return bluemonday.UGCPolicy().Sanitize(buf.String()), nil
}

func (r *Renderer) writeCard(b *strings.Builder, card *domain.Card) {
	text := strings.ReplaceAll(card.Text, "\n", "\n  ")
	if card.IsActionItem {
		mark := " "
		if card.Action.Status == domain.StatusDone {
			mark = "x"
		}
		fmt.Fprintf(b, "- [%s] %s", mark, text)
		if card.Action.AssigneeName != "" {
			fmt.Fprintf(b, " (assignee: %s)", card.Action.AssigneeName)
		}
		if card.Action.DueDate != nil {
			fmt.Fprintf(b, " (due: %s)", card.Action.DueDate.Format("2006-01-02"))
		}
	} else {
		fmt.Fprintf(b, "- %s", text)
	}
	if card.Votes > 0 {
		fmt.Fprintf(b, " (%d vote", card.Votes)
		if card.Votes != 1 {
			b.WriteString("s")
		}
		b.WriteString(")")
	}
	b.WriteString("\n")
	for _, reply := range card.Replies {
		fmt.Fprintf(b, "  - %s: %s\n", reply.Author, strings.ReplaceAll(reply.Text, "\n", " "))
	}
	b.WriteString("\n")
}

// columnCards returns the column's cards in display order, sorted per the
// board's mode.
func columnCards(board *domain.Board, column domain.ColumnId) []*domain.Card {
	var cards []*domain.Card
	for _, card := range board.Cards {
		if card.Column == column {
			cards = append(cards, card)
		}
	}
	sort.SliceStable(cards, func(i, j int) bool {
		if board.SortMode == domain.SortByVotes && cards[i].Votes != cards[j].Votes {
			return cards[i].Votes > cards[j].Votes
		}
		return cards[i].Order < cards[j].Order
	})
	return cards
}
