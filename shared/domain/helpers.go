package domain

import (
	"fmt"
	"time"
)

// for debug
func (c *Card) String() string {
	return fmt.Sprintf("[id:%s, column:%s, text:%q, votes:%d, order:%.2f, author:%s, created:%s, merged_from:%d]",
		c.Id, c.Column, c.Text, c.Votes, c.Order, c.AuthorName, c.CreatedAt.Format(time.StampMilli), len(c.MergedFrom))
}

func (b *Board) String() string {
	s := fmt.Sprintf("[id:%s, name:%s, status:%s, columns:%d, cards:[", b.Id, b.Name, b.Status, len(b.Columns))
	for i, card := range b.Cards {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%v", card)
	}
	return s + "]]"
}
