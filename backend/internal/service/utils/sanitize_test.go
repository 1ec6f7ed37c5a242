package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "Ship faster", "Ship faster"},
		{"script stripped", `hi<script>alert(1)</script>`, "hi"},
		{"tags stripped, content kept", "<b>bold</b> idea", "bold idea"},
		{"surrounding space trimmed", "  note  ", "note"},
		{"markdown survives", "- item *emph*", "- item *emph*"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeText(tt.in))
		})
	}
}
