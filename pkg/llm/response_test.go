package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCompletion(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", "  SELECT 1  ", "SELECT 1"},
		{"sql fence", "```sql\nSELECT name FROM customers\n```", "SELECT name FROM customers"},
		{"bare fence", "```\nSELECT 1\n```", "SELECT 1"},
		{"inline fence", "```SELECT 1```", "SELECT 1"},
		{"fence with prose around", "Here you go:\n```sql\nSELECT 1\n```\nHope it helps", "SELECT 1"},
		{"think block", "<think>the user wants counts</think>\nSELECT COUNT(*) FROM orders", "SELECT COUNT(*) FROM orders"},
		{"think block and fence", "<think>\nplan\n</think>```sql\nSELECT 2\n```", "SELECT 2"},
		{"unterminated fence", "```sql\nSELECT 3", "SELECT 3"},
		{"empty", "   ", ""},
		{"only think", "<think>nothing to say</think>", ""},
		{"multi-line list is kept", "1. first\n2. second", "1. first\n2. second"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeCompletion(tt.raw))
		})
	}
}
