package bot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTruncate_KeepsRunesIntact(t *testing.T) {
	req := require.New(t)

	// Given a short string
	// Then it passes through untouched
	req.Equal("hello", truncate("hello", 120))

	// Given a long string made of multi-byte characters
	long := strings.Repeat("é", 130)

	// When it is cut down
	short := truncate(long, 120)

	// Then the cut lands on a rune boundary and is marked
	req.Equal(strings.Repeat("é", 120)+"…", short)
}
