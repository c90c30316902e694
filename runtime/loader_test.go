package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCensoredWords(t *testing.T) {
	req := require.New(t)

	data, err := LoadCensoredWords()
	req.NoError(err)

	// Then both language files contribute words, comments are dropped
	req.Contains(data.Languages, "en")
	req.Contains(data.Languages, "fr")
	req.Contains(data.Words, "scamcoin")
	req.Contains(data.Words, "argentfacile")
	for _, word := range data.Words {
		req.NotContains(word, "#")
	}
}
