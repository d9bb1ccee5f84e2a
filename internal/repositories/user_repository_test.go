package repositories

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandTagShape(t *testing.T) {
	for i := 0; i < 100; i++ {
		tag, err := randTag()
		require.NoError(t, err)
		require.Len(t, tag, tagLength)
		for _, c := range tag {
			assert.Contains(t, tagAlphabet, string(c))
		}
	}
}

func TestRandTagRedrawsOutOfRangeBytes(t *testing.T) {
	orig := tagRand
	defer func() { tagRand = orig }()

	// 252..255 cannot map uniformly onto a 36-char alphabet and must be
	// redrawn; only the four trailing bytes may shape the tag.
	tagRand = bytes.NewReader([]byte{255, 254, 253, 252, 0, 35, 36, 71})

	tag, err := randTag()
	require.NoError(t, err)
	assert.Equal(t, "A9A9", tag)
}

func TestRandTagUsesWholeAlphabet(t *testing.T) {
	seen := map[byte]bool{}
	for i := 0; i < 2000; i++ {
		tag, err := randTag()
		require.NoError(t, err)
		for j := 0; j < len(tag); j++ {
			seen[tag[j]] = true
		}
	}
	assert.Len(t, seen, len(tagAlphabet))
}

func TestPickTagNoCollisionsSingleWriter(t *testing.T) {
	// 1000 sequential allocations for one username must never hand out the
	// same tag twice.
	taken := map[string]bool{}
	for i := 0; i < 1000; i++ {
		tag, err := pickTag(func(candidate string) (bool, error) {
			return taken[candidate], nil
		})
		require.NoError(t, err)
		require.False(t, taken[tag], "tag %q allocated twice", tag)
		taken[tag] = true
	}
	assert.Len(t, taken, 1000)
}

func TestPickTagExhausted(t *testing.T) {
	calls := 0
	_, err := pickTag(func(string) (bool, error) {
		calls++
		return true, nil
	})
	assert.ErrorIs(t, err, ErrTagExhausted)
	assert.Equal(t, tagAttempts, calls)
}

func TestPickTagFirstFree(t *testing.T) {
	calls := 0
	tag, err := pickTag(func(string) (bool, error) {
		calls++
		return false, nil
	})
	require.NoError(t, err)
	assert.Len(t, tag, tagLength)
	assert.Equal(t, 1, calls)
}
