package seed

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestSeeder() *Seeder {
	return &Seeder{rng: rand.New(rand.NewSource(42))}
}

func TestPickTags(t *testing.T) {
	s := newTestSeeder()

	tags := s.pickTags(languages, 3)
	parts := strings.Split(tags, ",")
	assert.Len(t, parts, 3)

	seen := map[string]bool{}
	for _, p := range parts {
		assert.Equal(t, strings.ToLower(p), p, "tags should be lowercased")
		assert.False(t, seen[p], "tags should be unique")
		seen[p] = true
	}
}

func TestPickTags_ClampsToPoolSize(t *testing.T) {
	s := newTestSeeder()

	tags := s.pickTags([]string{"go", "rust"}, 10)
	assert.Len(t, strings.Split(tags, ","), 2)
}

func TestPastTimestamp(t *testing.T) {
	s := newTestSeeder()

	cutoff := time.Now().AddDate(0, 0, -31)
	for i := 0; i < 20; i++ {
		ts := s.pastTimestamp(30)
		assert.True(t, ts.Before(time.Now().Add(time.Second)))
		assert.True(t, ts.After(cutoff))
	}
}
