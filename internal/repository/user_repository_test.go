package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNameSearchFilter(t *testing.T) {
	t.Run("happy path quotes regex metacharacters", func(t *testing.T) {
		f := nameSearchFilter("a.b*c")
		re, ok := f["name"].(bson.M)["$regex"].(primitive.Regex)
		require.True(t, ok)
		assert.Equal(t, `a\.b\*c`, re.Pattern)
		assert.Equal(t, "i", re.Options)
	})

	t.Run("happy path plain text passes through", func(t *testing.T) {
		f := nameSearchFilter("alice")
		re := f["name"].(bson.M)["$regex"].(primitive.Regex)
		assert.Equal(t, "alice", re.Pattern)
	})
}
