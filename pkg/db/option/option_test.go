package option

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithQuerySortBy(t *testing.T) {
	allowed := map[string]bool{"name": true, "created_at": true}

	assert.Equal(t, SortBy{Column: "name", Desc: true}, WithQuerySortBy(" Name ", "DESC", allowed))
	assert.Equal(t, SortBy{Column: "created_at"}, WithQuerySortBy("password_hash", "asc", allowed))
	assert.Equal(t, SortBy{Column: "created_at"}, WithQuerySortBy("", "", allowed))
}
