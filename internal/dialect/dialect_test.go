package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForNameDefaultsToPostgres(t *testing.T) {
	for _, name := range []string{"", "postgres", "postgresql"} {
		d, err := ForName(name)
		require.NoError(t, err, name)
		assert.Equal(t, "postgres", d.Name(), name)
	}
}

func TestForNameResolvesMySQL(t *testing.T) {
	for _, name := range []string{"mysql", "mariadb"} {
		d, err := ForName(name)
		require.NoError(t, err, name)
		assert.Equal(t, "mysql", d.Name(), name)
	}
}

func TestForNameRejectsUnknown(t *testing.T) {
	_, err := ForName("oracle")
	assert.Error(t, err)
}

func TestPostgresPlaceholderAndQuote(t *testing.T) {
	var d Postgres
	assert.Equal(t, "$1", d.Placeholder(1))
	assert.Equal(t, "$3", d.Placeholder(3))
	assert.Equal(t, `"context"`, d.Quote("context"))
}

func TestMySQLPlaceholderAndQuote(t *testing.T) {
	var d MySQL
	assert.Equal(t, "?", d.Placeholder(1))
	assert.Equal(t, "?", d.Placeholder(3))
	assert.Equal(t, "`context`", d.Quote("context"))
}
