package metadata

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemameta/config"
)

func TestBuildPrompt(t *testing.T) {
	t.Run("embeds ddl, database and channel", func(t *testing.T) {
		prompt, err := BuildPrompt("CREATE TABLE t (id INT);", "TestDB", config.DefaultChannel)
		require.NoError(t, err)

		assert.Contains(t, prompt, "<DDL>\nCREATE TABLE t (id INT);\n</DDL>")
		assert.Contains(t, prompt, "<DATABASE_NAME>TestDB</DATABASE_NAME>")
		assert.Contains(t, prompt, "<CHANNEL>sqlite</CHANNEL>")
	})

	t.Run("worked example uses the run's channel and database", func(t *testing.T) {
		prompt, err := BuildPrompt("CREATE TABLE t (id INT);", "Chinook.db", "postgres")
		require.NoError(t, err)

		assert.Contains(t, prompt, `<METADATA CHANNEL="postgres" DATABASE="Chinook.db" TABLE="address">`)
		assert.Contains(t, prompt, "- Description:")
		assert.Contains(t, prompt, "- Data:")
		assert.Contains(t, prompt, "-- firstname:")
		assert.Contains(t, prompt, "- Relationships:")
		assert.Contains(t, prompt, "-- (address.customerid → customer.id)")
		assert.Contains(t, prompt, "</METADATA>")
	})

	t.Run("carries the instructions", func(t *testing.T) {
		prompt, err := BuildPrompt("x", "d", "c")
		require.NoError(t, err)

		assert.Contains(t, prompt, "You are an expert data analyst.")
		assert.Contains(t, prompt, "Leave out any housekeeping columns like IDs and create/update timestamps.")
		assert.Contains(t, prompt, "Only describe the business data in each table.")
		assert.Contains(t, prompt, `especially confusing ones like "ean"`)
		assert.Contains(t, prompt, "Separate each metadata tag with two blank lines.")
	})

	t.Run("ddl is not escaped or altered", func(t *testing.T) {
		ddl := "CREATE TABLE \"order\" (note TEXT DEFAULT '<none> & more');\n\n-- trailing comment"
		prompt, err := BuildPrompt(ddl, "d", "c")
		require.NoError(t, err)
		assert.True(t, strings.Contains(prompt, ddl))
	})

	t.Run("is deterministic", func(t *testing.T) {
		a, err := BuildPrompt("x", "d", "c")
		require.NoError(t, err)
		b, err := BuildPrompt("x", "d", "c")
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})
}
