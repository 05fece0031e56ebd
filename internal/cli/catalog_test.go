package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nullg/internal/fieldcatalog"
)

func TestCatalog_Text(t *testing.T) {
	out, _, err := execute(t, "", "catalog", "EraItem")
	require.NoError(t, err)
	assert.Contains(t, out, "yearStart")
	assert.Contains(t, out, "$eq,$gte,$lte")
}

func TestCatalog_JSON(t *testing.T) {
	out, _, err := execute(t, "", "--format", "json", "catalog", "EraItem")
	require.NoError(t, err)

	var resp struct {
		Status string               `json:"status"`
		Data   fieldcatalog.Catalog `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "EraItem", resp.Data.Root)
	assert.Equal(t, []string{"id", "name", "yearStart", "yearEnd"}, resp.Data.Paths())

	name, ok := resp.Data.Lookup("name")
	require.True(t, ok)
	assert.Equal(t, []string{"$eq", "$regex"}, name.Operators)
	require.NotNil(t, name.Example)
	assert.Equal(t, "Jihad", *name.Example)
}

func TestCatalog_Category(t *testing.T) {
	out, _, err := execute(t, "", "--format", "json", "catalog", "UnitData", "--category", "totalWar")
	require.NoError(t, err)

	var resp struct {
		Data fieldcatalog.Catalog `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotEmpty(t, resp.Data.Entries)
	for _, e := range resp.Data.Entries {
		assert.Equal(t, "totalWar", e.Category, e.Path)
	}
}

func TestCatalog_UnknownType(t *testing.T) {
	out, _, err := execute(t, "", "catalog", "Starship")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Starship")
}
