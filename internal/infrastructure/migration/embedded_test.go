package migration

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/banper/backend/internal/infrastructure/persistence/models"
	"github.com/banper/backend/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

func TestEmbeddedMigrations_ArePaired(t *testing.T) {
	ups, err := fs.Glob(migrations.FS, "*.up.sql")
	require.NoError(t, err)
	require.NotEmpty(t, ups)

	for _, up := range ups {
		down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
		_, err := fs.Stat(migrations.FS, down)
		assert.NoError(t, err, "missing rollback for %s", up)
	}
}

func TestEmbeddedMigrations_CreateEveryModelTable(t *testing.T) {
	ups, err := fs.Glob(migrations.FS, "*.up.sql")
	require.NoError(t, err)

	var all strings.Builder
	for _, up := range ups {
		body, err := fs.ReadFile(migrations.FS, up)
		require.NoError(t, err)
		all.Write(body)
	}

	for _, model := range models.AllModels() {
		tabler, ok := model.(schema.Tabler)
		require.True(t, ok)
		assert.Contains(t, all.String(), "CREATE TABLE IF NOT EXISTS "+tabler.TableName()+" (")
	}
}
