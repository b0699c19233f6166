package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryUpHasADown(t *testing.T) {
	ups, err := fs.Glob(FS, "*.up.sql")
	require.NoError(t, err)
	require.NotEmpty(t, ups)

	for _, up := range ups {
		down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
		_, err := fs.Stat(FS, down)
		assert.NoError(t, err, "missing %s", down)
	}
}

func TestInitCreatesActiveSlotIndex(t *testing.T) {
	body, err := fs.ReadFile(FS, "000001_init.up.sql")
	require.NoError(t, err)

	sql := string(body)
	assert.Contains(t, sql, "appointments_active_slot_idx")
	assert.Contains(t, sql, "WHERE status IN ('pending', 'confirmed')")
	assert.Contains(t, sql, "UNIQUE (appointment_id, reminder_type)")
}
