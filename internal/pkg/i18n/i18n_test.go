package i18n

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCatalogue(t *testing.T, dir, locale, body string) {
	path := filepath.Join(dir, locale)
	require.NoError(t, os.MkdirAll(path, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(path, "notifications.yaml"), []byte(body), 0o644))
}

func TestTranslate(t *testing.T) {
	dir := t.TempDir()
	writeCatalogue(t, dir, "en", `
NOTIFICATIONS:
  REQUEST_APPROVED_TITLE: "Request approved"
  REQUEST_FULFILLED_MESSAGE: "{count} of {needed} units of {blood_type} reserved"
`)
	writeCatalogue(t, dir, "id", `
NOTIFICATIONS:
  REQUEST_APPROVED_TITLE: "Permintaan disetujui"
`)

	require.NoError(t, LoadTranslations(dir))

	t.Run("Locale hit", func(t *testing.T) {
		assert.Equal(t, "Permintaan disetujui", Translate("id", "REQUEST_APPROVED_TITLE"))
	})

	t.Run("Falls back to English", func(t *testing.T) {
		assert.Equal(t, "{count} of {needed} units of {blood_type} reserved", Translate("id", "REQUEST_FULFILLED_MESSAGE"))
	})

	t.Run("Unknown key returns key", func(t *testing.T) {
		assert.Equal(t, "NOPE", Translate("en", "NOPE"))
	})

	t.Run("Format substitutes placeholders", func(t *testing.T) {
		got := Format("en", "REQUEST_FULFILLED_MESSAGE", map[string]string{
			"count": "2", "needed": "3", "blood_type": "O-",
		})
		assert.Equal(t, "2 of 3 units of O- reserved", got)
	})
}

func TestLoadTranslations_BadYAML(t *testing.T) {
	dir := t.TempDir()
	writeCatalogue(t, dir, "en", "NOTIFICATIONS: [unclosed")

	assert.Error(t, LoadTranslations(dir))
}
