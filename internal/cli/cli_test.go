package cli

import (
	"bytes"
	"context"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-idcard/internal/card"
	"github.com/noah-isme/sma-idcard/internal/catalog"
	"github.com/noah-isme/sma-idcard/internal/models"
	"github.com/noah-isme/sma-idcard/internal/service"
	"github.com/noah-isme/sma-idcard/pkg/config"
)

func sqliteLoader(t *testing.T) ConfigLoader {
	t.Helper()
	dir := t.TempDir()
	return func() (*config.Config, error) {
		return &config.Config{
			Env:       config.EnvDevelopment,
			APIPrefix: "/api/v1",
			Store:     config.StoreConfig{Backend: config.StoreSQLite},
			SQLite:    config.SQLiteConfig{Path: filepath.Join(dir, "idcard.db")},
			Exports: config.ExportsConfig{
				StorageDir:        filepath.Join(dir, "exports"),
				SignedURLSecret:   "secret",
				SignedURLTTL:      time.Hour,
				WorkerConcurrency: 1,
			},
			Photos: config.PhotosConfig{StorageDir: filepath.Join(dir, "photos"), MaxFileSizeBytes: 1 << 20},
		}, nil
	}
}

func run(t *testing.T, load ConfigLoader, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(load)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func register(t *testing.T, load ConfigLoader, name string, extra ...string) {
	t.Helper()
	args := append([]string{"submit", "--name", name, "--roll", "4", "--class", "1B", "--rack", "R9", "--route", "Route 3"}, extra...)
	out, err := run(t, load, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "Registered "+name)
}

func TestHistoryEmpty(t *testing.T) {
	out, err := run(t, sqliteLoader(t), "history")
	require.NoError(t, err)
	assert.Equal(t, service.EmptyStateMessage+"\n", out)
}

func TestSubmitKeepsTwoNewest(t *testing.T) {
	load := sqliteLoader(t)
	register(t, load, "Asha", "--allergy", "Dust", "--allergy", "Peanuts")
	register(t, load, "Bima")
	register(t, load, "Citra")

	out, err := run(t, load, "history")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], models.ViewCurrent+"\tCitra"))
	assert.True(t, strings.HasPrefix(lines[1], models.ViewPrevious+"\tBima"))
	assert.NotContains(t, out, "Asha")

	csvOut, err := run(t, load, "history", "--format", "csv")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(csvOut, "Slot,Name,Roll Number"))
}

func TestSubmitRejectsInvalidClass(t *testing.T) {
	_, err := run(t, sqliteLoader(t), "submit", "--name", "Asha", "--roll", "1", "--class", "9Z", "--rack", "R1", "--route", "Route 1")
	require.Error(t, err)
}

func TestTemplatesSelect(t *testing.T) {
	load := sqliteLoader(t)

	out, err := run(t, load, "templates", "current")
	require.NoError(t, err)
	assert.Equal(t, "classic\n", out)

	_, err = run(t, load, "templates", "select", "neon")
	require.Error(t, err)

	_, err = run(t, load, "templates", "select", "dark")
	require.NoError(t, err)

	out, err = run(t, load, "templates", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "* dark")
	assert.Contains(t, out, "  classic")
}

func TestExportWritesPNG(t *testing.T) {
	load := sqliteLoader(t)
	register(t, load, "Asha")

	target := filepath.Join(t.TempDir(), "cards", "asha.png")
	out, err := run(t, load, "export", "--out", target)
	require.NoError(t, err)
	assert.Contains(t, out, target)

	f, err := os.Open(target)
	require.NoError(t, err)
	defer f.Close()
	_, err = png.Decode(f)
	require.NoError(t, err)

	_, err = run(t, load, "export", models.ViewPrevious, "--out", filepath.Join(t.TempDir(), "none.png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestPreviewDrawsCard(t *testing.T) {
	load := sqliteLoader(t)
	out, err := run(t, load, "preview")
	require.NoError(t, err)
	assert.Contains(t, out, service.EmptyStateMessage)

	register(t, load, "Asha", "--allergy", "Pollen")
	out, err = run(t, load, "preview", models.ViewCurrent)
	require.NoError(t, err)
	assert.Contains(t, out, card.Title)
	assert.Contains(t, out, "Asha")
	assert.Contains(t, out, card.AllergyHeading)
	assert.Contains(t, out, "Pollen")
	assert.Contains(t, out, card.ActionLabel)
}

func TestRenderPreviewOmitsAllergiesWhenNone(t *testing.T) {
	cat, err := catalog.Load()
	require.NoError(t, err)
	view, err := card.Render(models.StudentRecord{Name: "Dewi", RollNumber: "5", ClassDivision: "2A", Allergies: []string{}, RackNumber: "R2", BusRoute: "Route 1"}, cat.Fallback())
	require.NoError(t, err)

	out := renderPreview(view)
	assert.Contains(t, out, "Dewi")
	assert.Contains(t, out, "Bus Route: Route 1")
	assert.NotContains(t, out, card.AllergyHeading)
}
