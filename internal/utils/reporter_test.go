package utils

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/RecoveryAshes/DAReportFinder/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRows() []models.ResultRow {
	return []models.ResultRow{
		{
			SourceName:   "City of Sydney",
			Reference:    "D/2024/1",
			Address:      "1 George St, Sydney",
			DetailURL:    "https://example.com/da/1",
			MatchedPaths: []string{"reports/a.pdf", "reports/b.pdf"},
		},
		{
			SourceName:   "ACT",
			Reference:    "",
			Address:      "Block 5",
			DetailURL:    "https://example.com/da/2",
			MatchedPaths: []string{"reports/c.pdf"},
		},
	}
}

func TestReporter_ExportCSV(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "out", "summary.csv")

	// 已存在的文件会被覆盖
	require.NoError(t, os.MkdirAll(filepath.Dir(csvPath), 0755))
	require.NoError(t, os.WriteFile(csvPath, []byte("stale,content\n"), 0644))

	reporter := NewReporter(csvPath, dir)
	require.NoError(t, reporter.ExportCSV(sampleRows()))

	file, err := os.Open(csvPath)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"council", "council_reference", "address", "info_url", "matching_documents"}, records[0])
	assert.Equal(t, "1 George St, Sydney", records[1][2])
	assert.Equal(t, "reports/a.pdf; reports/b.pdf", records[1][4])
	assert.Equal(t, "", records[2][1])
}

func TestReporter_ExportCSV_EmptyRows(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "summary.csv")
	reporter := NewReporter(csvPath, t.TempDir())
	require.NoError(t, reporter.ExportCSV(nil))

	content, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, "council,council_reference,address,info_url,matching_documents\n", string(content))
}

func TestReporter_WriteManifest(t *testing.T) {
	dir := t.TempDir()
	reporter := NewReporter(filepath.Join(dir, "summary.csv"), dir)

	manifest := &models.RunManifest{
		RunID:     "3b0c",
		StartTime: time.Now().Add(-time.Minute),
		EndTime:   time.Now(),
		OutputDir: dir,
		Rows:      sampleRows(),
		Stats:     models.RunStats{RowsWithDocuments: 2},
	}

	path, err := reporter.WriteManifest(manifest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ManifestFileName), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded models.RunManifest
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "3b0c", decoded.RunID)
	assert.Len(t, decoded.Rows, 2)
}

func TestRenderSummary(t *testing.T) {
	out := RenderSummary(sampleRows())
	assert.Contains(t, out, "City of Sydney")
	assert.Contains(t, out, "D/2024/1")
	assert.Contains(t, out, "Council")
}

func TestNewProgressBar_Silent(t *testing.T) {
	bar := NewProgressBar(3, "councils", false)
	require.NotNil(t, bar)
	assert.NoError(t, bar.Add(1))
	assert.NoError(t, bar.Finish())
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "2.0 KB", FormatBytes(2048))
	assert.Equal(t, "3.00 MB", FormatBytes(3*1024*1024))
}
