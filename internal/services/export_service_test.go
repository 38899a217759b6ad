package services

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/nickng/bibtex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportService_BibTeX(t *testing.T) {
	out := NewExportService().BibTeX(rankedSample())

	bib, err := bibtex.Parse(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, bib.Entries, 2)

	entry := bib.Entries[0]
	assert.Equal(t, "misc", entry.Type)
	assert.Equal(t, "arxiv_2503_00002", entry.CiteName)
	assert.Equal(t, "Retrieval Without Regret", entry.Fields["title"].String())
	assert.Equal(t, "Grace Hopper", entry.Fields["author"].String())
	assert.Equal(t, "2025", entry.Fields["year"].String())
	assert.Equal(t, "2503.00002", entry.Fields["eprint"].String())
	assert.Equal(t, "cs.CL", entry.Fields["primaryclass"].String())

	assert.Equal(t, "Ada Lovelace and Alan Turing", bib.Entries[1].Fields["author"].String())
}

func TestExportService_WriteFiles(t *testing.T) {
	dir := t.TempDir()
	svc := NewExportService()

	bibPath := filepath.Join(dir, "exports", "digest.bib")
	require.NoError(t, svc.WriteBibTeX(bibPath, rankedSample()))
	content, err := os.ReadFile(bibPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "arxiv_2503_00001")

	pdfPath := filepath.Join(dir, "exports", "digest.pdf")
	require.NoError(t, svc.WritePDF(pdfPath, ReportTitle(10, "2025-03-12"), rankedSample()))

	f, r, err := pdf.Open(pdfPath)
	require.NoError(t, err)
	defer f.Close()
	assert.GreaterOrEqual(t, r.NumPage(), 1)
}
