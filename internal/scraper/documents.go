package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/xuri/excelize/v2"
)

// LocalDecoder downloads a non-web document to a temp file and extracts its
// text locally, adapted from the teacher's internal/tools/{pdf,docx,xlsx}.go
// readers. It is the fallback path used when no ConvertURL is configured or
// the convert endpoint fails.
type LocalDecoder struct {
	httpClient      *http.Client
	maxPages        int
	maxSheets       int
	maxRowsPerSheet int
	maxColsPerRow   int
}

func NewLocalDecoder() *LocalDecoder {
	return &LocalDecoder{
		httpClient:      &http.Client{Timeout: 60 * time.Second},
		maxPages:        50,
		maxSheets:       3,
		maxRowsPerSheet: 20,
		maxColsPerRow:   12,
	}
}

// Decode downloads url and extracts text per its DocType. It returns no
// title; the scraper records an empty title for locally decoded documents.
func (d *LocalDecoder) Decode(ctx context.Context, url string, typ DocType) (string, error) {
	path, cleanup, err := d.download(ctx, url, typ)
	if err != nil {
		return "", err
	}
	defer cleanup()

	switch typ {
	case DocPDF:
		return d.decodePDF(path)
	case DocDOCX:
		return d.decodeDOCX(path)
	case DocSpreadsheet:
		return d.decodeXLSX(path)
	default:
		return "", fmt.Errorf("local decoder has no handler for doc type %v", typ)
	}
}

func (d *LocalDecoder) download(ctx context.Context, url string, typ DocType) (string, func(), error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("download error %d for %s", resp.StatusCode, url)
	}

	ext := map[DocType]string{DocPDF: ".pdf", DocDOCX: ".docx", DocSpreadsheet: ".xlsx"}[typ]
	tmp, err := os.CreateTemp("", "scrape-*"+ext)
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	path := tmp.Name()
	return path, func() { os.Remove(path) }, nil
}

// decodePDF mirrors internal/tools/pdf.go's PDFReadTool.Execute.
func (d *LocalDecoder) decodePDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}
	defer f.Close()

	var text strings.Builder
	numPages := r.NumPage()
	maxPages := d.maxPages
	if maxPages <= 0 || maxPages > numPages {
		maxPages = numPages
	}

	for i := 1; i <= maxPages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		text.WriteString(content)
		text.WriteString("\n\n")
	}
	if maxPages < numPages {
		text.WriteString(fmt.Sprintf("\n...[truncated after %d of %d pages]\n", maxPages, numPages))
	}

	return truncate(text.String(), 100000), nil
}

// decodeDOCX mirrors internal/tools/docx.go's DOCXReadTool.Execute.
func (d *LocalDecoder) decodeDOCX(path string) (string, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", fmt.Errorf("open DOCX: %w", err)
	}
	defer r.Close()

	content := cleanDocxContent(r.Editable().GetContent())
	return truncate(content, 100000), nil
}

func cleanDocxContent(s string) string {
	lines := strings.Split(s, "\n")
	var cleaned []string
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return strings.Join(cleaned, "\n\n")
}

// decodeXLSX mirrors internal/tools/xlsx.go's XLSXReadTool.Execute.
func (d *LocalDecoder) decodeXLSX(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	maxSheets := d.maxSheets
	if maxSheets <= 0 || maxSheets > len(sheets) {
		maxSheets = len(sheets)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Workbook: %s\n", filepath.Base(path)))
	b.WriteString(fmt.Sprintf("Total sheets: %d\n\n", len(sheets)))

	for i := 0; i < maxSheets; i++ {
		sheetName := sheets[i]
		b.WriteString(fmt.Sprintf("=== Sheet %d: %s ===\n", i+1, sheetName))

		rows, err := f.GetRows(sheetName)
		if err != nil {
			b.WriteString(fmt.Sprintf("error reading sheet: %v\n\n", err))
			continue
		}
		if len(rows) == 0 {
			b.WriteString("(sheet is empty)\n\n")
			continue
		}

		maxRows := d.maxRowsPerSheet
		if maxRows <= 0 || maxRows > len(rows) {
			maxRows = len(rows)
		}
		for rowIdx := 0; rowIdx < maxRows; rowIdx++ {
			b.WriteString(fmt.Sprintf("Row %d: %s\n", rowIdx+1, formatXLSXRow(rows[rowIdx], d.maxColsPerRow)))
		}
		if maxRows < len(rows) {
			b.WriteString(fmt.Sprintf("...%d more rows not shown\n", len(rows)-maxRows))
		}
		b.WriteString("\n")
	}
	if maxSheets < len(sheets) {
		b.WriteString(fmt.Sprintf("...%d additional sheets not shown\n", len(sheets)-maxSheets))
	}

	return truncate(b.String(), 100000), nil
}

func formatXLSXRow(row []string, maxCols int) string {
	if len(row) == 0 {
		return "[empty row]"
	}
	maxColumns := len(row)
	if maxCols > 0 && maxCols < maxColumns {
		maxColumns = maxCols
	}
	values := make([]string, 0, maxColumns)
	for i := 0; i < maxColumns; i++ {
		cell := strings.TrimSpace(row[i])
		if cell == "" {
			cell = " "
		}
		values = append(values, cell)
	}
	line := strings.Join(values, " | ")
	if maxCols > 0 && len(row) > maxCols {
		line += " | ..."
	}
	return line
}

// HTTPConverter calls the external convert endpoint (spec §6) for non-web
// documents, before falling back to LocalDecoder.
type HTTPConverter struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPConverter(endpoint, apiKey string) *HTTPConverter {
	return &HTTPConverter{endpoint: endpoint, apiKey: apiKey, httpClient: &http.Client{Timeout: 60 * time.Second}}
}

func (c *HTTPConverter) Convert(ctx context.Context, rawURL string) (string, string, error) {
	if c.endpoint == "" {
		return "", "", fmt.Errorf("no convert endpoint configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?url="+url.QueryEscape(rawURL), nil)
	if err != nil {
		return "", "", fmt.Errorf("create convert request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("convert request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("convert endpoint returned %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("read convert response: %w", err)
	}
	return truncate(string(body), 100000), "", nil
}

var _ Converter = (*HTTPConverter)(nil)
