package table

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"html"
	"strings"

	"gracc-reporting/internal/format"
)

// RenderOptions configures display formatting. Zero value means one
// decimal place for every numeric column.
type RenderOptions struct {
	// Precision overrides the decimal precision per column.
	Precision map[string]int
	// DefaultPrecision applies to numeric columns without an override.
	DefaultPrecision int
}

// DefaultRenderOptions returns the options used by most reports.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{DefaultPrecision: 1}
}

func (o RenderOptions) precisionFor(col string) int {
	if p, ok := o.Precision[col]; ok {
		return p
	}
	return o.DefaultPrecision
}

// displayString renders a cell for human output: numbers comma-grouped
// at the column precision, everything else via rawString.
func (o RenderOptions) displayString(col string, v any) string {
	if isNumeric(v) {
		return format.Number(toFloat(v), o.precisionFor(col))
	}
	return rawString(v)
}

// Text renders the table as a box-drawn grid. Numeric columns are
// right-aligned, string columns left-aligned.
func (t *Table) Text(opts RenderOptions) (string, error) {
	nrows, err := t.NumRows()
	if err != nil {
		return "", err
	}

	// Render all cells up front to size the columns.
	cells := make([][]string, nrows)
	widths := make([]int, len(t.Header))
	numeric := make([]bool, len(t.Header))
	for j, h := range t.Header {
		widths[j] = len(h)
		numeric[j] = nrows > 0 && isNumeric(t.cell(h, 0))
	}
	for i := 0; i < nrows; i++ {
		cells[i] = make([]string, len(t.Header))
		for j, h := range t.Header {
			s := opts.displayString(h, t.cell(h, i))
			cells[i][j] = s
			if len(s) > widths[j] {
				widths[j] = len(s)
			}
		}
	}

	var b strings.Builder
	rule := func() {
		for _, w := range widths {
			b.WriteString("+")
			b.WriteString(strings.Repeat("-", w+2))
		}
		b.WriteString("+\n")
	}
	writeRow := func(row []string, rightAlign []bool) {
		for j, s := range row {
			b.WriteString("| ")
			pad := widths[j] - len(s)
			if rightAlign != nil && rightAlign[j] {
				b.WriteString(strings.Repeat(" ", pad))
				b.WriteString(s)
			} else {
				b.WriteString(s)
				b.WriteString(strings.Repeat(" ", pad))
			}
			b.WriteString(" ")
		}
		b.WriteString("|\n")
	}

	rule()
	writeRow(t.Header, nil)
	rule()
	for i := 0; i < nrows; i++ {
		writeRow(cells[i], numeric)
	}
	rule()
	return b.String(), nil
}

// CSV renders the table as RFC 4180 CSV with a header row. Values keep
// their input precision.
func (t *Table) CSV() (string, error) {
	nrows, err := t.NumRows()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Header); err != nil {
		return "", fmt.Errorf("failed to write header: %w", err)
	}
	record := make([]string, len(t.Header))
	for i := 0; i < nrows; i++ {
		for j, h := range t.Header {
			record[j] = rawString(t.cell(h, i))
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}

// HTMLFragment renders the table as a bare <table> element with header
// and body rows. Cell values are HTML-escaped.
func (t *Table) HTMLFragment(opts RenderOptions) (string, error) {
	nrows, err := t.NumRows()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("<table>\n<thead>\n<tr>")
	for _, h := range t.Header {
		b.WriteString("<th>")
		b.WriteString(html.EscapeString(h))
		b.WriteString("</th>")
	}
	b.WriteString("</tr>\n</thead>\n<tbody>\n")
	for i := 0; i < nrows; i++ {
		b.WriteString("<tr>")
		for _, h := range t.Header {
			v := t.cell(h, i)
			if isNumeric(v) {
				b.WriteString(`<td align="right">`)
			} else {
				b.WriteString("<td>")
			}
			b.WriteString(html.EscapeString(opts.displayString(h, v)))
			b.WriteString("</td>")
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</tbody>\n</table>")
	return b.String(), nil
}

// HTML renders the table into an HTML document. When templateText is
// empty a minimal document wraps the fragment; otherwise the template's
// {title}, {header} and {table} placeholders are substituted, plus any
// extra named slots the report declares.
func (t *Table) HTML(title, templateText string, opts RenderOptions, extra map[string]string) (string, error) {
	fragment, err := t.HTMLFragment(opts)
	if err != nil {
		return "", err
	}
	headerCells := make([]string, len(t.Header))
	for i, h := range t.Header {
		headerCells[i] = "<th>" + html.EscapeString(h) + "</th>"
	}
	header := strings.Join(headerCells, "")

	if templateText == "" {
		return fmt.Sprintf("<html>\n<head><title>%s</title></head>\n<body>\n<h2>%s</h2>\n%s\n</body>\n</html>",
			html.EscapeString(title), html.EscapeString(title), fragment), nil
	}

	pairs := []string{
		"{title}", html.EscapeString(title),
		"{header}", header,
		"{table}", fragment,
	}
	for slot, value := range extra {
		pairs = append(pairs, "{"+slot+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(templateText), nil
}
