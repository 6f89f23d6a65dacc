package outwriter

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/qualitytrend/sonarscrape/schema"
)

// ErrEmptyTable is returned when decoding data without a header line.
var ErrEmptyTable = errors.New("table has no header")

var cellReplacer = strings.NewReplacer(",", ";", "\r", " ", "\n", " ")

// cell makes v safe for an unquoted comma-separated row.
func cell(v string) string {
	return cellReplacer.Replace(v)
}

// EncodeTable renders table as comma-separated lines, header first, without quoting.
// Commas inside cells become semicolons.
func EncodeTable(table schema.Table) ([]byte, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	writeLine := func(cells []string) {
		for i, c := range cells {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(cell(c))
		}
		buf.WriteByte('\n')
	}
	writeLine(table.Header)
	for _, row := range table.Rows {
		writeLine(row)
	}
	return buf.Bytes(), nil
}

// DecodeTable parses data written by EncodeTable.
func DecodeTable(data []byte) (schema.Table, error) {
	lines := splitLines(data)
	if len(lines) == 0 {
		return schema.Table{}, ErrEmptyTable
	}
	table := schema.Table{
		Header: strings.Split(lines[0], ","),
		Rows:   make([][]string, 0, len(lines)-1),
	}
	for _, line := range lines[1:] {
		table.Rows = append(table.Rows, strings.Split(line, ","))
	}
	if err := table.Validate(); err != nil {
		return schema.Table{}, fmt.Errorf("decoding table: %w", err)
	}
	return table, nil
}

// EncodeLines renders one value per line.
func EncodeLines(lines []string) []byte {
	var buf bytes.Buffer
	for _, l := range lines {
		buf.WriteString(cell(l))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// DecodeLines parses data written by EncodeLines, dropping blank lines.
func DecodeLines(data []byte) []string {
	var out []string
	for _, l := range splitLines(data) {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

// splitLines splits on \n, tolerating \r\n and a missing final newline.
func splitLines(data []byte) []string {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
