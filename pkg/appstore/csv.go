package appstore

import (
	"bytes"
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// installRow is one parsed line of an installation report segment.
type installRow struct {
	Date         string
	Event        string
	DownloadType string
	SourceType   string
	Counts       int64
}

// sessionRow is one parsed line of a sessions report segment.
type sessionRow struct {
	Date          string
	Sessions      int64
	UniqueDevices int64
}

// parseCount parses a report numeric cell. Cells may be empty, fractional,
// or NaN; all of those count as 0.
func parseCount(s string) int64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(f)
}

// readSegmentTSV decompresses a gzip segment payload and returns its rows.
// Report segments are tab-separated with a header line.
func readSegmentTSV(data []byte) ([]string, [][]string, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open gzip segment: %w", err)
	}
	defer gz.Close()

	reader := csv.NewReader(gz)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil, fmt.Errorf("segment is empty")
		}
		return nil, nil, fmt.Errorf("failed to read segment header: %w", err)
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read segment row: %w", err)
		}
		rows = append(rows, record)
	}
	return header, rows, nil
}

// columnIndex builds a header-name lookup for positional access.
func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	return idx
}

func cell(record []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// parseInstallSegment parses a gzip TSV installation report segment.
func parseInstallSegment(data []byte) ([]installRow, error) {
	header, records, err := readSegmentTSV(data)
	if err != nil {
		return nil, err
	}
	idx := columnIndex(header)

	rows := make([]installRow, 0, len(records))
	for _, record := range records {
		rows = append(rows, installRow{
			Date:         cell(record, idx, "Date"),
			Event:        cell(record, idx, "Event"),
			DownloadType: cell(record, idx, "Download Type"),
			SourceType:   cell(record, idx, "Source Type"),
			Counts:       parseCount(cell(record, idx, "Counts")),
		})
	}
	return rows, nil
}

// parseSessionSegment parses a gzip TSV sessions report segment.
func parseSessionSegment(data []byte) ([]sessionRow, error) {
	header, records, err := readSegmentTSV(data)
	if err != nil {
		return nil, err
	}
	idx := columnIndex(header)

	rows := make([]sessionRow, 0, len(records))
	for _, record := range records {
		rows = append(rows, sessionRow{
			Date:          cell(record, idx, "Date"),
			Sessions:      parseCount(cell(record, idx, "Sessions")),
			UniqueDevices: parseCount(cell(record, idx, "Unique Devices")),
		})
	}
	return rows, nil
}
