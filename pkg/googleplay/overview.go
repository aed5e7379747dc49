package googleplay

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"storepulse/internal/model"
	"storepulse/pkg/logger"
	"storepulse/pkg/retry"
)

// FetchDailyMetrics resolves one day of install statistics for a package.
// Play publishes a monthly overview CSV per package; the newest export for
// the target month is downloaded and the daily row extracted. When the
// target date has no row yet (exports lag a day or two), the closest
// earlier date in the file is used and reported as the effective date.
// Session counts are not part of the bulk export.
func (c *Client) FetchDailyMetrics(ctx context.Context, packageName string, targetDate time.Time) (*model.VendorMetrics, error) {
	prefix := fmt.Sprintf("stats/installs/installs_%s_%s", packageName, targetDate.Format("200601"))

	var objects []objectInfo
	err := retry.Do(ctx, c.retryCfg, "google play list reports", func(ctx context.Context) error {
		var listErr error
		objects, listErr = c.store.List(ctx, prefix)
		return listErr
	})
	if err != nil {
		return nil, err
	}

	overview := pickOverviewObject(objects)
	if overview == nil {
		return nil, fmt.Errorf("no overview report found for %s in %s", packageName, targetDate.Format("2006-01"))
	}
	logger.Debugf("Google Play overview report for %s: %s (updated %s)", packageName, overview.Name, overview.Updated.Format(time.RFC3339))

	// The storage SDK retries downloads internally, so no wrapper here.
	data, err := c.store.Read(ctx, overview.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to download overview report %s: %w", overview.Name, err)
	}

	daily, err := parseOverviewCSV(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse overview report %s: %w", overview.Name, err)
	}

	targetKey := model.DateKey(targetDate)
	effectiveKey, totals := resolveDay(daily, targetKey)
	if effectiveKey == "" {
		logger.Warnf("no usable row for %s on or before %s, available dates: %v", packageName, targetKey, sortedKeys(daily))
		effectiveKey = targetKey
		totals = &model.DailyTotals{}
	} else if effectiveKey != targetKey {
		logger.Warnf("no row for %s on %s, falling back to %s", packageName, targetKey, effectiveKey)
	}

	effectiveDate, err := time.Parse("2006-01-02", effectiveKey)
	if err != nil {
		effectiveDate = targetDate
	}

	return &model.VendorMetrics{
		BundleID:            packageName,
		TargetDate:          targetDate,
		EffectiveDate:       effectiveDate,
		Downloads:           totals.Installs,
		Uninstalls:          totals.Uninstalls,
		SessionsUnavailable: true,
		DailyBreakdown:      daily,
		Raw: map[string]interface{}{
			"report_object": overview.Name,
		},
	}, nil
}

// pickOverviewObject selects the newest overview file from a listing. The
// canonical name ends in _overview.csv; older exports sometimes embed the
// word elsewhere, so any csv containing "overview" is accepted as fallback.
func pickOverviewObject(objects []objectInfo) *objectInfo {
	var candidates []objectInfo
	for _, obj := range objects {
		if strings.HasSuffix(obj.Name, "_overview.csv") {
			candidates = append(candidates, obj)
		}
	}
	if len(candidates) == 0 {
		for _, obj := range objects {
			if strings.Contains(obj.Name, "overview") && strings.HasSuffix(obj.Name, ".csv") {
				candidates = append(candidates, obj)
			}
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	newest := candidates[0]
	for _, obj := range candidates[1:] {
		if obj.Updated.After(newest.Updated) {
			newest = obj
		}
	}
	return &newest
}

// decodeOverview converts a report payload to UTF-8 text. Play exports are
// UTF-16LE with a BOM, but older files and manual re-uploads show up in
// other encodings, so a fallback chain is walked.
func decodeOverview(data []byte) string {
	if text, err := tryDecode(data, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()); err == nil {
		return text
	}
	if text, err := tryDecode(data, unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()); err == nil {
		return text
	}
	if looksUTF16LE(data) {
		if text, err := tryDecode(data, unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()); err == nil {
			return text
		}
	}
	trimmed := bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	if utf8.Valid(trimmed) {
		return string(trimmed)
	}
	if text, err := tryDecode(data, charmap.ISO8859_1.NewDecoder()); err == nil {
		return text
	}
	return string(bytes.ToValidUTF8(data, []byte("?")))
}

func tryDecode(data []byte, t transform.Transformer) (string, error) {
	decoded, _, err := transform.Bytes(t, data)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// looksUTF16LE checks for the zero high bytes BOM-less UTF-16LE ASCII text
// produces.
func looksUTF16LE(data []byte) bool {
	if len(data) < 4 || len(data)%2 != 0 {
		return false
	}
	zeros := 0
	limit := len(data)
	if limit > 256 {
		limit = 256
	}
	for i := 1; i < limit; i += 2 {
		if data[i] == 0 {
			zeros++
		}
	}
	return zeros > limit/4
}

// parseOverviewCSV extracts per-date install and uninstall counts from a
// monthly overview report.
func parseOverviewCSV(data []byte) (map[string]*model.DailyTotals, error) {
	reader := csv.NewReader(strings.NewReader(decodeOverview(data)))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read report header: %w", err)
	}

	dateIdx, installsIdx, uninstallsIdx := -1, -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case "Date":
			dateIdx = i
		case "Daily User Installs":
			installsIdx = i
		case "Daily User Uninstalls":
			uninstallsIdx = i
		}
	}
	if dateIdx < 0 || installsIdx < 0 {
		return nil, fmt.Errorf("report is missing Date or Daily User Installs columns: %v", header)
	}

	daily := make(map[string]*model.DailyTotals)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read report row: %w", err)
		}
		if dateIdx >= len(record) {
			continue
		}
		date := strings.TrimSpace(record[dateIdx])
		if date == "" {
			continue
		}

		totals := &model.DailyTotals{
			Installs: parseReportInt(record, installsIdx),
		}
		if uninstallsIdx >= 0 {
			totals.Uninstalls = parseReportInt(record, uninstallsIdx)
		}
		daily[date] = totals
	}
	return daily, nil
}

func parseReportInt(record []string, idx int) int64 {
	if idx < 0 || idx >= len(record) {
		return 0
	}
	s := strings.ReplaceAll(strings.TrimSpace(record[idx]), ",", "")
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// resolveDay returns the row for the target date, or the closest earlier
// date when the target is not in the file yet. An empty key means nothing
// usable was found.
func resolveDay(daily map[string]*model.DailyTotals, targetKey string) (string, *model.DailyTotals) {
	if totals, ok := daily[targetKey]; ok {
		return targetKey, totals
	}

	best := ""
	for date := range daily {
		if date <= targetKey && date > best {
			best = date
		}
	}
	if best == "" {
		return "", nil
	}
	return best, daily[best]
}

func sortedKeys(daily map[string]*model.DailyTotals) []string {
	keys := make([]string, 0, len(daily))
	for k := range daily {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
