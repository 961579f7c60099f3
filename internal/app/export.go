package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"set-index-snapshots/internal/snapshot"
)

// ExportOptions hold parameters for exporting the snapshot history.
type ExportOptions struct {
	From      string // YYYY-MM-DD inclusive
	To        string // YYYY-MM-DD inclusive
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// historyEntry is one archived window reading placed on the time axis.
type historyEntry struct {
	Date    string
	Period  snapshot.Period
	When    time.Time
	Reading snapshot.Reading
}

// Export renders the history as CSV and/or a PNG chart of the index value.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	for _, bound := range []string{opts.From, opts.To} {
		if bound == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", bound); err != nil {
			return fmt.Errorf("invalid date bound %q: %w", bound, err)
		}
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	clk, err := a.newClock()
	if err != nil {
		return err
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	entries := a.collectEntries(store.LoadHistory(ctx), clk.Location(), opts)
	if len(entries) == 0 {
		a.Logger.Info().Msg("no history entries in export window")
		return nil
	}

	downsampled := downsampleEntries(entries, opts.MaxPoints)
	a.Logger.Info().Int("total", len(entries)).Int("exported", len(downsampled)).Msg("exporting history")

	if opts.CSVPath != "" {
		if err := writeHistoryCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeHistoryPNG(opts.PNGPath, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func (a *App) collectEntries(history snapshot.History, loc *time.Location, opts ExportOptions) []historyEntry {
	windowTimes := map[snapshot.Period]string{
		snapshot.PeriodAM: a.Config.Windows.AM,
		snapshot.PeriodPM: a.Config.Windows.PM,
	}

	entries := make([]historyEntry, 0, len(history)*2)
	for date, day := range history {
		if opts.From != "" && date < opts.From {
			continue
		}
		if opts.To != "" && date > opts.To {
			continue
		}
		for period, reading := range day {
			when, err := time.ParseInLocation("2006-01-02 15:04:05", date+" "+windowTimes[period], loc)
			if err != nil {
				a.Logger.Warn().Str("date", date).Str("period", string(period)).Msg("skipping entry with unparseable date")
				continue
			}
			entries = append(entries, historyEntry{Date: date, Period: period, When: when, Reading: reading})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].When.Before(entries[j].When)
	})
	return entries
}

func downsampleEntries(entries []historyEntry, max int) []historyEntry {
	if max <= 0 || len(entries) <= max {
		return entries
	}
	if max == 1 {
		return entries[len(entries)-1:]
	}

	result := make([]historyEntry, 0, max)
	step := float64(len(entries)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(entries) {
			idx = len(entries) - 1
		}
		result = append(result, entries[idx])
	}
	return result
}

func writeHistoryCSV(path string, entries []historyEntry) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"date", "period", "twod", "set_index", "value", "fetched_at", "error"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, entry := range entries {
		record := []string{
			entry.Date,
			string(entry.Period),
			entry.Reading.TwoD,
			entry.Reading.Set,
			entry.Reading.Value,
			time.Unix(entry.Reading.FetchedAt, 0).UTC().Format(time.RFC3339),
			entry.Reading.Error,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeHistoryPNG(path string, entries []historyEntry) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, 0, len(entries))
	y := make([]float64, 0, len(entries))
	for _, entry := range entries {
		if entry.Reading.Failed() {
			continue
		}
		cleaned := strings.ReplaceAll(entry.Reading.Set, ",", "")
		d, err := decimal.NewFromString(cleaned)
		if err != nil {
			continue
		}
		x = append(x, entry.When)
		y = append(y, d.InexactFloat64())
	}
	if len(x) < 2 {
		return errors.New("not enough valid readings to chart")
	}

	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name: "SET Index",
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.2f")
			},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "SET Index",
				XValues: x,
				YValues: y,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
