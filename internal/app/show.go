package app

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"set-index-snapshots/internal/snapshot"
)

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// Show prints the most recent history entries as a table.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	history := store.LoadHistory(ctx)
	if len(history) == 0 {
		fmt.Fprintln(os.Stdout, "no snapshots recorded yet")
		return nil
	}

	dates := make([]string, 0, len(history))
	for date := range history {
		dates = append(dates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Date\tPeriod\t2D\tSET Index\tValue\tFetched At\tError")

	printed := 0
	for _, date := range dates {
		if opts.Limit > 0 && printed >= opts.Limit {
			break
		}
		for _, period := range []snapshot.Period{snapshot.PeriodAM, snapshot.PeriodPM} {
			reading, ok := history.Get(date, period)
			if !ok {
				continue
			}
			fmt.Fprintf(
				writer,
				"%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				date,
				period,
				orDash(reading.TwoD),
				orDash(reading.Set),
				orDash(reading.Value),
				time.Unix(reading.FetchedAt, 0).UTC().Format(time.RFC3339),
				sanitizeInline(reading.Error),
			)
		}
		printed++
	}

	return writer.Flush()
}

func orDash(v string) string {
	if v == "" {
		return "--"
	}
	return v
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
