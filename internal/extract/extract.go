// Package extract pulls the live index and trading value out of the market
// overview page and derives the two-digit code.
//
// The extraction is positional on purpose: the upstream page carries no
// stable ids or classes, so the table and div indices below are an external
// contract with the page layout. When the layout shifts, extraction fails as
// a tagged error rather than an out-of-range fault.
package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"set-index-snapshots/internal/snapshot"
)

// ErrLayout marks a document that no longer matches the expected structure.
var ErrLayout = errors.New("page layout mismatch")

// Options pin the positional coordinates of the two values.
type Options struct {
	TableIndex    int
	SetDivIndex   int
	ValueDivIndex int
}

// Extractor parses raw overview documents into readings.
type Extractor struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs an extractor.
func New(opts Options, logger zerolog.Logger) *Extractor {
	return &Extractor{
		opts:   opts,
		logger: logger.With().Str("component", "extractor").Logger(),
	}
}

// Extract locates the index and value cells and derives the two-digit code.
// The returned reading carries no timestamp; the caller stamps it.
func (e *Extractor) Extract(document string) (snapshot.Reading, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return snapshot.Reading{}, fmt.Errorf("parse document: %w", err)
	}

	tables := doc.Find("table")
	if tables.Length() <= e.opts.TableIndex {
		return snapshot.Reading{}, fmt.Errorf("%w: table %d not found (%d present)", ErrLayout, e.opts.TableIndex, tables.Length())
	}

	divs := tables.Eq(e.opts.TableIndex).Find("div")
	for _, idx := range []int{e.opts.SetDivIndex, e.opts.ValueDivIndex} {
		if divs.Length() <= idx {
			return snapshot.Reading{}, fmt.Errorf("%w: div %d not found (%d present)", ErrLayout, idx, divs.Length())
		}
	}

	setText := strings.TrimSpace(divs.Eq(e.opts.SetDivIndex).Text())
	valueText := strings.TrimSpace(divs.Eq(e.opts.ValueDivIndex).Text())

	top, err := indexDigit(setText)
	if err != nil {
		return snapshot.Reading{}, fmt.Errorf("index value %q: %w", setText, err)
	}

	last, err := valueDigit(valueText)
	if err != nil {
		return snapshot.Reading{}, fmt.Errorf("trading value %q: %w", valueText, err)
	}

	return snapshot.Reading{
		TwoD:  top + last,
		Set:   setText,
		Value: valueText,
	}, nil
}

// indexDigit formats the index to exactly two decimals and takes the final
// character. That makes it a fractional digit, unlike the trading value side;
// the asymmetry is part of the observed upstream behaviour.
func indexDigit(raw string) (string, error) {
	d, err := parseAmount(raw)
	if err != nil {
		return "", err
	}
	fixed := d.StringFixed(2)
	return fixed[len(fixed)-1:], nil
}

// valueDigit truncates the trading value to its integer part and takes the
// final digit. An empty or lone-dash cell counts as "0.00".
func valueDigit(raw string) (string, error) {
	cleaned := strings.ReplaceAll(raw, ",", "")
	if cleaned == "" || cleaned == "-" {
		cleaned = "0.00"
	}
	d, err := parseAmount(cleaned)
	if err != nil {
		return "", err
	}
	whole := d.Truncate(0).String()
	return whole[len(whole)-1:], nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	cleaned := strings.ReplaceAll(raw, ",", "")
	if cleaned == "" {
		return decimal.Decimal{}, errors.New("empty amount")
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("not numeric: %w", err)
	}
	if d.IsNegative() {
		return decimal.Decimal{}, errors.New("negative amount")
	}
	return d, nil
}
