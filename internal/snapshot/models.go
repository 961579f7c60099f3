package snapshot

// Period identifies one of the two daily recording windows.
type Period string

const (
	PeriodAM Period = "am"
	PeriodPM Period = "pm"
)

// Valid reports whether p is one of the two known windows.
func (p Period) Valid() bool {
	return p == PeriodAM || p == PeriodPM
}

// Reading is one fetch-derive cycle's output. When Error is set the three
// value fields are empty, never partial or stale.
type Reading struct {
	TwoD      string `json:"twod"`
	Set       string `json:"set"`
	Value     string `json:"value"`
	FetchedAt int64  `json:"fetched_at"`
	Error     string `json:"error,omitempty"`
}

// Failed reports whether the reading carries an error instead of values.
func (r Reading) Failed() bool {
	return r.Error != ""
}

// Daily is the single mutable record holding today's snapshots. Date and Time
// track the last recorder invocation; AM/PM are filled at most once per
// window per day.
type Daily struct {
	Date string   `json:"date"`
	Time string   `json:"time"`
	AM   *Reading `json:"am"`
	PM   *Reading `json:"pm"`
}

// PlaceholderDaily is the shape returned when no record exists yet.
func PlaceholderDaily() Daily {
	return Daily{Date: "--", Time: "--"}
}

// Get returns the reading stored for a period, if any.
func (d *Daily) Get(p Period) *Reading {
	switch p {
	case PeriodAM:
		return d.AM
	case PeriodPM:
		return d.PM
	}
	return nil
}

// Set stores a reading for a period.
func (d *Daily) Set(p Period, r Reading) {
	switch p {
	case PeriodAM:
		d.AM = &r
	case PeriodPM:
		d.PM = &r
	}
}

// History maps calendar date -> period -> recorded reading. Entries are only
// ever inserted or overwritten in place, never deleted.
type History map[string]map[Period]Reading

// Put inserts or overwrites the (date, period) entry.
func (h History) Put(date string, p Period, r Reading) {
	day, ok := h[date]
	if !ok {
		day = make(map[Period]Reading, 2)
		h[date] = day
	}
	day[p] = r
}

// Get looks up the (date, period) entry.
func (h History) Get(date string, p Period) (Reading, bool) {
	day, ok := h[date]
	if !ok {
		return Reading{}, false
	}
	r, ok := day[p]
	return r, ok
}
