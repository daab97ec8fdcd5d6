// Package report runs the fixed query battery over a loaded users table and
// renders the results as labeled sections.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/ajitpratap0/tabulate/pkg/analytics"
	"github.com/ajitpratap0/tabulate/pkg/markup"
	"github.com/ajitpratap0/tabulate/pkg/record"
	"github.com/ajitpratap0/tabulate/pkg/schema"
	"github.com/ajitpratap0/tabulate/pkg/table"
)

// Columns names the attributes each query reads
type Columns struct {
	ID         string `yaml:"id" mapstructure:"id"`
	Name       string `yaml:"name" mapstructure:"name"`
	Created    string `yaml:"created" mapstructure:"created"`
	LastAccess string `yaml:"last_access" mapstructure:"last_access"`
	Age        string `yaml:"age" mapstructure:"age"`
	DownVotes  string `yaml:"down_votes" mapstructure:"down_votes"`
	UpVotes    string `yaml:"up_votes" mapstructure:"up_votes"`
	Views      string `yaml:"views" mapstructure:"views"`
	Location   string `yaml:"location" mapstructure:"location"`
	WebsiteURL string `yaml:"website_url" mapstructure:"website_url"`
	AboutMe    string `yaml:"about_me" mapstructure:"about_me"`
}

// UserColumns returns the column names of the default users schema
func UserColumns() Columns {
	return Columns{
		ID:         schema.AttrID,
		Name:       schema.AttrDisplayName,
		Created:    schema.AttrCreationDate,
		LastAccess: schema.AttrLastAccessDate,
		Age:        schema.AttrAge,
		DownVotes:  schema.AttrDownVotes,
		UpVotes:    schema.AttrUpVotes,
		Views:      schema.AttrViews,
		Location:   schema.AttrLocation,
		WebsiteURL: schema.AttrWebsiteURL,
		AboutMe:    schema.AttrAboutMe,
	}
}

// Options control the query parameters and listing size
type Options struct {
	// DisplayLimit caps listed rows per section. 0 lists none, negative lists all.
	DisplayLimit int
	// TopLocations is n for the location frequency ranking
	TopLocations int
	// StaleWindow is how long without access makes a user stale
	StaleWindow time.Duration
	// Now is the reference time for the "now" staleness query
	Now time.Time
	// HistoricalReference is the fixed reference time for the second staleness query
	HistoricalReference time.Time
	Columns             Columns
}

// DefaultOptions returns the report settings of the users battery
func DefaultOptions() Options {
	return Options{
		DisplayLimit:        10,
		TopLocations:        20,
		StaleWindow:         180 * 24 * time.Hour,
		Now:                 time.Now().UTC(),
		HistoricalReference: time.Date(2014, 6, 1, 0, 0, 0, 0, time.UTC),
		Columns:             UserColumns(),
	}
}

// Section is one labeled query result
type Section struct {
	Title   string   `json:"title"`
	Lines   []string `json:"lines"`
	Count   int      `json:"count"`
	Rows    []int    `json:"rows,omitempty"`
	Listing []string `json:"listing,omitempty"`
	Omitted int      `json:"omitted,omitempty"`
}

// Report is the ordered result of the battery
type Report struct {
	Generated time.Time `json:"generated"`
	Records   int       `json:"records"`
	Sections  []Section `json:"sections"`
}

// Builder runs the battery against one table
type Builder struct {
	tbl  table.Table
	opts Options
}

// NewBuilder creates a builder. Zero-valued options fall back to defaults.
func NewBuilder(tbl table.Table, opts Options) *Builder {
	def := DefaultOptions()
	if opts.TopLocations == 0 {
		opts.TopLocations = def.TopLocations
	}
	if opts.StaleWindow == 0 {
		opts.StaleWindow = def.StaleWindow
	}
	if opts.Now.IsZero() {
		opts.Now = def.Now
	}
	if opts.HistoricalReference.IsZero() {
		opts.HistoricalReference = def.HistoricalReference
	}
	if opts.Columns == (Columns{}) {
		opts.Columns = def.Columns
	}
	return &Builder{tbl: tbl, opts: opts}
}

// Build runs every query in order. Any query error aborts the report.
func (b *Builder) Build() (*Report, error) {
	c := b.opts.Columns
	r := &Report{Generated: b.opts.Now, Records: b.tbl.Len()}

	steps := []func() (Section, error){
		func() (Section, error) { return b.extreme("Oldest user", "date for oldest user", c.Created, analytics.Min) },
		func() (Section, error) { return b.extreme("Newest user", "date for newest user", c.Created, analytics.Max) },
		func() (Section, error) { return b.mean("Average user age", "average user age", c.Age) },
		func() (Section, error) { return b.extreme("User with highest downvote", "highest downvote", c.DownVotes, analytics.Max) },
		func() (Section, error) { return b.extreme("User with highest views", "highest views", c.Views, analytics.Max) },
		func() (Section, error) { return b.extreme("User with highest upvote", "highest upvote", c.UpVotes, analytics.Max) },
		func() (Section, error) { return b.extreme("User with lowest views", "lowest views", c.Views, analytics.Min) },
		func() (Section, error) { return b.stale(b.opts.Now, false) },
		func() (Section, error) { return b.stale(b.opts.HistoricalReference, true) },
	}
	for _, bound := range analytics.AgeBuckets() {
		steps = append(steps, func() (Section, error) { return b.bucket(bound) })
	}
	steps = append(steps,
		func() (Section, error) {
			return b.frequency(fmt.Sprintf("Top %d locations", b.opts.TopLocations), c.Location, b.opts.TopLocations)
		},
		func() (Section, error) {
			return b.frequency("Counts of users with same website urls", c.WebsiteURL, 0)
		},
		b.aboutMe,
	)

	for _, step := range steps {
		s, err := step()
		if err != nil {
			return nil, err
		}
		r.Sections = append(r.Sections, s)
	}
	return r, nil
}

func (b *Builder) extreme(title, label, column string, dir analytics.Direction) (Section, error) {
	col, err := b.tbl.Column(column)
	if err != nil {
		return Section{}, err
	}
	if col.Len() == 0 {
		return Section{Title: title, Lines: []string{label + ": none"}}, nil
	}
	ex, err := analytics.ExtremeWithTies(col, dir)
	if err != nil {
		return Section{}, err
	}

	s := Section{
		Title: title,
		Lines: []string{
			fmt.Sprintf("%s: %s", label, ex.Value),
			fmt.Sprintf("%s count: %d", label, ex.Count()),
		},
	}
	return b.withRows(s, ex.Rows, column)
}

func (b *Builder) mean(title, label, column string) (Section, error) {
	col, err := b.tbl.Column(column)
	if err != nil {
		return Section{}, err
	}
	avg, err := analytics.MeanWithMissingSubstitution(col)
	if err != nil {
		return Section{}, err
	}
	return Section{
		Title: title,
		Lines: []string{fmt.Sprintf("%s: %s", label, formatFloat(avg))},
		Count: col.Len(),
	}, nil
}

func (b *Builder) stale(reference time.Time, historical bool) (Section, error) {
	column := b.opts.Columns.LastAccess
	col, err := b.tbl.Column(column)
	if err != nil {
		return Section{}, err
	}
	cutoff := analytics.Cutoff(reference, b.opts.StaleWindow)
	rows, err := analytics.StaleSince(col, cutoff)
	if err != nil {
		return Section{}, err
	}

	days := int(b.opts.StaleWindow / (24 * time.Hour))
	title := fmt.Sprintf("Users that do not access the website for more than %d days: %d", days, len(rows))
	if historical {
		title = fmt.Sprintf("Users that do not access the website for more than %d days before %s i.e. %s: %d",
			days, reference.Format("2006-01-02 15:04:05"), record.DateValue(cutoff), len(rows))
	}
	return b.withRows(Section{Title: title}, rows, column)
}

func (b *Builder) bucket(bound analytics.Bound) (Section, error) {
	column := b.opts.Columns.Age
	col, err := b.tbl.Column(column)
	if err != nil {
		return Section{}, err
	}
	rows, err := analytics.ThresholdBucket(col, bound)
	if err != nil {
		return Section{}, err
	}
	title := fmt.Sprintf("Users that are %s: %d", bound.Label, len(rows))
	return b.withRows(Section{Title: title}, rows, column)
}

func (b *Builder) frequency(title, column string, n int) (Section, error) {
	col, err := b.tbl.Column(column)
	if err != nil {
		return Section{}, err
	}
	groups, err := analytics.TopNByFrequency(col, n)
	if err != nil {
		return Section{}, err
	}

	lines := make([]string, 0, len(groups))
	for _, g := range groups {
		lines = append(lines, fmt.Sprintf("%s: %d", g.Value, g.Count))
	}
	listing, omitted := b.truncate(lines)
	return Section{Title: title, Count: len(groups), Listing: listing, Omitted: omitted}, nil
}

func (b *Builder) aboutMe() (Section, error) {
	col, err := b.tbl.Column(b.opts.Columns.AboutMe)
	if err != nil {
		return Section{}, err
	}
	c, err := analytics.TextLengthClassification(col, markup.CountWords, markup.Normalize)
	if err != nil {
		return Section{}, err
	}
	return Section{
		Title: "Counts of users with above/below average number of words AboutMe section",
		Lines: []string{
			fmt.Sprintf("average AboutMe word count: %s", formatFloat(c.Mean)),
			fmt.Sprintf("number of users with above average number of words AboutMe section: %d", c.Above),
			fmt.Sprintf("number of users with below average number of words AboutMe section: %d", c.Below),
			fmt.Sprintf("number of users with average number of words AboutMe section: %d", c.Equal),
		},
		Count: col.Len(),
	}, nil
}

// withRows attaches matching rows and a bounded listing of them
func (b *Builder) withRows(s Section, rows []int, column string) (Section, error) {
	s.Count = len(rows)
	s.Rows = rows

	shown := rows
	if b.opts.DisplayLimit >= 0 && len(shown) > b.opts.DisplayLimit {
		shown = shown[:b.opts.DisplayLimit]
	}
	s.Omitted = len(rows) - len(shown)

	for _, i := range shown {
		line, err := b.describeRow(i, column)
		if err != nil {
			return Section{}, err
		}
		s.Listing = append(s.Listing, line)
	}
	return s, nil
}

func (b *Builder) truncate(lines []string) ([]string, int) {
	if b.opts.DisplayLimit < 0 || len(lines) <= b.opts.DisplayLimit {
		return lines, 0
	}
	return lines[:b.opts.DisplayLimit], len(lines) - b.opts.DisplayLimit
}

// describeRow formats the identity, name and queried attribute of a row
func (b *Builder) describeRow(i int, column string) (string, error) {
	row, err := b.tbl.Row(i)
	if err != nil {
		return "", err
	}

	parts := []string{fmt.Sprintf("row %d", i)}
	for _, name := range []string{b.opts.Columns.ID, b.opts.Columns.Name, column} {
		if v, ok := row.Get(name); ok {
			parts = append(parts, fmt.Sprintf("%s=%s", name, v))
		}
	}
	return strings.Join(parts, " "), nil
}

func formatFloat(f float64) string {
	return fmt.Sprintf("%.4f", f)
}
