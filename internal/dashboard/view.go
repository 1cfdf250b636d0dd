package dashboard

import (
	"cmp"
	"fmt"
	"html/template"
	"math"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/laptoptracker/laptop-tracker/internal/age"
	"github.com/laptoptracker/laptop-tracker/internal/model"
)

// Filter selects an age category.
type Filter string

const (
	FilterAll         Filter = "all"
	FilterReplacement Filter = "replacement"
	FilterWarning     Filter = "warning"
	FilterGood        Filter = "good"
)

// Filters in display order.
var Filters = []Filter{FilterAll, FilterReplacement, FilterWarning, FilterGood}

// ParseFilter maps a query value to a Filter. Unknown values select all.
func ParseFilter(s string) Filter {
	f := Filter(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Filters, f) {
		return f
	}
	return FilterAll
}

// Label is the button text.
func (f Filter) Label() string {
	switch f {
	case FilterReplacement:
		return "Needs Replacement"
	case FilterWarning:
		return "Warning"
	case FilterGood:
		return "Good"
	default:
		return "All Devices"
	}
}

func (f Filter) matches(c age.Category, known bool) bool {
	switch f {
	case FilterAll:
		return true
	case FilterReplacement:
		return known && c == age.Danger
	case FilterWarning:
		return known && c == age.Warning
	case FilterGood:
		return known && c == age.Good
	}
	return false
}

// Stats summarises all devices of a feed, ignoring search and filter.
type Stats struct {
	Total       int
	Replacement int
	Warning     int
	Good        int
}

// Item is one rendered device row.
type Item struct {
	Device   model.Device
	Initials string
	// Known is false when no enrollment timestamp parses.
	Known    bool
	Years    float64
	Category age.Category

	DeviceName template.HTML
	UserName   template.HTML
	UserEmail  template.HTML
	Model      template.HTML
	Serial     template.HTML
}

// Label is the status bubble text.
func (i Item) Label() string {
	if !i.Known {
		return "UNKNOWN"
	}
	return i.Category.Label()
}

// RowClass is the CSS class of the row.
func (i Item) RowClass() string {
	switch {
	case !i.Known:
		return "unknown"
	case i.Category == age.Danger:
		return "needs-replacement"
	default:
		return string(i.Category)
	}
}

// BubbleClass is the CSS class of the status bubble.
func (i Item) BubbleClass() string {
	if !i.Known {
		return "age-unknown"
	}
	return "age-" + string(i.Category)
}

// AgeText renders the age with one decimal.
func (i Item) AgeText() string {
	if !i.Known {
		return "n/a"
	}
	return fmt.Sprintf("%.1f years", i.Years)
}

// View is everything the list fragment needs.
type View struct {
	Feed      Feed
	Query     string
	Filter    Filter
	Stats     Stats
	Items     []Item
	Empty     string
	Error     *ErrorView
	UpdatedAt time.Time
	Loaded    bool
}

// ErrorView is a failed poll as shown to the user.
type ErrorView struct {
	Summary string
	Message string
	Hint    string
	Raw     string
}

// Build runs the render pipeline: search, then category filter, then sort
// by age with the oldest first.
func Build(devices []model.Device, now time.Time, query string, filter Filter) View {
	query = strings.TrimSpace(query)
	v := View{Query: query, Filter: filter, Loaded: true}

	items := make([]Item, 0, len(devices))
	for _, d := range devices {
		item := newItem(d, now, query)
		v.Stats.Total++
		if item.Known {
			switch item.Category {
			case age.Danger:
				v.Stats.Replacement++
			case age.Warning:
				v.Stats.Warning++
			default:
				v.Stats.Good++
			}
		}

		if !Matches(d, query) || !filter.matches(item.Category, item.Known) {
			continue
		}
		items = append(items, item)
	}

	slices.SortStableFunc(items, func(a, b Item) int {
		switch {
		case !a.Known && !b.Known:
			return 0
		case !a.Known:
			return 1
		case !b.Known:
			return -1
		}
		return cmp.Compare(b.Years, a.Years)
	})
	v.Items = items

	switch {
	case len(devices) == 0:
		v.Empty = "No devices found"
	case len(items) == 0 && query != "":
		v.Empty = fmt.Sprintf("No devices found matching %q", query)
	case len(items) == 0:
		v.Empty = "No devices found"
	}
	return v
}

func newItem(d model.Device, now time.Time, query string) Item {
	userName := orDefault(d.User.Name, model.UnknownUser)
	item := Item{
		Device:     d,
		Initials:   Initials(userName),
		Years:      math.NaN(),
		DeviceName: Highlight(orDefault(d.DeviceName, model.UnknownDevice), query),
		UserName:   Highlight(userName, query),
		UserEmail:  Highlight(orDefault(d.User.Email, "No email"), query),
		Model:      Highlight(orDefault(d.Model, model.UnknownModel), query),
		Serial:     Highlight(orDefault(d.SerialNumber, model.UnknownSerial), query),
	}
	if a, err := age.Assess(now, d.EnrollmentCandidates()...); err == nil {
		item.Known = true
		item.Years = a.Years
		item.Category = a.Category
	}
	return item
}

// Matches reports whether query is a case-insensitive substring of the
// user name, user email, device name, model or serial.
func Matches(d model.Device, query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	for _, field := range []string{d.User.Name, d.User.Email, d.DeviceName, d.Model, d.SerialNumber} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// Highlight escapes text and wraps every case-insensitive occurrence of
// query in a highlight span.
func Highlight(text, query string) template.HTML {
	if query == "" || text == "" {
		return template.HTML(template.HTMLEscapeString(text))
	}

	re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(query))
	var b strings.Builder
	last := 0
	for _, loc := range re.FindAllStringIndex(text, -1) {
		b.WriteString(template.HTMLEscapeString(text[last:loc[0]]))
		b.WriteString(`<span class="search-highlight">`)
		b.WriteString(template.HTMLEscapeString(text[loc[0]:loc[1]]))
		b.WriteString(`</span>`)
		last = loc[1]
	}
	b.WriteString(template.HTMLEscapeString(text[last:]))
	return template.HTML(b.String())
}

// Initials returns the upper-cased first letter of each word, or "??".
func Initials(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "??"
	}
	var b strings.Builder
	for _, f := range fields {
		r := []rune(f)
		b.WriteString(strings.ToUpper(string(r[0])))
	}
	return b.String()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
