// Package report renders detection events as text reports.
//
// This package defines a Renderer interface implemented by one type per
// style (email, structured, plain), along with the shared category
// breakdown and formatting helpers the renderers build on. Renderers are
// pure: their output depends only on the Input. Formatter.Format stamps a
// zero GeneratedAt from the Formatter's clock, so a report is reproducible
// whenever the caller sets GeneratedAt or supplies a fixed clock.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/AlBaraa63/Clean-City/internal/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// =============================================================================
// Styles
// =============================================================================

// Style selects a report encoding.
type Style string

const (
	StyleEmail      Style = "email"
	StyleStructured Style = "structured"
	StylePlain      Style = "plain"
)

// DefaultStyle is used when no style is requested.
const DefaultStyle = StyleEmail

// ParseStyle normalizes a style name. "markdown" is accepted as an alias
// for structured and the empty string selects DefaultStyle.
func ParseStyle(s string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultStyle, nil
	case "email":
		return StyleEmail, nil
	case "structured", "markdown":
		return StyleStructured, nil
	case "plain", "text":
		return StylePlain, nil
	}
	return "", domain.Errorf(domain.EINVALID, "report.parse_style",
		"unknown report style %q (expected email, structured or plain)", s)
}

// =============================================================================
// Input / Output
// =============================================================================

// Input is everything a report may show. Zero values mark absent fields.
type Input struct {
	Detections  []domain.Detection
	Severity    domain.Severity
	Location    string
	Notes       string
	EventID     int64        // 0 when the event was not logged
	Plan        *domain.Plan // nil when no plan was computed
	GeneratedAt time.Time
}

// Report is a rendered report with its metadata.
type Report struct {
	Text        string    `json:"report"`
	Style       Style     `json:"format"`
	GeneratedAt time.Time `json:"generated_at"`
	EventID     int64     `json:"event_id,omitempty"`
}

// Placeholders for absent optional fields.
const (
	PlaceholderNone        = "None"
	PlaceholderNotLogged   = "Not logged"
	PlaceholderUnavailable = "N/A"
	PlaceholderNoPlan      = "No cleanup plan was computed for this report."
)

// =============================================================================
// Renderer Interface
// =============================================================================

// Renderer produces one report style.
type Renderer interface {
	Render(in Input, b Breakdown) string

	// Style returns the style this renderer produces.
	Style() Style
}

// Formatter dispatches to the renderer for each style.
type Formatter struct {
	renderers map[Style]Renderer
	now       func() time.Time
}

// FormatterOption configures a Formatter.
type FormatterOption func(*Formatter)

// WithClock sets the time source used when an Input has no GeneratedAt.
func WithClock(now func() time.Time) FormatterOption {
	return func(f *Formatter) { f.now = now }
}

// NewFormatter creates a Formatter with the built-in renderers. The clock
// defaults to time.Now.
func NewFormatter(opts ...FormatterOption) *Formatter {
	f := &Formatter{renderers: map[Style]Renderer{}, now: time.Now}
	for _, r := range []Renderer{EmailRenderer{}, StructuredRenderer{}, PlainRenderer{}} {
		f.renderers[r.Style()] = r
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format renders in with the requested style. It fails only for an
// unknown style. A zero in.GeneratedAt is replaced by the Formatter's clock.
func (f *Formatter) Format(in Input, style Style) (Report, error) {
	r, ok := f.renderers[style]
	if !ok {
		return Report{}, domain.Errorf(domain.EINVALID, "report.format", "unknown report style %q", style)
	}
	if in.GeneratedAt.IsZero() {
		in.GeneratedAt = f.now()
	}
	return Report{
		Text:        r.Render(in, NewBreakdown(in.Detections)),
		Style:       style,
		GeneratedAt: in.GeneratedAt,
		EventID:     in.EventID,
	}, nil
}

// =============================================================================
// Category Breakdown
// =============================================================================

// Breakdown is the per-label grouping shared by every renderer.
type Breakdown struct {
	Total int
	// ByCount is ordered by count descending, then label.
	ByCount []domain.LabelCount
}

// NewBreakdown groups detections by label.
func NewBreakdown(detections []domain.Detection) Breakdown {
	return Breakdown{
		Total:   len(detections),
		ByCount: domain.CountLabels(detections),
	}
}

// Alphabetical returns the groups ordered by label.
func (b Breakdown) Alphabetical() []domain.LabelCount {
	out := append([]domain.LabelCount(nil), b.ByCount...)
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// Categories is the number of distinct labels.
func (b Breakdown) Categories() int {
	return len(b.ByCount)
}

// =============================================================================
// Text Formatting Helpers
// =============================================================================

// HumanizeLabel turns a label such as "plastic_bottle" into "Plastic Bottle".
func HumanizeLabel(label string) string {
	// Casers are stateful and not safe to share.
	return cases.Title(language.English).String(strings.ReplaceAll(label, "_", " "))
}

// SeverityLabel returns the upper-case severity shown in report headers.
func SeverityLabel(severity domain.Severity) string {
	if severity == "" {
		return strings.ToUpper(PlaceholderUnavailable)
	}
	return strings.ToUpper(string(severity))
}

// FormatDate formats a date for display in reports.
func FormatDate(t time.Time) string {
	return t.Format("January 2, 2006")
}

// FormatDateTime formats a timestamp for display in reports.
func FormatDateTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

func orPlaceholder(s, placeholder string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}

func eventIDText(id int64) string {
	if id <= 0 {
		return PlaceholderNotLogged
	}
	return fmt.Sprintf("%d", id)
}

func equipmentText(items []string) string {
	if len(items) == 0 {
		return PlaceholderNone
	}
	return strings.Join(items, ", ")
}
