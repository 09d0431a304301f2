package calculation

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/firesim/fire-planner/internal/domain"
	"github.com/firesim/fire-planner/pkg/dateutil"
	"github.com/shopspring/decimal"
)

// HISTORICAL DATA ASSUMPTIONS:
//
// 1. Series are monthly total returns expressed as decimal fractions
//    (0.01 = +1%). Rows are sorted by date after loading regardless of
//    file order.
//
// 2. A window of 12 consecutive months compounds into one annual return.
//    Backtest windows advance one month at a time, so a series of N
//    months and a horizon of H months yields exactly N-H+1 windows.
//
// 3. Gaps in the calendar are never silently interpolated: any window
//    whose data points span more calendar months than its length is
//    excluded from historical modes, and the excluded count is reported
//    through coverage metadata.

// ReturnPoint is one month of the historical series.
type ReturnPoint struct {
	Date   time.Time
	Return decimal.Decimal
}

// HistoricalSeries is an immutable, chronologically sorted monthly return
// series. Generators index into it concurrently without locking.
type HistoricalSeries struct {
	points []ReturnPoint
}

// monthsPerYear is the compounding block size for annual windows.
const monthsPerYear = 12

// NewHistoricalSeries sorts and validates a set of monthly points.
func NewHistoricalSeries(points []ReturnPoint) (*HistoricalSeries, error) {
	if len(points) == 0 {
		return nil, domain.NewConfigurationError("historical_series", "series contains no data points")
	}
	sorted := make([]ReturnPoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Date.Equal(sorted[i-1].Date) {
			return nil, domain.NewConfigurationError("historical_series",
				"duplicate month %s", sorted[i].Date.Format("2006-01"))
		}
	}
	for _, p := range sorted {
		if p.Return.LessThanOrEqual(decimal.NewFromInt(-1)) {
			return nil, domain.NewConfigurationError("historical_series",
				"return %s at %s implies a total loss beyond -100%%", p.Return, p.Date.Format("2006-01"))
		}
	}
	return &HistoricalSeries{points: sorted}, nil
}

// LoadHistoricalCSV reads a date,return CSV file into a series.
func LoadHistoricalCSV(path string) (*HistoricalSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open historical series %s: %w", path, err)
	}
	defer f.Close()
	return ParseHistoricalCSV(f)
}

// ParseHistoricalCSV parses a two-column CSV stream. The header row is
// optional; dates accept YYYY-MM or YYYY-MM-DD.
func ParseHistoricalCSV(r io.Reader) (*HistoricalSeries, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	var points []ReturnPoint
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read historical series row %d: %w", line+1, err)
		}
		line++
		if len(record) < 2 {
			return nil, domain.NewConfigurationError("historical_series",
				"row %d has %d columns, want 2 (date,return)", line, len(record))
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(record[0]), "date") {
			continue
		}

		date, err := dateutil.ParseMonth(strings.TrimSpace(record[0]))
		if err != nil {
			return nil, domain.NewConfigurationError("historical_series",
				"row %d: %v", line, err)
		}
		ret, err := decimal.NewFromString(strings.TrimSpace(record[1]))
		if err != nil {
			return nil, domain.NewConfigurationError("historical_series",
				"row %d: invalid return %q", line, record[1])
		}
		points = append(points, ReturnPoint{Date: date, Return: ret})
	}
	return NewHistoricalSeries(points)
}

// Months returns the number of data points.
func (h *HistoricalSeries) Months() int { return len(h.points) }

// Point returns the i-th month in chronological order.
func (h *HistoricalSeries) Point(i int) ReturnPoint { return h.points[i] }

// Span returns the first and last months of the series.
func (h *HistoricalSeries) Span() (start, end time.Time) {
	return h.points[0].Date, h.points[len(h.points)-1].Date
}

// WindowCount returns the number of candidate windows of the given
// length, zero when the series is too short. Candidates may still span
// calendar gaps; WindowContiguous filters those.
func (h *HistoricalSeries) WindowCount(horizonMonths int) int {
	n := len(h.points) - horizonMonths + 1
	if n < 0 {
		return 0
	}
	return n
}

// WindowContiguous reports whether the window of the given length
// starting at the given index covers consecutive calendar months.
func (h *HistoricalSeries) WindowContiguous(start, horizonMonths int) bool {
	if start < 0 || horizonMonths <= 0 || start+horizonMonths > len(h.points) {
		return false
	}
	first := h.points[start].Date
	last := h.points[start+horizonMonths-1].Date
	return dateutil.MonthsBetween(first, last) == horizonMonths-1
}

// ContiguousWindowStarts returns the start index of every gap-free
// window of the given length, in chronological order.
func (h *HistoricalSeries) ContiguousWindowStarts(horizonMonths int) []int {
	var starts []int
	for s := 0; s+horizonMonths <= len(h.points); s++ {
		if h.WindowContiguous(s, horizonMonths) {
			starts = append(starts, s)
		}
	}
	return starts
}

// CompoundAnnual compounds the 12 months starting at index start into a
// single annual return.
func (h *HistoricalSeries) CompoundAnnual(start int) decimal.Decimal {
	factor := decimal.NewFromInt(1)
	one := decimal.NewFromInt(1)
	for i := start; i < start+monthsPerYear && i < len(h.points); i++ {
		factor = factor.Mul(one.Add(h.points[i].Return))
	}
	return factor.Sub(one)
}

// SeriesStats summarizes a monthly return series.
type SeriesStats struct {
	Count  int
	Mean   decimal.Decimal
	StdDev decimal.Decimal
	Min    decimal.Decimal
	Max    decimal.Decimal
}

// Stats computes summary statistics over the monthly returns. The
// standard deviation is the population deviation, computed in float64.
func (h *HistoricalSeries) Stats() SeriesStats {
	n := len(h.points)
	stats := SeriesStats{Count: n, Min: h.points[0].Return, Max: h.points[0].Return}

	sum := decimal.Zero
	for _, p := range h.points {
		sum = sum.Add(p.Return)
		stats.Min = decimal.Min(stats.Min, p.Return)
		stats.Max = decimal.Max(stats.Max, p.Return)
	}
	stats.Mean = sum.Div(decimal.NewFromInt(int64(n)))

	mean, _ := stats.Mean.Float64()
	var variance float64
	for _, p := range h.points {
		r, _ := p.Return.Float64()
		variance += (r - mean) * (r - mean)
	}
	stats.StdDev = decimal.NewFromFloat(math.Sqrt(variance / float64(n)))
	return stats
}

// Completeness returns the fraction of calendar months between the span
// endpoints that have a data point, in [0, 1].
func (h *HistoricalSeries) Completeness() decimal.Decimal {
	start, end := h.Span()
	calendar := dateutil.MonthsBetween(start, end) + 1
	if calendar <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(len(h.points))).Div(decimal.NewFromInt(int64(calendar)))
}

// Coverage builds the sample-quality metadata for a run that evaluated
// the given number of windows and excluded the given number.
func (h *HistoricalSeries) Coverage(windowsEvaluated, windowsExcluded int) *domain.CoverageMetadata {
	start, end := h.Span()
	return &domain.CoverageMetadata{
		WindowsEvaluated:    windowsEvaluated,
		WindowsExcluded:     windowsExcluded,
		SpanStart:           start,
		SpanEnd:             end,
		MonthlyCompleteness: h.Completeness(),
	}
}
