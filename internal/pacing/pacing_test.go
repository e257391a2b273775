package pacing

import (
	"math"
	"testing"
	"time"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func TestElapsedFractionEndpoints(t *testing.T) {
	start := mustDate(t, "2024-01-01")
	end := mustDate(t, "2025-01-01")

	if got := ElapsedFraction(start, start, end); got != 0 {
		t.Fatalf("ElapsedFraction(start) = %v, want 0", got)
	}
	if got := ElapsedFraction(end, start, end); got != 100 {
		t.Fatalf("ElapsedFraction(end) = %v, want 100", got)
	}
	if got := ElapsedFraction(end.AddDate(0, 3, 0), start, end); got != 100 {
		t.Fatalf("ElapsedFraction(after end) = %v, want 100", got)
	}
}

func TestElapsedFractionMonotonic(t *testing.T) {
	start := mustDate(t, "2024-01-01")
	end := mustDate(t, "2025-01-01")

	prev := -1.0
	for now := start; !now.After(end); now = now.AddDate(0, 0, 7) {
		f := ElapsedFraction(now, start, end)
		if f < 0 || f > 100 {
			t.Fatalf("ElapsedFraction(%s) = %v, out of [0,100]", now.Format("2006-01-02"), f)
		}
		if f < prev {
			t.Fatalf("ElapsedFraction(%s) = %v, decreased from %v", now.Format("2006-01-02"), f, prev)
		}
		prev = f
	}
}

func TestElapsedFractionBeforeStart(t *testing.T) {
	start := mustDate(t, "2024-01-01")
	end := mustDate(t, "2025-01-01")

	got := ElapsedFraction(start.AddDate(0, 0, -1), start, end)
	if got <= 0 || got >= 1 {
		t.Fatalf("ElapsedFraction(day before start) = %v, want small positive", got)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-5, 0},
		{0, 0},
		{42.5, 42.5},
		{100, 100},
		{180, 100},
		{math.NaN(), 0},
		{math.Inf(1), 100},
	}
	for _, tt := range tests {
		if got := Clamp(tt.in); got != tt.want {
			t.Fatalf("Clamp(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMonthlyAllowance(t *testing.T) {
	tests := []struct {
		name                   string
		target, actual, elapsd float64
		want                   Allowance
	}{
		{
			name:   "income on track",
			target: 1200, actual: 300, elapsd: 25,
			want: Allowance{Value: 100, Status: StatusOnTrack},
		},
		{
			name:   "expense with room left",
			target: -1200, actual: -300, elapsd: 25,
			want: Allowance{Value: 100, Status: StatusOnTrack},
		},
		{
			name:   "expense overrun",
			target: -500, actual: -600, elapsd: 50,
			want: Allowance{Value: -17, Overrun: true, Status: StatusDanger},
		},
		{
			name:   "small expense overrun stays neutral",
			target: -1200, actual: -1250, elapsd: 50,
			want: Allowance{Value: -8, Overrun: true, Status: StatusOnTrack},
		},
		{
			name:   "income goal exceeded",
			target: 1000, actual: 1500, elapsd: 50,
			want: Allowance{Value: -83, Overrun: true, Exceeded: true, Status: StatusCelebratory},
		},
		{
			name:   "exactly on target mid period",
			target: 1200, actual: 1200, elapsd: 50,
			want: Allowance{Value: 0, Status: StatusOnTrack},
		},
		{
			name:   "below noise band",
			target: -1200, actual: -1194, elapsd: 50,
			want: Allowance{Value: 0, Status: StatusOnTrack},
		},
		{
			name:   "last stretch uses whole remainder",
			target: -1200, actual: -1000, elapsd: 95,
			want: Allowance{Value: 200, Status: StatusOnTrack},
		},
		{
			name:   "elapsed past end is clamped",
			target: -1200, actual: -1000, elapsd: 150,
			want: Allowance{Value: 200, Status: StatusOnTrack},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MonthlyAllowance(tt.target, tt.actual, tt.elapsd)
			if got != tt.want {
				t.Fatalf("MonthlyAllowance(%v, %v, %v) = %+v, want %+v",
					tt.target, tt.actual, tt.elapsd, got, tt.want)
			}
		})
	}
}

func TestMonthlyAllowanceNeverZeroInsideMainPeriod(t *testing.T) {
	// A remainder of exactly 0 is forced to +1 before the noise band hides it.
	// For income that keeps the sign of the target; for an expense sitting at
	// its ceiling it flips the sign, so the row reads as a shown-as-0 overrun.
	tests := []struct {
		name           string
		target, actual float64
		want           Allowance
	}{
		{"income on target", 600, 600, Allowance{Value: 0, Status: StatusOnTrack}},
		{"expense at ceiling", -500, -500, Allowance{Value: 0, Overrun: true, Status: StatusOnTrack}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for elapsed := 0.0; elapsed <= lastStretch; elapsed += 5 {
				got := MonthlyAllowance(tt.target, tt.actual, elapsed)
				if got != tt.want {
					t.Fatalf("MonthlyAllowance(%v, %v, %v) = %+v, want %+v",
						tt.target, tt.actual, elapsed, got, tt.want)
				}
			}
		})
	}

	got := MonthlyAllowance(-500, -500, 50)
	if !got.Overrun || got.Value != 0 {
		t.Fatalf("MonthlyAllowance(-500, -500, 50) = %+v, want a 0 overrun", got)
	}
}

func TestFillBar(t *testing.T) {
	tests := []struct {
		name                   string
		target, actual, elapsd float64
		wantFill               float64
		wantTier               Status
	}{
		{"expense refund", -500, 200, 40, 0, StatusOnTrack},
		{"income went negative", 1000, -50, 50, 100, StatusDanger},
		{"income goal exceeded", 1000, 1500, 50, 100, StatusCelebratory},
		{"expense ceiling exceeded", -1000, -1500, 50, 100, StatusDanger},
		{"expense ahead of pace", -1200, -800, 50, 800.0 / 1200.0 * 100, StatusCaution},
		{"expense within buffer", -1200, -600, 50, 50, StatusOnTrack},
		{"income behind is not flagged", 1000, 250, 50, 25, StatusOnTrack},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FillBar(tt.target, tt.actual, tt.elapsd)
			if math.Abs(got.Fill-tt.wantFill) > 1e-9 {
				t.Fatalf("Fill = %v, want %v", got.Fill, tt.wantFill)
			}
			if got.Tier != tt.wantTier {
				t.Fatalf("Tier = %v, want %v", got.Tier, tt.wantTier)
			}
			if got.Marker != tt.elapsd {
				t.Fatalf("Marker = %v, want %v", got.Marker, tt.elapsd)
			}
		})
	}
}

func TestFillBarAlwaysInRange(t *testing.T) {
	values := []float64{-20000, -1200, -1, 0, 1, 600, 1200, 20000}
	for _, target := range values {
		for _, actual := range values {
			for _, elapsed := range []float64{0, 33, 100} {
				got := FillBar(target, actual, elapsed)
				if got.Fill < 0 || got.Fill > 100 || math.IsNaN(got.Fill) {
					t.Fatalf("FillBar(%v, %v, %v).Fill = %v, out of [0,100]",
						target, actual, elapsed, got.Fill)
				}
			}
		}
	}
}

func TestFillBarHeight(t *testing.T) {
	tests := []struct {
		target float64
		want   int
	}{
		{12000, 1},
		{-500, 1},
		{-6000, 2},
		{-14999, 3},
		{-50000, 3},
	}
	for _, tt := range tests {
		if got := FillBar(tt.target, 0, 50).Height; got != tt.want {
			t.Fatalf("FillBar(%v).Height = %d, want %d", tt.target, got, tt.want)
		}
	}
}

func TestDailyPace(t *testing.T) {
	tests := []struct {
		name                   string
		target, actual, elapsd float64
		want                   Pace
	}{
		{
			name:   "expense under pace",
			target: -1200, actual: -300, elapsd: 50,
			want: Pace{Amount: 300, Status: StatusOnTrack},
		},
		{
			name:   "expense over pace within a month",
			target: -500, actual: -270, elapsd: 50,
			want: Pace{Amount: 20, Sign: "-", Status: StatusCaution},
		},
		{
			name:   "expense far over pace",
			target: -500, actual: -600, elapsd: 50,
			want: Pace{Amount: 350, Sign: "-", Status: StatusDanger},
		},
		{
			name:   "income ahead of pace",
			target: 1000, actual: 700, elapsd: 50,
			want: Pace{Amount: 200, Sign: "-", Status: StatusCelebratory},
		},
		{
			name:   "exactly on pace",
			target: -1000, actual: -500, elapsd: 50,
			want: Pace{Amount: 0, Status: StatusOnTrack},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DailyPace(tt.target, tt.actual, tt.elapsd)
			if got != tt.want {
				t.Fatalf("DailyPace(%v, %v, %v) = %+v, want %+v",
					tt.target, tt.actual, tt.elapsd, got, tt.want)
			}
		})
	}
}

func TestStatusString(t *testing.T) {
	if got := StatusCaution.String(); got != "caution" {
		t.Fatalf("StatusCaution.String() = %q, want caution", got)
	}
	b, err := StatusCelebratory.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	if string(b) != "celebratory" {
		t.Fatalf("MarshalText = %q, want celebratory", b)
	}
	if got := Status(99).String(); got != "" {
		t.Fatalf("Status(99).String() = %q, want empty", got)
	}
}
