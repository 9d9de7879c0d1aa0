package params

import (
	"reflect"
	"testing"

	contractx "github.com/freshroute/agent-orchestrator/agent/contract"
)

func TestMatchLocation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text string
		want string
		ok   bool
	}{
		{"deliver to 42 baker street please", "42 baker street", true},
		{"pickup at main ave", "main ave", true},
		{"no address here", "", false},
	}
	for _, tc := range cases {
		got, ok := MatchLocation(tc.text)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("MatchLocation(%q) = (%q, %v), want (%q, %v)", tc.text, got, ok, tc.want, tc.ok)
		}
	}
}

func TestMatchNumbersOrderPreserved(t *testing.T) {
	t.Parallel()

	got := MatchNumbers("an order of $25.50 going 12 km by 5 pm")
	want := []float64{25.50, 12, 5}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("MatchNumbers = %v, want %v", got, want)
	}

	if got := MatchNumbers("no digits at all"); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestMatchTime(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text string
		want string
		ok   bool
	}{
		{"deliver by 5:30", "5:30", true},
		{"before 8 pm tonight", "8 pm", true},
		{"at 11am sharp", "11am", true},
		{"sometime soon", "", false},
	}
	for _, tc := range cases {
		got, ok := MatchTime(tc.text)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("MatchTime(%q) = (%q, %v), want (%q, %v)", tc.text, got, ok, tc.want, tc.ok)
		}
	}
}

func TestMatchOrderValue(t *testing.T) {
	t.Parallel()

	v, ok := MatchOrderValue("price an order worth $80.25 for me")
	if !ok || v != 80.25 {
		t.Fatalf("MatchOrderValue = (%v, %v), want (80.25, true)", v, ok)
	}
	if _, ok := MatchOrderValue("price this thing"); ok {
		t.Fatal("expected no match")
	}
}

func TestMatchFromTo(t *testing.T) {
	t.Parallel()

	from, to, ok := MatchFromTo("Optimize route from downtown to university")
	if !ok || from != "downtown" || to != "university" {
		t.Fatalf("MatchFromTo = (%q, %q, %v)", from, to, ok)
	}

	if _, _, ok := MatchFromTo("optimize my route"); ok {
		t.Fatal("expected no match without both spans")
	}
}

func TestMatchSearchQuery(t *testing.T) {
	t.Parallel()

	q, ok := MatchSearchQuery("search for refund policy details")
	if !ok || q != "refund policy details" {
		t.Fatalf("MatchSearchQuery = (%q, %v)", q, ok)
	}
	q, ok = MatchSearchQuery("tell me about rural surcharges?")
	if !ok || q != "rural surcharges" {
		t.Fatalf("MatchSearchQuery = (%q, %v)", q, ok)
	}
}

func TestMatchOrderRef(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text string
		want string
		ok   bool
	}{
		{"check the escrow for order 42", "42", true},
		{"payment #A-17 is held", "A-17", true},
		{"escrow esc-123 please", "esc-123", true},
		{"order worth a lot", "", false},
		{"release the funds", "", false},
	}
	for _, tc := range cases {
		got, ok := MatchOrderRef(tc.text)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("MatchOrderRef(%q) = (%q, %v), want (%q, %v)", tc.text, got, ok, tc.want, tc.ok)
		}
	}
}

func TestExtractIntentAware(t *testing.T) {
	t.Parallel()

	ex := Extract("Optimize route from downtown to university by 5:30", contractx.IntentRouting)
	if ex.From != "downtown" || ex.To != "university" {
		t.Fatalf("routing extraction = %+v", ex)
	}
	if ex.Time != "5:30" {
		t.Fatalf("time = %q, want 5:30", ex.Time)
	}

	ex = Extract("quote an order for $42 to 9 oak road", contractx.IntentPricing)
	if ex.OrderValue == nil || *ex.OrderValue != 42 {
		t.Fatalf("order value = %v", ex.OrderValue)
	}
	if ex.Location != "9 oak road" {
		t.Fatalf("location = %q", ex.Location)
	}

	ex = Extract("Check payment status for my escrow, order 42", contractx.IntentPayment)
	if ex.OrderRef != "42" {
		t.Fatalf("order ref = %q", ex.OrderRef)
	}

	// A search prompt never carries routing fields.
	ex = Extract("find couriers from the north side", contractx.IntentSearch)
	if ex.From != "" || ex.To != "" {
		t.Fatalf("unexpected routing fields: %+v", ex)
	}
	if ex.Query == "" {
		t.Fatal("expected a query capture")
	}
}

func TestExtractNeverFails(t *testing.T) {
	t.Parallel()

	for _, prompt := range []string{"", "???", "from to", "$"} {
		ex := Extract(prompt, contractx.IntentGeneral)
		_ = ex // any input yields a value, absent fields stay zero
	}
}

func TestExtractIdempotent(t *testing.T) {
	t.Parallel()

	a := Extract("order worth $10 to 1 elm street by 4 pm", contractx.IntentPricing)
	b := Extract("order worth $10 to 1 elm street by 4 pm", contractx.IntentPricing)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("Extract not stable: %+v vs %+v", a, b)
	}
}
