package extract

import (
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"binday/internal/schedule"
	"binday/internal/vocab"
)

// loadTestHTMLFile loads a fixture from testdata.
func loadTestHTMLFile(t *testing.T, filename string) *goquery.Document {
	t.Helper()
	file, err := os.Open(filename)
	if err != nil {
		t.Fatalf("Failed to open test data file %s: %v", filename, err)
	}
	defer file.Close()

	doc, err := goquery.NewDocumentFromReader(file)
	if err != nil {
		t.Fatalf("Failed to parse test HTML from %s: %v", filename, err)
	}
	return doc
}

func parseHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("Failed to parse test HTML: %v", err)
	}
	return doc
}

func TestCollectionsFromShortText(t *testing.T) {
	doc := parseHTML(t, `<html><body>
		<h2 class="property-address">3 High Street, Aberdeen AB10 1AB</h2>
		<ul class="collections">
			<li>General Waste: Monday 01 January 2024</li>
			<li>Mixed Recycling: Friday 12 January 2024, Friday 26 January 2024</li>
		</ul>
		<p>GENERAL WASTE: monday 01 january 2024</p>
		<p>Garden waste collections are suspended over winter.</p>
	</body></html>`)

	s := Extract(doc, vocab.Default())

	if s.Address != "3 High Street, Aberdeen AB10 1AB" {
		t.Errorf("Expected address from the address heading, got %q", s.Address)
	}
	want := []schedule.Collection{
		{BinType: "General Waste: Monday 01 January 2024", Dates: []string{"Monday 01 January 2024"}},
		{BinType: "Mixed Recycling: Friday 12 January 2024, Friday 26 January 2024", Dates: []string{"Friday 12 January 2024", "Friday 26 January 2024"}},
	}
	if !reflect.DeepEqual(s.Collections, want) {
		t.Errorf("Expected collections %+v, got %+v", want, s.Collections)
	}
	if len(s.RawText) != 0 {
		t.Errorf("Expected no raw text when collections were found, got %v", s.RawText)
	}
}

func TestCollectionsCountCharacters(t *testing.T) {
	// 88 characters but 103 bytes.
	line := "General Waste – Monday 01 January 2024 – bins out by 7am – «no side waste» – Café Row ★★"
	doc := parseHTML(t, "<html><body><p>"+line+"</p></body></html>")

	got := Collections(doc, vocab.Default())
	want := []schedule.Collection{{BinType: line, Dates: []string{"Monday 01 January 2024"}}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestTruncate(t *testing.T) {
	testCases := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exact", 5, "exact"},
		{"£££", 2, "££"},
		{"Café Row", 4, "Café"},
	}
	for _, tc := range testCases {
		if got := Truncate(tc.in, tc.n); got != tc.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tc.in, tc.n, got, tc.want)
		}
	}
}

func TestCollectionsFromDateInputs(t *testing.T) {
	doc := loadTestHTMLFile(t, "testdata/calendar_frame.html")

	got := Collections(doc, vocab.Default())

	want := []schedule.Collection{
		{BinType: "Mixed Recycling", Dates: []string{"Friday 12 January 2024"}},
		{BinType: "Recyclingdate2", Dates: []string{"Friday 26 January 2024"}},
		{BinType: "Gardendate1", Dates: []string{"Wednesday 10 January 2024"}},
		{BinType: "General Waste", Dates: []string{"Friday 5 January 2024"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected collections %+v, got %+v", want, got)
	}
}

func TestInputLabelFromIdentifier(t *testing.T) {
	doc := parseHTML(t, `<form>
		<input id="garden_waste_date" value="25/12/2024">
		<input name="food_waste" value="not a date">
	</form>`)

	got := Collections(doc, vocab.Default())
	want := []schedule.Collection{{BinType: "Garden Waste Date", Dates: []string{"25/12/2024"}}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestCollectionsFromTables(t *testing.T) {
	doc := parseHTML(t, `<table>
		<tr><th>Bin</th><th>Date</th></tr>
		<tr><td>Food Waste</td><td>Tuesday 02 January 2024</td></tr>
		<tr><td>Street cleaning</td><td>Monday 01 January 2024</td></tr>
		<tr><td>Glass</td></tr>
	</table>`)

	got := Collections(doc, vocab.Default())
	want := []schedule.Collection{{BinType: "Food Waste", Dates: []string{"Tuesday 02 January 2024"}}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestRawTextFallback(t *testing.T) {
	doc := parseHTML(t, `<html><body>
		<ul><li>Hi</li><li>Collections resume after the holidays</li></ul>
		<div>Bin collection calendar unavailable</div>
		<div>Short</div>
	</body></html>`)

	s := Extract(doc, vocab.Default())

	if len(s.Collections) != 0 {
		t.Fatalf("Expected no structured collections, got %+v", s.Collections)
	}
	want := []string{"Collections resume after the holidays", "Bin collection calendar unavailable"}
	if !reflect.DeepEqual(s.RawText, want) {
		t.Errorf("Expected raw text %v, got %v", want, s.RawText)
	}
}

func TestKnownFields(t *testing.T) {
	doc := loadTestHTMLFile(t, "testdata/calendar_frame.html")
	value := func(id string) (string, error) {
		s := doc.Find("#" + id)
		if s.Length() == 0 {
			return "", ErrNoField
		}
		return s.AttrOr("value", ""), nil
	}

	got := KnownFields(vocab.Default(), value)

	want := []schedule.Collection{
		{BinType: "Mixed Recycling", Dates: []string{"Friday 12 January 2024", "Friday 26 January 2024"}},
		{BinType: "Food & Garden Waste", Dates: []string{"Wednesday 10 January 2024"}},
		{BinType: "General Waste", Dates: []string{"Friday 5 January 2024"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestKnownFieldsStopsOnReadError(t *testing.T) {
	calls := 0
	value := func(id string) (string, error) {
		calls++
		if id == "RecyclingDate2" {
			return "", errors.New("node detached")
		}
		if strings.HasPrefix(id, "RecyclingDate") {
			return "Friday 12 January 2024", nil
		}
		return "", ErrNoField
	}

	got := KnownFields(vocab.Default(), value)

	if len(got) != 1 || len(got[0].Dates) != 1 {
		t.Fatalf("Expected one recycling date before the read error, got %+v", got)
	}
	// 2 recycling reads, then 8 each for the other two bin types.
	if calls != 18 {
		t.Errorf("Expected 18 reads, got %d", calls)
	}
}
