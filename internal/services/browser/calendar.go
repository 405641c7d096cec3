package browser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Calendar selectors, relative to the date picker markup.
const (
	monthLabelSelector = ".v-date-picker-header__value"
	dayButtonSelector  = ".v-date-picker-table button"
	nextMonthSelector  = `.v-date-picker-header button[aria-label="Next month"]`
)

// CalendarPage is one month of the date picker as rendered by the site.
type CalendarPage struct {
	Month         string   // header label, e.g. "juni 2025"
	AvailableDays []string // labels of enabled day buttons, in page order
	HasNext       bool     // the next-month control is present
	NextEnabled   bool     // the next-month control can be clicked
}

// ParseCalendar extracts the month label, the enabled days and the state of
// the next-month control from the date picker HTML.
func ParseCalendar(html string) (CalendarPage, error) {
	var page CalendarPage

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return page, fmt.Errorf("failed to parse calendar: %w", err)
	}

	page.Month = strings.Join(strings.Fields(doc.Find(monthLabelSelector).First().Text()), " ")
	if page.Month == "" {
		return page, errors.New("calendar month label not found")
	}

	doc.Find(dayButtonSelector).Each(func(_ int, b *goquery.Selection) {
		if isDisabled(b) {
			return
		}
		if day := strings.TrimSpace(b.Text()); day != "" {
			page.AvailableDays = append(page.AvailableDays, day)
		}
	})

	next := doc.Find(nextMonthSelector).First()
	page.HasNext = next.Length() > 0
	page.NextEnabled = page.HasNext && !isDisabled(next)

	return page, nil
}

func isDisabled(s *goquery.Selection) bool {
	if _, ok := s.Attr("disabled"); ok {
		return true
	}
	return s.HasClass("v-btn--disabled")
}
