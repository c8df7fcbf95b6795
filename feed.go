package bloodliner

import (
	"fmt"
	"time"

	"github.com/gorilla/feeds"
)

// Feed lists finalized days, most recent first.
func Feed(config *Config, s *Season, link string) *feeds.Feed {
	feed := &feeds.Feed{
		Title:       "Bloodliner 90",
		Link:        &feeds.Link{Href: link},
		Description: "Finalized days of the season",
		Created:     config.Start,
	}
	for n := SeasonLength; n >= 1; n-- {
		d := s.Days[n]
		if !d.Locked() {
			continue
		}
		created := config.Date(n)
		if d.FinalizedAt != nil {
			created = *d.FinalizedAt
		}
		if created.After(feed.Updated) {
			feed.Updated = created
		}
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          fmt.Sprintf("%s/days/%d", link, n),
			Title:       fmt.Sprintf("Day %d: %g", n, d.Scores.Total),
			Link:        &feeds.Link{Href: fmt.Sprintf("%s/api/days/%d", link, n)},
			Description: headline(d),
			Created:     created,
		})
	}
	if feed.Updated.IsZero() {
		feed.Updated = time.Now()
	}
	return feed
}
