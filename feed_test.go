package bloodliner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeed(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()
	e := engineWithHabit(t, nil)

	feed := Feed(e.Config(), e.Season(), "http://localhost:9001")
	a.Empty(feed.Items)
	a.False(feed.Updated.IsZero())

	perfect(t, e, 1)
	_, err := e.Finalize(ctx, 1, FinalizeOptions{})
	require.NoError(t, err)
	logN(t, e, 2, Shot, 1)
	_, err = e.Finalize(ctx, 2, FinalizeOptions{})
	require.NoError(t, err)
	perfect(t, e, 3)

	feed = Feed(e.Config(), e.Season(), "http://localhost:9001")
	require.Len(t, feed.Items, 2)
	a.Equal("Day 2: -20", feed.Items[0].Title)
	a.Equal("Day 1: 100", feed.Items[1].Title)
	a.Equal("http://localhost:9001/api/days/1", feed.Items[1].Link.Href)
	a.Equal("DAY 1 · Score 100 · PR · Shots 0 · BV 0 · Δ +0", feed.Items[1].Description)
	a.Equal(epoch, feed.Updated)

	atom, err := feed.ToAtom()
	require.NoError(t, err)
	a.Contains(atom, "Day 2: -20")
}
