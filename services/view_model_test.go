package services

import (
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ksrcrypto/crypto-backend/models"
	"github.com/ksrcrypto/crypto-backend/shared"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func genMarketEntry() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(1, 40),
		gen.OneConstOf("Bitcoin", "Ethereum", "Tether", "Solana", "Dogecoin", "Cardano", "USD Coin", "Bitcoin Cash"),
		gen.OneConstOf("BTC", "ETH", "USDT", "SOL", "DOGE", "ADA", "USDC", "BCH"),
		gen.OneConstOf(0.085, 1.0, 2650.0, 43250.0),
		gen.Float64Range(-20, 20),
		gen.Bool(),
		gen.OneConstOf(12.1e9, 91.2e9, 847.5e9),
	).Map(func(values []interface{}) models.MarketEntry {
		entry := models.MarketEntry{
			ID:     values[0].(int),
			Name:   values[1].(string),
			Symbol: values[2].(string),
			Quote: models.Quote{
				Price:            values[3].(float64),
				PercentChange24h: values[4].(float64),
				MarketCapUSD:     values[6].(float64),
			},
		}
		if values[5].(bool) {
			entry.Quote.PercentChange7d = models.Float(values[4].(float64) * 2)
			entry.Quote.Volume24hUSD = models.Float(values[6].(float64) / 40)
		}
		return entry
	})
}

func genSortKey() gopter.Gen {
	return gen.OneConstOf(SortByName, SortByPrice, SortByChange24h, SortByChange7d, SortByVolume, SortByMarketCap)
}

func genSortDirection() gopter.Gen {
	return gen.OneConstOf(SortAscending, SortDescending)
}

func genQuery() gopter.Gen {
	return gen.OneConstOf("", "b", "BIT", "eth", "coin", "Sol", "usd", "zzz")
}

func entryIDs(entries []models.MarketEntry) []int {
	ids := make([]int, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}

func entryNames(entries []models.MarketEntry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

func TestProjectProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("an empty query yields a permutation of the input", prop.ForAll(
		func(entries []models.MarketEntry, key SortKey, direction SortDirection) bool {
			got := entryIDs(Project(entries, "", key, direction))
			want := entryIDs(entries)
			sort.Ints(got)
			sort.Ints(want)
			return cmp.Equal(got, want)
		},
		gen.SliceOf(genMarketEntry()), genSortKey(), genSortDirection(),
	))

	properties.Property("the result holds exactly the entries whose name or symbol contains the query", prop.ForAll(
		func(entries []models.MarketEntry, query string, key SortKey, direction SortDirection) bool {
			got := Project(entries, query, key, direction)
			needle := strings.ToLower(query)
			matching := 0
			for _, e := range entries {
				if strings.Contains(strings.ToLower(e.Name), needle) || strings.Contains(strings.ToLower(e.Symbol), needle) {
					matching++
				}
			}
			if len(got) != matching {
				t.Logf("query %q kept %d entries, %d match", query, len(got), matching)
				return false
			}
			for _, e := range got {
				if !strings.Contains(strings.ToLower(e.Name), needle) && !strings.Contains(strings.ToLower(e.Symbol), needle) {
					t.Logf("entry %s does not match %q", e.Name, query)
					return false
				}
			}
			return true
		},
		gen.SliceOf(genMarketEntry()), genQuery(), genSortKey(), genSortDirection(),
	))

	properties.Property("price descending orders adjacent pairs by price", prop.ForAll(
		func(entries []models.MarketEntry, query string) bool {
			got := Project(entries, query, SortByPrice, SortDescending)
			for i := 1; i < len(got); i++ {
				if got[i-1].Quote.Price < got[i].Quote.Price {
					return false
				}
				if got[i-1].Quote.Price == got[i].Quote.Price && got[i-1].ID > got[i].ID {
					t.Logf("tie at price %v not ordered by id: %d before %d", got[i].Quote.Price, got[i-1].ID, got[i].ID)
					return false
				}
			}
			return true
		},
		gen.SliceOf(genMarketEntry()), genQuery(),
	))

	properties.Property("projecting a projection changes nothing", prop.ForAll(
		func(entries []models.MarketEntry, query string, key SortKey, direction SortDirection) bool {
			once := Project(entries, query, key, direction)
			twice := Project(once, query, key, direction)
			return cmp.Equal(once, twice)
		},
		gen.SliceOf(genMarketEntry()), genQuery(), genSortKey(), genSortDirection(),
	))

	properties.Property("the input order is not modified", prop.ForAll(
		func(entries []models.MarketEntry, key SortKey, direction SortDirection) bool {
			before := entryIDs(entries)
			Project(entries, "", key, direction)
			return cmp.Equal(before, entryIDs(entries))
		},
		gen.SliceOf(genMarketEntry()), genSortKey(), genSortDirection(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProjectFallbackExamples(t *testing.T) {
	data := FallbackListings(FallbackListingsSize)

	t.Run("market cap descending", func(t *testing.T) {
		got := Project(data, "", SortByMarketCap, SortDescending)
		assert.Equal(t, []string{
			"Bitcoin", "Ethereum", "Tether", "BNB", "Solana", "XRP", "USD Coin", "Cardano", "Avalanche", "Dogecoin",
		}, entryNames(got))
	})

	t.Run("full name query", func(t *testing.T) {
		got := Project(data, "ethereum", SortByName, SortAscending)
		assert.Equal(t, []string{"Ethereum"}, entryNames(got))
	})

	t.Run("substring query matches inside names", func(t *testing.T) {
		got := Project(data, "eth", SortByName, SortAscending)
		assert.Equal(t, []string{"Ethereum", "Tether"}, entryNames(got))
	})

	t.Run("symbol query ignores case", func(t *testing.T) {
		got := Project(data, "DoGe", SortByPrice, SortDescending)
		assert.Equal(t, []string{"Dogecoin"}, entryNames(got))
	})

	t.Run("equal prices tie-break on id", func(t *testing.T) {
		got := Project(data, "", SortByPrice, SortAscending)
		require.Len(t, got, FallbackListingsSize)
		// Tether (825) and USD Coin (3408) both trade at 1.00.
		assert.Equal(t, []int{74, 2010, 52, 825, 3408}, entryIDs(got[:5]))

		got = Project(data, "", SortByPrice, SortDescending)
		assert.Equal(t, []int{825, 3408}, entryIDs(got[5:7]))
	})

	t.Run("absent volume sorts as zero", func(t *testing.T) {
		entries := []models.MarketEntry{
			{ID: 2, Name: "B", Symbol: "B", Quote: models.Quote{Volume24hUSD: models.Float(5)}},
			{ID: 1, Name: "A", Symbol: "A"},
			{ID: 3, Name: "C", Symbol: "C", Quote: models.Quote{Volume24hUSD: models.Float(-1)}},
		}
		assert.Equal(t, []int{3, 1, 2}, entryIDs(Project(entries, "", SortByVolume, SortAscending)))
	})

	t.Run("no match", func(t *testing.T) {
		assert.Empty(t, Project(data, "nothing-matches", SortByName, SortAscending))
	})
}

func TestToggleSort(t *testing.T) {
	state := DefaultViewState()
	assert.Equal(t, ViewState{SortKey: SortByMarketCap, SortDirection: SortDescending}, state)

	state = ToggleSort(state, SortByMarketCap)
	assert.Equal(t, SortAscending, state.SortDirection)

	state = ToggleSort(state, SortByMarketCap)
	assert.Equal(t, SortDescending, state.SortDirection)

	state.Query = "bit"
	state = ToggleSort(ToggleSort(state, SortByPrice), SortByName)
	assert.Equal(t, ViewState{Query: "bit", SortKey: SortByName, SortDirection: SortDescending}, state)
}

func TestParseSortKeyAndDirection(t *testing.T) {
	keyTests := map[string]SortKey{
		"":           SortByMarketCap,
		"marketCap":  SortByMarketCap,
		"market_cap": SortByMarketCap,
		"NAME":       SortByName,
		"price":      SortByPrice,
		"change24h":  SortByChange24h,
		"change_7d":  SortByChange7d,
		" volume ":   SortByVolume,
	}
	for raw, want := range keyTests {
		got, err := ParseSortKey(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseSortKey("rank")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidSortKey))
	assert.Equal(t, shared.ErrorCategoryValidation, shared.CategoryOf(err))

	direction, err := ParseSortDirection("ascending")
	require.NoError(t, err)
	assert.Equal(t, SortAscending, direction)

	direction, err = ParseSortDirection("")
	require.NoError(t, err)
	assert.Equal(t, SortDescending, direction)

	_, err = ParseSortDirection("sideways")
	assert.True(t, errors.Is(err, ErrInvalidSortDirection))
}

func TestSelectEntry(t *testing.T) {
	data := FallbackListings(FallbackListingsSize)

	entry, ok := SelectEntry(data, 5426)
	require.True(t, ok)
	assert.Equal(t, "Solana", entry.Name)

	entry, ok = SelectEntry(data, 0)
	require.True(t, ok)
	assert.Equal(t, "Bitcoin", entry.Name)

	entry, ok = SelectEntry(data, 999999)
	require.True(t, ok)
	assert.Equal(t, "Bitcoin", entry.Name)

	_, ok = SelectEntry(nil, 1)
	assert.False(t, ok)
}

func TestViewStateApply(t *testing.T) {
	view := ViewState{Query: "usd", SortKey: SortByName, SortDirection: SortAscending}
	assert.Equal(t, []string{"Tether", "USD Coin"}, entryNames(view.Apply(FallbackListings(10))))
}
