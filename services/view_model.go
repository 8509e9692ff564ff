package services

import (
	"cmp"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ksrcrypto/crypto-backend/models"
	"github.com/ksrcrypto/crypto-backend/shared"
)

// SortKey selects the field the price table is ordered by
type SortKey string

const (
	SortByName      SortKey = "name"
	SortByPrice     SortKey = "price"
	SortByChange24h SortKey = "change_24h"
	SortByChange7d  SortKey = "change_7d"
	SortByVolume    SortKey = "volume"
	SortByMarketCap SortKey = "market_cap"
)

// SortDirection is ascending or descending
type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

var (
	ErrInvalidSortKey       = errors.New("invalid sort key")
	ErrInvalidSortDirection = errors.New("invalid sort direction")
)

// ViewState is the caller-owned table state: search text plus ordering
type ViewState struct {
	Query         string        `json:"query"`
	SortKey       SortKey       `json:"sort_key"`
	SortDirection SortDirection `json:"sort_direction"`
}

// DefaultViewState is the state of a freshly opened price table
func DefaultViewState() ViewState {
	return ViewState{SortKey: SortByMarketCap, SortDirection: SortDescending}
}

// Apply projects entries through the state
func (v ViewState) Apply(entries []models.MarketEntry) []models.MarketEntry {
	return Project(entries, v.Query, v.SortKey, v.SortDirection)
}

// ToggleSort returns the state after a column header click: the active key
// flips direction, any other key becomes active in descending order.
func ToggleSort(state ViewState, key SortKey) ViewState {
	if state.SortKey == key {
		if state.SortDirection == SortAscending {
			state.SortDirection = SortDescending
		} else {
			state.SortDirection = SortAscending
		}
		return state
	}
	state.SortKey = key
	state.SortDirection = SortDescending
	return state
}

// ParseSortKey accepts the wire names plus their camel-case aliases.
// An empty string selects market cap.
func ParseSortKey(raw string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "market_cap", "marketcap":
		return SortByMarketCap, nil
	case "name":
		return SortByName, nil
	case "price":
		return SortByPrice, nil
	case "change_24h", "change24h":
		return SortByChange24h, nil
	case "change_7d", "change7d":
		return SortByChange7d, nil
	case "volume":
		return SortByVolume, nil
	}
	return "", invalidViewParameter("ParseSortKey", ErrInvalidSortKey, raw)
}

// ParseSortDirection accepts asc/desc and ascending/descending. An empty string selects desc.
func ParseSortDirection(raw string) (SortDirection, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "desc", "descending":
		return SortDescending, nil
	case "asc", "ascending":
		return SortAscending, nil
	}
	return "", invalidViewParameter("ParseSortDirection", ErrInvalidSortDirection, raw)
}

func invalidViewParameter(operation string, sentinel error, raw string) error {
	cause := fmt.Errorf("%w: %q", sentinel, raw)
	return shared.NewServiceError(shared.ErrorCategoryValidation, "INVALID_PARAMETER", cause.Error(), "ViewModel", operation, false, cause)
}

// Project filters entries by query and orders the result by key and direction.
//
// An entry is kept when its name or symbol contains query, ignoring case; an
// empty query keeps everything. Absent 7d change and volume sort as 0. Equal
// keys are ordered by id ascending regardless of direction, so the output is
// fully determined by the inputs. entries is never modified.
func Project(entries []models.MarketEntry, query string, key SortKey, direction SortDirection) []models.MarketEntry {
	needle := strings.ToLower(query)

	projected := make([]models.MarketEntry, 0, len(entries))
	for _, entry := range entries {
		if matchesQuery(entry, needle) {
			projected = append(projected, entry)
		}
	}

	sort.SliceStable(projected, func(i, j int) bool {
		c := compareBy(projected[i], projected[j], key)
		if direction != SortAscending {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
		return projected[i].ID < projected[j].ID
	})

	return projected
}

func matchesQuery(entry models.MarketEntry, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(entry.Name), needle) ||
		strings.Contains(strings.ToLower(entry.Symbol), needle)
}

func compareBy(a, b models.MarketEntry, key SortKey) int {
	switch key {
	case SortByName:
		return strings.Compare(a.Name, b.Name)
	case SortByPrice:
		return cmp.Compare(a.Quote.Price, b.Quote.Price)
	case SortByChange24h:
		return cmp.Compare(a.Quote.PercentChange24h, b.Quote.PercentChange24h)
	case SortByChange7d:
		return cmp.Compare(a.Quote.Change7dOrZero(), b.Quote.Change7dOrZero())
	case SortByVolume:
		return cmp.Compare(a.Quote.VolumeOrZero(), b.Quote.VolumeOrZero())
	default:
		return cmp.Compare(a.Quote.MarketCapUSD, b.Quote.MarketCapUSD)
	}
}

// SelectEntry returns the entry with id. When id is 0 or not present, the
// first entry of entries is returned. ok is false only when entries is empty.
func SelectEntry(entries []models.MarketEntry, id int) (models.MarketEntry, bool) {
	if len(entries) == 0 {
		return models.MarketEntry{}, false
	}
	if id != 0 {
		for _, entry := range entries {
			if entry.ID == id {
				return entry, true
			}
		}
	}
	return entries[0], true
}
