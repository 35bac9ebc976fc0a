package web

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/matrixise/sui-friday/internal/balance"
	"github.com/matrixise/sui-friday/internal/leaderboard"
	"github.com/matrixise/sui-friday/internal/mint"
	"github.com/matrixise/sui-friday/internal/notify"
)

// page is the data every template receives
type page struct {
	Title   string
	Active  string
	Network string
	Board   *boardView
	Mint    *mintView
}

type boardView struct {
	Loading      bool
	Placeholders []int
	Rows         []rowView
	Empty        bool
	Loaded       int
	Tracked      int
}

type rowView struct {
	Rank         int
	Medal        string
	MedalClass   string
	Initial      string
	Name         string
	Address      string
	ShortAddress string
	Balance      string
	Progress     int
}

type mintView struct {
	Loading         bool
	MintCount       uint64
	Limit           uint64
	Price           string
	SoldOut         bool
	Disabled        bool
	HasWallet       bool
	InFlight        bool
	Account         string
	AccountBalance  string
	MintedAddresses []string
	Notifications   []notify.Notification
}

// medal returns the icon and badge class of the top three ranks
func medal(rank int) (string, string) {
	switch rank {
	case 1:
		return "🥇", "medal-gold"
	case 2:
		return "🥈", "medal-silver"
	case 3:
		return "🥉", "medal-bronze"
	default:
		return "", "medal-none"
	}
}

// initial is the avatar letter of a roster name
func initial(name string) string {
	r, _ := utf8.DecodeRuneInString(strings.TrimSpace(name))
	if r == utf8.RuneError {
		return "?"
	}
	return string(unicode.ToUpper(r))
}

func newBoardView(b leaderboard.Board) *boardView {
	view := &boardView{
		Loading: b.Loading,
		Empty:   b.Empty,
		Loaded:  b.Loaded,
		Tracked: b.Tracked,
	}
	if b.Loading {
		view.Placeholders = make([]int, b.Placeholders)
		return view
	}

	view.Rows = make([]rowView, len(b.Rows))
	for i, row := range b.Rows {
		icon, class := medal(row.Rank)
		view.Rows[i] = rowView{
			Rank:         row.Rank,
			Medal:        icon,
			MedalClass:   class,
			Initial:      initial(row.Snapshot.Name),
			Name:         row.Snapshot.Name,
			Address:      row.Snapshot.Address,
			ShortAddress: balance.ShortAddress(row.Snapshot.Address),
			Balance:      row.Snapshot.TotalDisplay(),
			Progress:     row.Progress,
		}
	}
	return view
}

// leaderboardJSON is the /api/leaderboard payload
type leaderboardJSON struct {
	Loading    bool      `json:"loading"`
	Loaded     int       `json:"loaded"`
	Tracked    int       `json:"tracked"`
	MaxBalance float64   `json:"max_balance"`
	Rows       []rowJSON `json:"rows"`
}

type rowJSON struct {
	Rank      int       `json:"rank"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	TotalMist string    `json:"total_mist"`
	TotalSUI  string    `json:"total_sui"`
	Display   string    `json:"display"`
	Progress  int       `json:"progress"`
	CoinCount int       `json:"coin_count"`
	FetchedAt time.Time `json:"fetched_at"`
}

// newLeaderboardJSON never exposes a partial ranking: rows stay empty while loading
func newLeaderboardJSON(b leaderboard.Board) leaderboardJSON {
	out := leaderboardJSON{
		Loading:    b.Loading,
		Loaded:     b.Loaded,
		Tracked:    b.Tracked,
		MaxBalance: b.MaxBalance,
		Rows:       make([]rowJSON, 0, len(b.Rows)),
	}
	for _, row := range b.Rows {
		s := row.Snapshot
		out.Rows = append(out.Rows, rowJSON{
			Rank:      row.Rank,
			Name:      s.Name,
			Address:   s.Address,
			TotalMist: s.TotalMinor.String(),
			TotalSUI:  s.TotalMajorString(),
			Display:   s.TotalDisplay(),
			Progress:  row.Progress,
			CoinCount: s.HoldingCount,
			FetchedAt: s.FetchedAt,
		})
	}
	return out
}

// mintJSON is the GET /api/mint payload
type mintJSON struct {
	Loaded          bool      `json:"loaded"`
	MintCount       uint64    `json:"mint_count"`
	Limit           uint64    `json:"limit"`
	SoldOut         bool      `json:"sold_out"`
	PriceMist       uint64    `json:"price_mist"`
	PriceSUI        string    `json:"price_sui"`
	MintedAddresses []string  `json:"minted_addresses"`
	UpdatedAt       time.Time `json:"updated_at"`
	HasWallet       bool      `json:"has_wallet"`
	Account         string    `json:"account,omitempty"`
	AccountBalance  string    `json:"account_balance,omitempty"`
	State           string    `json:"state"`
	InFlight        bool      `json:"in_flight"`
}

// outcomeJSON is the POST /api/mint payload
type outcomeJSON struct {
	State          string              `json:"state"`
	Code           string              `json:"code,omitempty"`
	Digest         string              `json:"digest,omitempty"`
	Error          string              `json:"error,omitempty"`
	Notification   notify.Notification `json:"notification"`
	CreatedObjects []string            `json:"created_objects,omitempty"`
}

func newOutcomeJSON(out mint.Outcome) outcomeJSON {
	body := outcomeJSON{
		State:          string(out.State),
		Code:           string(out.Code),
		Digest:         out.Digest,
		Notification:   out.Notification,
		CreatedObjects: out.CreatedObjects,
	}
	switch {
	case out.RawError != "":
		body.Error = out.RawError
	case out.Err != nil:
		body.Error = out.Err.Error()
	}
	return body
}
