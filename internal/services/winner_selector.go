package services

import (
	"crypto/rand"
	"math/big"
	mathrand "math/rand/v2"

	"draw-service/internal/models"
	"draw-service/pkg/errorx"
)

const (
	WinnerPlaces = 10
	// places 1..ProtectedPlaces cannot be won twice by the same user across draws
	ProtectedPlaces = 3
)

var prizeTable = map[int]int64{
	1: 100000,
	2: 50000,
	3: 25000,
}

func PrizeForPlace(place int) int64 {
	if prize, ok := prizeTable[place]; ok {
		return prize
	}
	if place > ProtectedPlaces && place <= WinnerPlaces {
		return 5000
	}
	return 0
}

// PlaceHistory maps place -> set of users who won that place in earlier draws.
type PlaceHistory map[int]map[string]bool

func (h PlaceHistory) Add(place int, userID string) {
	if h[place] == nil {
		h[place] = make(map[string]bool)
	}
	h[place][userID] = true
}

func (h PlaceHistory) Won(place int, userID string) bool {
	return h[place][userID]
}

type RandomSource interface {
	IntN(n int) int
}

type cryptoSource struct{}

func (cryptoSource) IntN(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic(err)
	}
	return int(v.Int64())
}

func CryptoSource() RandomSource {
	return cryptoSource{}
}

// SeededSource is reproducible for a given seed. Use it for replays and tests.
func SeededSource(seed uint64) RandomSource {
	return mathrand.New(mathrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func shuffle(entries []models.Entry, rng RandomSource) []models.Entry {
	out := make([]models.Entry, len(entries))
	copy(out, entries)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func eligible(e models.Entry, place int, wonThisDraw map[string]bool, history PlaceHistory) bool {
	if wonThisDraw[e.UserID] {
		return false
	}
	if place <= ProtectedPlaces && history.Won(place, e.UserID) {
		return false
	}
	return true
}

// Select shuffles the entries and fills places 1..10 in order. For each place
// the first unused eligible entry wins; skipped entries stay in the pool. A
// place nobody is eligible for stays vacant. Draw ids on the returned winners
// are taken from the entries.
func Select(entries []models.Entry, history PlaceHistory, rng RandomSource) ([]models.Winner, error) {
	if len(entries) == 0 {
		return nil, errorx.New(errorx.NoEntries, "nothing to select from")
	}

	pool := shuffle(entries, rng)
	used := make([]bool, len(pool))
	wonThisDraw := make(map[string]bool)
	winners := make([]models.Winner, 0, WinnerPlaces)

	for place := 1; place <= WinnerPlaces; place++ {
		for i, e := range pool {
			if used[i] || !eligible(e, place, wonThisDraw, history) {
				continue
			}
			used[i] = true
			wonThisDraw[e.UserID] = true
			winners = append(winners, models.Winner{
				DrawID:   e.DrawID,
				UserID:   e.UserID,
				TicketID: e.TicketID,
				Place:    place,
				Prize:    PrizeForPlace(place),
			})
			break
		}
		if len(wonThisDraw) == len(pool) {
			break
		}
	}
	return winners, nil
}

type ManualPick struct {
	Place    int    `json:"place" validate:"min=1,max=10"`
	TicketID string `json:"ticket_id" validate:"required"`
}

// ValidateManualWinners checks admin-chosen picks against the same rules the
// random selection follows and returns them as winners.
func ValidateManualWinners(entries []models.Entry, history PlaceHistory, picks []ManualPick) ([]models.Winner, error) {
	if len(entries) == 0 {
		return nil, errorx.New(errorx.NoEntries, "nothing to select from")
	}
	if len(picks) == 0 || len(picks) > WinnerPlaces {
		return nil, errorx.New(errorx.ValidationError, "between 1 and %d winners required", WinnerPlaces)
	}

	byTicket := make(map[string]models.Entry, len(entries))
	for _, e := range entries {
		byTicket[e.TicketID] = e
	}

	places := make(map[int]bool)
	wonThisDraw := make(map[string]bool)
	winners := make([]models.Winner, 0, len(picks))
	for _, p := range picks {
		if p.Place < 1 || p.Place > WinnerPlaces {
			return nil, errorx.New(errorx.ValidationError, "place %d out of range", p.Place)
		}
		if places[p.Place] {
			return nil, errorx.New(errorx.ValidationError, "place %d assigned twice", p.Place)
		}
		e, ok := byTicket[p.TicketID]
		if !ok {
			return nil, errorx.New(errorx.ValidationError, "ticket %s is not in this draw", p.TicketID)
		}
		if wonThisDraw[e.UserID] {
			return nil, errorx.New(errorx.ValidationError, "user %s already holds a place", e.UserID)
		}
		if p.Place <= ProtectedPlaces && history.Won(p.Place, e.UserID) {
			return nil, errorx.New(errorx.ValidationError, "user %s already won place %d in a previous draw", e.UserID, p.Place)
		}
		places[p.Place] = true
		wonThisDraw[e.UserID] = true
		winners = append(winners, models.Winner{
			DrawID:   e.DrawID,
			UserID:   e.UserID,
			TicketID: e.TicketID,
			Place:    p.Place,
			Prize:    PrizeForPlace(p.Place),
		})
	}
	return winners, nil
}
