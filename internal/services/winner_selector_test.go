package services_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"draw-service/internal/models"
	"draw-service/internal/services"
	"draw-service/pkg/errorx"
)

func makeEntries(users []string, perUser int) []models.Entry {
	var entries []models.Entry
	for _, u := range users {
		for i := 0; i < perUser; i++ {
			entries = append(entries, models.Entry{
				ID:       fmt.Sprintf("%s-%d", u, i),
				UserID:   u,
				DrawID:   "d1",
				TicketID: fmt.Sprintf("%s%03d", u, i),
				EntryFee: 100,
			})
		}
	}
	return entries
}

func userList(n int) []string {
	users := make([]string, n)
	for i := range users {
		users[i] = fmt.Sprintf("U%02d", i)
	}
	return users
}

func TestPrizeTable(t *testing.T) {
	tests := []struct {
		place int
		prize int64
	}{
		{1, 100000}, {2, 50000}, {3, 25000}, {4, 5000}, {7, 5000}, {10, 5000}, {0, 0}, {11, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.prize, services.PrizeForPlace(tt.place), "place %d", tt.place)
	}
}

func TestSelectNoEntries(t *testing.T) {
	_, err := services.Select(nil, services.PlaceHistory{}, services.SeededSource(1))
	require.ErrorIs(t, err, errorx.ErrNoEntries)
}

func TestSelectFillsTenPlacesWithDistinctUsers(t *testing.T) {
	entries := makeEntries(userList(20), 3)

	winners, err := services.Select(entries, services.PlaceHistory{}, services.SeededSource(7))
	require.NoError(t, err)
	require.Len(t, winners, services.WinnerPlaces)

	seen := map[string]bool{}
	var total int64
	for i, w := range winners {
		assert.Equal(t, i+1, w.Place)
		assert.Equal(t, services.PrizeForPlace(w.Place), w.Prize)
		assert.False(t, seen[w.UserID], "user %s won twice", w.UserID)
		seen[w.UserID] = true
		total += w.Prize
	}
	assert.Equal(t, int64(210000), total)
}

func TestSelectIsDeterministicForSeed(t *testing.T) {
	entries := makeEntries(userList(30), 2)

	a, err := services.Select(entries, services.PlaceHistory{}, services.SeededSource(99))
	require.NoError(t, err)
	b, err := services.Select(entries, services.PlaceHistory{}, services.SeededSource(99))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSelectDoesNotReorderInput(t *testing.T) {
	entries := makeEntries(userList(5), 1)
	before := append([]models.Entry(nil), entries...)

	_, err := services.Select(entries, services.PlaceHistory{}, services.SeededSource(3))
	require.NoError(t, err)
	assert.Equal(t, before, entries)
}

func TestSelectFewerEntriesThanPlaces(t *testing.T) {
	entries := makeEntries([]string{"A", "B", "C"}, 1)

	winners, err := services.Select(entries, services.PlaceHistory{}, services.SeededSource(5))
	require.NoError(t, err)
	require.Len(t, winners, 3)
	for i, w := range winners {
		assert.Equal(t, i+1, w.Place)
	}
}

func TestSelectOneUserManyTickets(t *testing.T) {
	entries := makeEntries([]string{"A"}, 50)

	winners, err := services.Select(entries, services.PlaceHistory{}, services.SeededSource(5))
	require.NoError(t, err)
	require.Len(t, winners, 1)
	assert.Equal(t, 1, winners[0].Place)
}

func TestSelectHonoursPlaceHistory(t *testing.T) {
	entries := makeEntries([]string{"A", "B", "C", "D"}, 1)

	history := services.PlaceHistory{}
	history.Add(1, "A")
	history.Add(1, "B")
	history.Add(2, "C")

	for seed := uint64(0); seed < 50; seed++ {
		winners, err := services.Select(entries, history, services.SeededSource(seed))
		require.NoError(t, err)
		require.Len(t, winners, 4)

		byPlace := map[int]string{}
		for _, w := range winners {
			byPlace[w.Place] = w.UserID
		}
		assert.NotContains(t, []string{"A", "B"}, byPlace[1], "seed %d", seed)
		assert.NotEqual(t, "C", byPlace[2], "seed %d", seed)
	}
}

func TestSelectSkippedEntriesStayAvailable(t *testing.T) {
	// only two users and both are barred from place 1, so place 1 stays vacant
	// and the skipped entries fill places 2 and 3
	entries := makeEntries([]string{"A", "B"}, 1)
	history := services.PlaceHistory{}
	history.Add(1, "A")
	history.Add(1, "B")

	winners, err := services.Select(entries, history, services.SeededSource(11))
	require.NoError(t, err)
	require.Len(t, winners, 2)
	assert.Equal(t, 2, winners[0].Place)
	assert.Equal(t, 3, winners[1].Place)
}

func TestSelectHistoryOnlyAppliesToTopThree(t *testing.T) {
	entries := makeEntries(userList(4), 1)
	history := services.PlaceHistory{}
	for _, u := range userList(4) {
		history.Add(4, u)
	}

	winners, err := services.Select(entries, history, services.SeededSource(2))
	require.NoError(t, err)
	assert.Len(t, winners, 4)
}

func TestValidateManualWinners(t *testing.T) {
	entries := makeEntries([]string{"A", "B", "C"}, 2)
	history := services.PlaceHistory{}
	history.Add(1, "C")

	tests := []struct {
		name  string
		picks []services.ManualPick
		err   error
	}{
		{"valid", []services.ManualPick{{Place: 1, TicketID: "A000"}, {Place: 2, TicketID: "C001"}}, nil},
		{"empty", nil, errorx.ErrValidation},
		{"unknown ticket", []services.ManualPick{{Place: 1, TicketID: "ZZZZ"}}, errorx.ErrValidation},
		{"duplicate place", []services.ManualPick{{Place: 1, TicketID: "A000"}, {Place: 1, TicketID: "B000"}}, errorx.ErrValidation},
		{"same user twice", []services.ManualPick{{Place: 1, TicketID: "A000"}, {Place: 2, TicketID: "A001"}}, errorx.ErrValidation},
		{"previous place winner", []services.ManualPick{{Place: 1, TicketID: "C000"}}, errorx.ErrValidation},
		{"place out of range", []services.ManualPick{{Place: 11, TicketID: "A000"}}, errorx.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			winners, err := services.ValidateManualWinners(entries, history, tt.picks)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			require.Len(t, winners, len(tt.picks))
			assert.Equal(t, int64(100000), winners[0].Prize)
			assert.Equal(t, "A", winners[0].UserID)
		})
	}
}
