package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FrenchBattlesMap/viewer/pkg/core"
)

func TestStore_New(t *testing.T) {
	s := New()

	require.NotNil(t, s)
	assert.Equal(t, 0, s.Len())
	_, loaded := s.Range()
	assert.False(t, loaded)
}

func TestStore_Replace(t *testing.T) {
	s := New()
	r := core.YearRange{Start: 1000, End: 1500}

	s.Replace(r, []core.Battle{{ID: 1, Year: 1214}, {ID: 2, Year: 1356}})

	assert.Equal(t, 2, s.Len())
	got, loaded := s.Range()
	assert.True(t, loaded)
	assert.Equal(t, r, got)
}

func TestStore_ReplaceIsWholesale(t *testing.T) {
	s := New()
	s.Replace(core.YearRange{Start: 0, End: 2025}, []core.Battle{{ID: 1, Year: 10}, {ID: 2, Year: 20}})
	s.Replace(core.YearRange{Start: 0, End: 2025}, []core.Battle{{ID: 3, Year: 30}})

	records := s.Records()
	require.Len(t, records, 1)
	assert.Equal(t, 3, records[0].ID)
}

func TestStore_ReplaceEnforcesRange(t *testing.T) {
	s := New()
	s.Replace(core.YearRange{Start: 1000, End: 1100}, []core.Battle{{ID: 1, Year: 999}, {ID: 2, Year: 1050}, {ID: 3, Year: 1101}})

	records := s.Records()
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].ID)
}

func TestStore_RecordsReturnsCopy(t *testing.T) {
	s := New()
	s.Replace(core.YearRange{Start: 0, End: 2025}, []core.Battle{{ID: 1, Name: "Bataille de Bouvines", Year: 1214}})

	records := s.Records()
	records[0].Name = "mutated"

	assert.Equal(t, "Bataille de Bouvines", s.Records()[0].Name)
}

func TestWithinRange(t *testing.T) {
	r := core.YearRange{Start: 1000, End: 1100}
	battles := []*core.Battle{
		{ID: 1, Year: 999},
		{ID: 2, Year: 1000},
		nil,
		{ID: 3, Year: 1100},
		{ID: 4, Year: 1101},
	}

	got := WithinRange(r, battles)

	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].ID)
	assert.Equal(t, 3, got[1].ID)
	for _, b := range got {
		assert.True(t, r.Start <= b.Year && b.Year <= r.End)
	}
}

func TestWithinRange_Empty(t *testing.T) {
	got := WithinRange(core.YearRange{Start: 0, End: 10}, nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := New()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(year int) {
			defer wg.Done()
			s.Replace(core.YearRange{Start: 0, End: 2025}, []core.Battle{{ID: year, Year: year}})
		}(i)
		go func() {
			defer wg.Done()
			_ = s.Records()
			_, _ = s.Range()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, s.Len())
}
