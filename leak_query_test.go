package main

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunLeakQuery(t *testing.T) {
	tests := []struct {
		name       string
		blocking   []bool
		query      LeakQuery
		found      bool
		searched   bool
		invalidDom bool
	}{
		{
			name:     "open row",
			blocking: []bool{false, false},
			query:    LeakQuery{Start: center(0), End: center(2)},
			found:    true,
			searched: true,
		},
		{
			name:     "one blocking line",
			blocking: []bool{true, false},
			query:    LeakQuery{Start: center(0), End: center(2)},
			found:    true,
			searched: true,
		},
		{
			name:     "destination out of earshot",
			blocking: []bool{true, true},
			query:    LeakQuery{Start: center(0), End: center(2)},
		},
		{
			name:     "radius cuts off destination",
			blocking: []bool{false, false},
			query:    LeakQuery{Start: center(0), End: center(2), Radius: 1},
		},
		{
			name:     "explicit domain is searched",
			blocking: []bool{true, true},
			query:    LeakQuery{Start: center(0), End: center(2), Sectors: []int{0, 1, 2}},
			searched: true,
		},
		{
			name:       "explicit domain without destination",
			blocking:   []bool{false, false},
			query:      LeakQuery{Start: center(0), End: center(2), Sectors: []int{0, 1}},
			invalidDom: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lm := NewLoadedMap("row", rowMap(t, tt.blocking...))
			outcome, err := lm.RunLeakQuery(tt.query, WithLogger(quietLogger()))
			if tt.invalidDom {
				require.ErrorIs(t, err, ErrInvalidDomain)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, outcome)

			assert.Equal(t, tt.found, outcome.Found)
			assert.Equal(t, 0, outcome.Source.Index)
			assert.Equal(t, 2, outcome.Destination.Index)
			assert.Equal(t, tt.searched, outcome.Finder != nil)
			if !tt.searched {
				assert.Zero(t, outcome.Attempts())
				assert.Zero(t, outcome.NumNodes())
			} else {
				assert.Positive(t, outcome.Attempts())
				assert.Equal(t, len(outcome.Finder.Nodes()), outcome.NumNodes())
			}
		})
	}
}

func TestRunLeakQuery_PointOutsideMap(t *testing.T) {
	lm := NewLoadedMap("row", rowMap(t, false))

	_, err := lm.RunLeakQuery(LeakQuery{Start: orb.Point{-5, 5}, End: center(1)})
	assert.ErrorIs(t, err, ErrNoSector)

	_, err = lm.RunLeakQuery(LeakQuery{Start: center(0), End: orb.Point{500, 5}})
	assert.ErrorIs(t, err, ErrNoSector)
}
