package statengine

import (
	"errors"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

func newTestTable(t *testing.T, maxSessions int, timeoutSeconds int64) (*StateTable, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	tbl, err := NewStateTable(nil, Config{MaxSessions: maxSessions, Timeout: timeoutSeconds}, WithClock(mock))
	require.NoError(t, err)
	return tbl, mock
}

func TestCreateAdmissionBound(t *testing.T) {
	tbl, _ := newTestTable(t, 2, 60)

	e1, err := tbl.Create(CreateParams{})
	require.NoError(t, err)
	require.NotNil(t, e1)

	e2, err := tbl.Create(CreateParams{})
	require.NoError(t, err)
	require.NotNil(t, e2)

	_, err = tbl.Create(CreateParams{})
	require.ErrorIs(t, err, ErrTableFull)

	tbl.DiscardByToken(e1.Token)
	require.Equal(t, 1, tbl.Size())

	e3, err := tbl.Create(CreateParams{})
	require.NoError(t, err)
	require.NotNil(t, e3)
}

func TestDiscardIsIdempotent(t *testing.T) {
	tbl, _ := newTestTable(t, 4, 60)

	entry, err := tbl.Create(CreateParams{})
	require.NoError(t, err)

	tbl.DiscardByToken(entry.Token)
	require.Equal(t, 0, tbl.Size())

	// second discard of the same token is a documented no-op
	tbl.DiscardByToken(entry.Token)
	require.Equal(t, 0, tbl.Size())
}

func TestReapOnCreate(t *testing.T) {
	tbl, mock := newTestTable(t, 8, 1)

	released := false
	e1, err := tbl.Create(CreateParams{})
	require.NoError(t, err)
	e1.Arena = NewArena()
	e1.Arena.Track(func() { released = true })

	mock.Add(2 * 1e9) // advance 2s (timeout+1)

	_, err = tbl.Create(CreateParams{})
	require.NoError(t, err)

	require.True(t, released, "expected reaped entry's arena to be released")
	require.Equal(t, 1, tbl.Size())
}

func TestQuiescentSizeInvariant(t *testing.T) {
	tbl, _ := newTestTable(t, 8, 60)

	var tokens []Token
	for i := 0; i < 5; i++ {
		e, err := tbl.Create(CreateParams{})
		require.NoError(t, err)
		tokens = append(tokens, e.Token)
	}

	require.Equal(t, 5, tbl.Size())
	require.Equal(t, 5, len(tbl.index))
	require.Equal(t, 5, tbl.order.Len())

	tbl.DiscardByToken(tokens[2])

	require.Equal(t, 4, tbl.Size())
	require.Equal(t, 4, len(tbl.index))
	require.Equal(t, 4, tbl.order.Len())
}

func TestExpiryQueueNonDecreasing(t *testing.T) {
	tbl, mock := newTestTable(t, 8, 60)

	for i := 0; i < 4; i++ {
		_, err := tbl.Create(CreateParams{})
		require.NoError(t, err)
		mock.Add(1e9) // 1s between creates so expiries strictly increase
	}

	var prev int64
	first := true
	for elem := tbl.order.Front(); elem != nil; elem = elem.Next() {
		e := elem.Value.(*Entry)
		if !first {
			require.GreaterOrEqual(t, e.Expiry.Unix(), prev)
		}
		prev = e.Expiry.Unix()
		first = false
	}
}

func TestCreatePriorWithoutSideDataIsUnlinked(t *testing.T) {
	tbl, _ := newTestTable(t, 8, 60)

	prior, err := tbl.Create(CreateParams{})
	require.NoError(t, err)
	require.False(t, prior.HasSideData())

	_, err = tbl.Create(CreateParams{Prior: prior})
	require.NoError(t, err)

	// prior had no side data, so Create should have unlinked it already
	require.Equal(t, 1, tbl.Size())
	_, found := tbl.index[prior.Token]
	require.False(t, found)
}

func TestCreatePriorWithSideDataSurvivesUntilHandoffMovesIt(t *testing.T) {
	tbl, _ := newTestTable(t, 8, 60)

	prior, err := tbl.Create(CreateParams{})
	require.NoError(t, err)
	prior.SideData = map[string]SideDatum{"k": {Value: 1, Persistable: true}}

	_, err = tbl.Create(CreateParams{Prior: prior})
	require.NoError(t, err)

	// prior is untouched by Create because it still has side data
	require.Equal(t, 2, tbl.Size())
}

func TestCreateDuplicatePresetTokenFails(t *testing.T) {
	tbl, _ := newTestTable(t, 8, 60)

	e1, err := tbl.Create(CreateParams{})
	require.NoError(t, err)

	tok := e1.Token
	_, err = tbl.Create(CreateParams{PresetToken: &tok})
	require.True(t, errors.Is(err, ErrDuplicateToken))
}

func TestCloseReclaimsEveryEntry(t *testing.T) {
	tbl, _ := newTestTable(t, 8, 60)

	released := 0
	for i := 0; i < 3; i++ {
		e, err := tbl.Create(CreateParams{})
		require.NoError(t, err)
		e.Arena = NewArena()
		e.Arena.Track(func() { released++ })
	}

	tbl.Close()

	require.Equal(t, 3, released)
	require.Equal(t, 0, tbl.Size())
}

func TestNewStateTableRegistersWithParentArena(t *testing.T) {
	parent := NewArena()
	tbl, err := NewStateTable(parent, Config{MaxSessions: 4, Timeout: 60})
	require.NoError(t, err)

	e, err := tbl.Create(CreateParams{})
	require.NoError(t, err)
	e.Arena = NewArena()
	released := false
	e.Arena.Track(func() { released = true })

	parent.Release()

	require.True(t, released)
}

func TestNewStateTableRejectsBadConfig(t *testing.T) {
	_, err := NewStateTable(nil, Config{MaxSessions: 0, Timeout: 60})
	require.Error(t, err)

	_, err = NewStateTable(nil, Config{MaxSessions: 4, Timeout: 0})
	require.Error(t, err)
}
