package aggregate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"apyhub/internal/domain"
	"apyhub/internal/sources"
)

// stubSource scripts one source in the fallback chain.
type stubSource struct {
	name      string
	positions []domain.Position
	err       error
	calls     int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) FetchPositions(_ context.Context, _ string) ([]domain.Position, error) {
	s.calls++
	return s.positions, s.err
}

func pos(id string, value float64) domain.Position {
	return domain.Position{ID: id, TotalValueUSD: value, Assets: []string{"USDC"}}
}

func TestFallbackFirstNonEmptyWins(t *testing.T) {
	a := &stubSource{name: "A"}
	b := &stubSource{name: "B", positions: []domain.Position{pos("b1", 100), pos("b2", 50)}}
	c := &stubSource{name: "C", positions: []domain.Position{pos("c1", 999)}}

	o := NewOrchestrator(OrchestratorOptions{Chain: []sources.PositionSource{a, b, c}})
	res, err := o.FetchPositions(context.Background(), "0xabc")
	require.NoError(t, err)

	require.Equal(t, "B", res.DataSource)
	require.Len(t, res.Positions, 2)
	require.Equal(t, 1, a.calls)
	require.Equal(t, 1, b.calls)
	require.Equal(t, 0, c.calls, "later sources are never invoked once one wins")
}

func TestFallbackErrorTreatedAsEmpty(t *testing.T) {
	a := &stubSource{name: "A", err: errors.New("upstream down")}
	b := &stubSource{name: "B", positions: []domain.Position{pos("b1", 10)}}

	o := NewOrchestrator(OrchestratorOptions{Chain: []sources.PositionSource{a, b}})
	res, err := o.FetchPositions(context.Background(), "0xabc")
	require.NoError(t, err, "source errors are absorbed")
	require.Equal(t, "B", res.DataSource)
}

func TestFallbackAllEmpty(t *testing.T) {
	a := &stubSource{name: "A"}
	b := &stubSource{name: "B", err: errors.New("down")}

	o := NewOrchestrator(OrchestratorOptions{Chain: []sources.PositionSource{a, b}})
	res, err := o.FetchPositions(context.Background(), "0xabc")
	require.NoError(t, err)
	require.Empty(t, res.Positions)
	require.Equal(t, "none", res.DataSource)
}
