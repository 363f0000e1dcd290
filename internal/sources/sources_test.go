package sources

import (
	"testing"

	"github.com/stretchr/testify/require"

	"apyhub/internal/domain"
)

func TestNormalizeChain(t *testing.T) {
	require.Equal(t, "ethereum", NormalizeChain("eth"))
	require.Equal(t, "ethereum", NormalizeChain("ETH"))
	require.Equal(t, "arbitrum", NormalizeChain("arb"))
	require.Equal(t, "polygon", NormalizeChain("matic"))
	require.Equal(t, "zksync", NormalizeChain("zkSync"), "unknown chains pass through lowercased")
}

func TestInferPositionType(t *testing.T) {
	cases := []struct {
		label string
		want  domain.PositionType
	}{
		{"lending Supplied", domain.PositionLending},
		{"deposit vault", domain.PositionLending},
		{"Borrowed assets", domain.PositionBorrowing},
		{"debt position", domain.PositionBorrowing},
		{"Restaked ETH", domain.PositionStaking},
		{"yield farming", domain.PositionStaking},
		{"Liquidity Pool", domain.PositionLP},
		{"lp token", domain.PositionLP},
		{"something else", domain.PositionLP},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, InferPositionType(tc.label, domain.PositionLP), tc.label)
	}
}

func TestInferPositionTypeKeywordPriority(t *testing.T) {
	// "lend" outranks "pool" when both appear.
	require.Equal(t, domain.PositionLending, InferPositionType("lending pool", domain.PositionLP))
}

func TestClamps(t *testing.T) {
	require.Equal(t, 0.0, ClampAPY(-3.5))
	require.Equal(t, 12.0, ClampAPY(12))

	require.Equal(t, 0.0, ClampIL(-1))
	require.Equal(t, 100.0, ClampIL(250))
	require.Equal(t, 4.2, ClampIL(4.2))

	require.Equal(t, 0.0, ClampValue(-10))
}

func TestNonEmptyAssets(t *testing.T) {
	require.Equal(t, []string{"MULTI"}, NonEmptyAssets(nil))
	require.Equal(t, []string{"MULTI"}, NonEmptyAssets([]string{"", ""}))
	require.Equal(t, []string{"USDC"}, NonEmptyAssets([]string{"", "USDC"}))
}
