package strategist

import (
	"context"
	"fmt"

	chromem "github.com/philippgille/chromem-go"
)

// corpusDoc is one curated note about a yield strategy pattern.
type corpusDoc struct {
	id      string
	topic   string
	content string
}

// builtinCorpus is the knowledge base the strategist retrieves from when
// annotating generated strategies.
var builtinCorpus = []corpusDoc{
	{
		id:    "note-looping",
		topic: "leveraged looping",
		content: "Leveraged looping deposits an asset into a lending market, borrows " +
			"against it and redeposits the borrowed amount. Effective APY scales with " +
			"leverage but so does liquidation risk: keep the health factor above 1.5 " +
			"and prefer markets with deep liquidity such as Aave or Compound.",
	},
	{
		id:    "note-delta-neutral",
		topic: "delta neutral stable farming",
		content: "Delta neutral stable farming pairs a stablecoin deposit with a " +
			"stablecoin borrow on a second venue. USD exposure stays flat while both " +
			"legs earn yield. Watch borrow rate spikes: the strategy turns negative " +
			"when the borrow APY exceeds the combined supply APY.",
	},
	{
		id:    "note-impermanent-loss",
		topic: "impermanent loss",
		content: "Impermanent loss grows with the price divergence of the paired " +
			"assets in a liquidity pool. Volatile-volatile pairs can lose double " +
			"digits against holding. Stable-stable pairs keep impermanent loss near " +
			"zero and suit conservative liquidity provision.",
	},
	{
		id:    "note-bridge-costs",
		topic: "bridge costs",
		content: "Moving capital across chains costs a bridge fee plus destination " +
			"gas. A yield pickup under one percent rarely pays for bridging small " +
			"amounts; batch transfers or stay on the cheaper chain when the position " +
			"is under a few thousand dollars.",
	},
	{
		id:    "note-tvl-risk",
		topic: "pool tvl and risk",
		content: "Total value locked is the strongest single risk signal for a pool. " +
			"Deep pools above ten million dollars rarely rug and their APY is " +
			"sustainable. Triple digit APY on a shallow pool is usually emissions " +
			"that collapse once incentives end.",
	},
	{
		id:    "note-reward-apy",
		topic: "reward token emissions",
		content: "Reward APY paid in a protocol token is less durable than base fee " +
			"APY. Discount reward-heavy pools when comparing venues and assume " +
			"emissions decay: base APY is what the pool earns, reward APY is what " +
			"the protocol spends.",
	},
}

// Corpus retrieves strategy notes by vector similarity over an embedded
// chromem collection.
type Corpus struct {
	col *chromem.Collection
}

// NewCorpus builds the in-memory collection and seeds the built-in notes.
func NewCorpus() (*Corpus, error) {
	db := chromem.NewDB()

	col, err := db.CreateCollection("strategy-notes", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create corpus collection: %w", err)
	}

	ctx := context.Background()
	for _, doc := range builtinCorpus {
		err := col.AddDocument(ctx, chromem.Document{
			ID:        doc.id,
			Content:   doc.content,
			Embedding: embedText(doc.topic + " " + doc.content),
			Metadata:  map[string]string{"topic": doc.topic},
		})
		if err != nil {
			return nil, fmt.Errorf("seed corpus doc %s: %w", doc.id, err)
		}
	}

	return &Corpus{col: col}, nil
}

// Search returns the contents of the k notes closest to the query.
func (c *Corpus) Search(ctx context.Context, query string, k int) ([]string, error) {
	if k <= 0 {
		k = 3
	}
	if count := c.col.Count(); k > count {
		k = count
	}
	if k == 0 {
		return nil, nil
	}

	results, err := c.col.QueryEmbedding(ctx, embedText(query), k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query corpus: %w", err)
	}

	notes := make([]string, 0, len(results))
	for _, r := range results {
		notes = append(notes, r.Content)
	}
	return notes, nil
}
