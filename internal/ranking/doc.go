// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

/*
Package ranking builds the DEFAULT-mode feed.

Every eligible candidate gets four factors in [0, 1]:

  - recency: halves every recency_half_life
  - similarity: cosine to the user's interest vector mapped to [0, 1],
    0.5 when either vector is missing
  - social: 1 for mutual follows and the user's own posts, 0.75 when the
    user follows the author, 0.25 when the author follows the user
  - trending: percentile of engagement velocity within the current pool

The composite score is the ScoreWeights dot product, floored at
min_probability_mass. The page is then drawn without replacement with
probability proportional to score, so a lower-scoring item still has a
chance to appear. Draws use a Fenwick tree and cost O(log n) each.

Identical calls are independent draws. A non-zero Request.Seed makes a call
reproducible.

Usage Example:

	engine, err := ranking.NewEngine(cfg.Ranking, st, logging.Logger())
	if err != nil {
	    return err
	}
	res, err := engine.Rank(ctx, ranking.Request{UserID: "u1", PageSize: 20})
*/
package ranking
