package experiment

import (
	"sort"

	"github.com/himanishpuri/shinglebench/pkg/models"
	"gonum.org/v1/gonum/stat"
)

// Metrics are the per-trial retrieval scores of one ranking.
type Metrics struct {
	TopFound      bool
	FractionInTop float64
	AveDist       float64
	Matches       int
}

// Evaluate scores a ranking against the query's identity.
//
// FractionInTop is the share of matching entries that precede the first
// non-matching one. A ranking made only of matches scores 1 and a ranking
// with no match scores 0. AveDist is the mean zero-based rank of the
// matches, or the worst rank when there are none.
func Evaluate(query models.Identity, ranking []models.ScoreEntry) Metrics {
	if len(ranking) == 0 {
		return Metrics{}
	}

	var m Metrics
	leading := -1
	var rankSum int
	for i, entry := range ranking {
		if query.Matches(entry.Recording) {
			m.Matches++
			rankSum += i
		} else if leading < 0 {
			leading = i
		}
	}
	if leading < 0 {
		leading = len(ranking)
	}

	m.TopFound = query.Matches(ranking[0].Recording)
	if m.Matches == 0 {
		m.AveDist = float64(len(ranking) - 1)
		return m
	}
	m.FractionInTop = float64(leading) / float64(m.Matches)
	m.AveDist = float64(rankSum) / float64(m.Matches)
	return m
}

// Summarize averages the trial metrics.
func Summarize(trials []models.Trial) models.Summary {
	if len(trials) == 0 {
		return models.Summary{}
	}
	found := make([]float64, len(trials))
	first := make([]float64, len(trials))
	dist := make([]float64, len(trials))
	times := make([]float64, len(trials))
	for i, tr := range trials {
		if tr.TopFound {
			found[i] = 1
		}
		first[i] = tr.FractionInTop
		dist[i] = tr.AveDist
		times[i] = tr.ElapsedTime
	}
	return models.Summary{
		FractionFound:          stat.Mean(found, nil),
		AverageFirstMatch:      stat.Mean(first, nil),
		AverageAverageDistance: stat.Mean(dist, nil),
		AverageTime:            stat.Mean(times, nil),
	}
}

// Confusion counts how often a recording ranked first on a missed trial.
type Confusion struct {
	Query     models.Identity `json:"query"`
	Retrieved models.Identity `json:"retrieved"`
	Count     int             `json:"count"`
}

// Confusions lists the (query, top result) pairs of every trial whose top
// result was not a match, most frequent first.
func Confusions(result *models.ExperimentResult) []Confusion {
	type pair struct{ q, r models.Identity }
	counts := make(map[pair]int)
	for _, tr := range result.Results {
		if tr.TopFound || len(tr.RankedScores) == 0 {
			continue
		}
		counts[pair{tr.Query.Recording, tr.RankedScores[0].Recording}]++
	}

	out := make([]Confusion, 0, len(counts))
	for p, n := range counts {
		out = append(out, Confusion{Query: p.q, Retrieved: p.r, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].Query != out[j].Query {
			return out[i].Query.Less(out[j].Query)
		}
		return out[i].Retrieved.Less(out[j].Retrieved)
	})
	return out
}
