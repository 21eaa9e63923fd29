package plagiarism

import (
	"math"
	"sort"
)

// Risk labels for a single pair or document
const (
	RiskClean            = "clean"
	RiskSuspicious       = "suspicious"
	RiskHighlySuspicious = "highly suspicious"
	RiskNearCopy         = "near copy"
)

// DocumentSummary aggregates the ranked pairs a document takes part in
type DocumentSummary struct {
	ID       string   `json:"id"`
	Score    float64  `json:"score"`
	Risk     string   `json:"risk"`
	Peers    []string `json:"peers"`
	MaxScore float64  `json:"maxScore"`
}

// DocumentScore calculates a document score using Top-K + boost formula
func DocumentScore(values []float64, distinctPeers int) float64 {
	if len(values) == 0 {
		return 0.0
	}

	// Step 1: Take top K=3 scores
	sorted := append([]float64(nil), values...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	K := min(3, len(sorted))

	// Step 2: Average of top K
	sum := 0.0
	for _, v := range sorted[:K] {
		sum += v
	}
	score := sum / float64(K)

	// Step 3: Frequency boost for matching several peers
	if distinctPeers > 0 {
		score += math.Min(0.15, 0.05*float64(distinctPeers-1))
	}

	// Clamp to [0, 1]
	return math.Max(0.0, math.Min(1.0, score))
}

// GetRiskLevel returns risk level based on a similarity score
func GetRiskLevel(score float64) string {
	if score < 0.3 {
		return RiskClean
	} else if score < 0.6 {
		return RiskSuspicious
	} else if score < 0.85 {
		return RiskHighlySuspicious
	}
	return RiskNearCopy
}

// Summarize builds one summary per document present in the report, highest
// score first, ties by identity.
func Summarize(report RankedReport) []DocumentSummary {
	values := make(map[string][]float64)
	peers := make(map[string][]string)

	for _, entry := range report {
		a, b := entry.Pair.A, entry.Pair.B
		values[a] = append(values[a], entry.Value)
		values[b] = append(values[b], entry.Value)
		peers[a] = append(peers[a], b)
		peers[b] = append(peers[b], a)
	}

	summaries := make([]DocumentSummary, 0, len(values))
	for id, docValues := range values {
		docPeers := peers[id]
		sort.Strings(docPeers)
		score := DocumentScore(docValues, len(docPeers))
		maxScore := 0.0
		for _, v := range docValues {
			maxScore = math.Max(maxScore, v)
		}
		summaries = append(summaries, DocumentSummary{
			ID:       id,
			Score:    score,
			Risk:     GetRiskLevel(score),
			Peers:    docPeers,
			MaxScore: maxScore,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Score != summaries[j].Score {
			return summaries[i].Score > summaries[j].Score
		}
		return summaries[i].ID < summaries[j].ID
	})
	return summaries
}

// CorpusRisk calculates the overall risk of a corpus
func CorpusRisk(totalDocuments int, report RankedReport, summaries []DocumentSummary) (float64, string) {
	if totalDocuments == 0 || len(report) == 0 {
		return 0.0, "Safe"
	}

	// Average similarity of reported pairs
	sum := 0.0
	for _, entry := range report {
		sum += entry.Value
	}
	S := sum / float64(len(report))

	// Share of documents that are not clean
	flagged := 0
	for _, summary := range summaries {
		if summary.Risk != RiskClean {
			flagged++
		}
	}
	R := float64(flagged) / float64(totalDocuments)

	risk := (0.7 * S) + (0.3 * R)

	var riskLevel string
	if risk < 0.40 {
		riskLevel = "Safe"
	} else if risk < 0.60 {
		riskLevel = "Moderate"
	} else if risk < 0.80 {
		riskLevel = "High"
	} else {
		riskLevel = "Critical"
	}

	return risk, riskLevel
}
