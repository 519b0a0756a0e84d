package retrieval

import (
	"errors"
	"math"
	"testing"

	"github.com/himanishpuri/shinglebench/internal/corpus"
	"github.com/himanishpuri/shinglebench/pkg/models"
)

type stubEncoder map[string][][]float64

func (s stubEncoder) Name() string { return "stub" }

func (s stubEncoder) Encode(rec *models.Recording) ([][]float64, error) {
	return s[rec.Name], nil
}

// buildCorpus builds a corpus where each name maps to its shingle vectors,
// in the order given.
func buildCorpus(t *testing.T, names []string, vectors stubEncoder) *corpus.Corpus {
	t.Helper()
	recs := make([]*models.Recording, len(names))
	for i, name := range names {
		id, err := models.ParseIdentity(name)
		if err != nil {
			t.Fatalf("Failed to parse identity %q: %v", name, err)
		}
		recs[i] = &models.Recording{Name: name, Identity: id}
	}
	c, err := corpus.Build(recs, vectors)
	if err != nil {
		t.Fatalf("Failed to build corpus: %v", err)
	}
	return c
}

func TestScoreExcludesQueryRecording(t *testing.T) {
	names := []string{"a_p_x", "a_p_y", "b_q_z"}
	c := buildCorpus(t, names, stubEncoder{
		"a_p_x": {{0, 0}, {1, 1}},
		"a_p_y": {{0, 1}},
		"b_q_z": {{5, 5}},
	})

	for qi := 0; qi < c.Len(); qi++ {
		for si := 0; si < c.Shingles(qi); si++ {
			scores, err := NewScorer().Score(c, qi, si)
			if err != nil {
				t.Fatalf("Failed to score (%d, %d): %v", qi, si, err)
			}
			if len(scores) != c.Len()-1 {
				t.Fatalf("expected %d entries, got %d", c.Len()-1, len(scores))
			}
			for _, s := range scores {
				if s.RecordingIndex == qi {
					t.Errorf("query recording %d appears in its own ranking", qi)
				}
			}
		}
	}
}

func TestScoreMinimumDistance(t *testing.T) {
	c := buildCorpus(t, []string{"a_p_x", "a_p_y"}, stubEncoder{
		"a_p_x": {{0, 0}},
		"a_p_y": {{3, 4}, {6, 8}, {0, 1}, {0, 1}},
	})

	scores, err := NewScorer().Score(c, 0, 0)
	if err != nil {
		t.Fatalf("Failed to score: %v", err)
	}
	if scores[0].Distance != 1 {
		t.Errorf("expected minimum distance 1, got %f", scores[0].Distance)
	}
	if scores[0].ShingleIndex != 2 {
		t.Errorf("expected lowest tied shingle index 2, got %d", scores[0].ShingleIndex)
	}
}

func TestScoreOrdering(t *testing.T) {
	names := []string{"c_p_x", "b_p_y", "a_p_z", "a_p_w", "d_p_v"}
	c := buildCorpus(t, names, stubEncoder{
		"c_p_x": {{0}},
		"b_p_y": {{2}},
		"a_p_z": {{2}},
		"a_p_w": {{-2}},
		"d_p_v": {{1}},
	})

	scores, err := NewScorer().Score(c, 0, 0)
	if err != nil {
		t.Fatalf("Failed to score: %v", err)
	}

	// distance 1 first, then the three ties at 2 in identity order
	expected := []string{"d_p_v", "a_p_w", "a_p_z", "b_p_y"}
	for i, name := range expected {
		if scores[i].Recording.String() != name {
			t.Errorf("rank %d = %s, expected %s", i, scores[i].Recording, name)
		}
	}
	for i := 1; i < len(scores); i++ {
		if scores[i].Distance < scores[i-1].Distance {
			t.Errorf("ranking not ascending at %d", i)
		}
	}
}

func TestScoreTiesOnIdentityUseIndex(t *testing.T) {
	c := buildCorpus(t, []string{"a_p_x", "b_q_y", "b_q_y"}, stubEncoder{
		"a_p_x": {{0}},
		"b_q_y": {{1}},
	})
	scores, err := NewScorer().Score(c, 0, 0)
	if err != nil {
		t.Fatalf("Failed to score: %v", err)
	}
	if scores[0].RecordingIndex != 1 || scores[1].RecordingIndex != 2 {
		t.Errorf("expected recording index order [1 2], got [%d %d]", scores[0].RecordingIndex, scores[1].RecordingIndex)
	}
}

func TestScoreDeterministic(t *testing.T) {
	c := buildCorpus(t, []string{"a_p_x", "a_p_y", "b_q_z"}, stubEncoder{
		"a_p_x": {{0.1, 0.2}, {0.3, 0.4}},
		"a_p_y": {{0.5, 0.1}, {0.2, 0.2}},
		"b_q_z": {{0.9, 0.9}},
	})
	s := NewScorer()
	first, _ := s.Score(c, 0, 1)
	for i := 0; i < 5; i++ {
		again, _ := s.Score(c, 0, 1)
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("run %d entry %d differs: %+v vs %+v", i, j, first[j], again[j])
			}
		}
	}
}

func TestScoreCloserNonMatchRanksFirst(t *testing.T) {
	// query, a matching performance, and a closer different piece
	c := buildCorpus(t, []string{"bach_suite1_ma", "bach_suite1_casals", "bach_suite2_ma"}, stubEncoder{
		"bach_suite1_ma":     {{0, 0}},
		"bach_suite1_casals": {{3, 0}},
		"bach_suite2_ma":     {{1, 0}},
	})
	scores, err := NewScorer().Score(c, 0, 0)
	if err != nil {
		t.Fatalf("Failed to score: %v", err)
	}
	query := c.Identity(0)
	if query.Matches(scores[0].Recording) {
		t.Error("closer non-matching recording should be ranked first")
	}
	if !query.Matches(scores[1].Recording) {
		t.Error("matching recording should be ranked second")
	}
}

func TestScoreOutOfRange(t *testing.T) {
	c := buildCorpus(t, []string{"a_p_x", "a_p_y"}, stubEncoder{
		"a_p_x": {{0}},
		"a_p_y": {{1}},
	})
	cases := [][2]int{{-1, 0}, {2, 0}, {0, 1}, {1, -1}}
	for _, tc := range cases {
		if _, err := NewScorer().Score(c, tc[0], tc[1]); !errors.Is(err, ErrQueryOutOfRange) {
			t.Errorf("Score(%d, %d): expected ErrQueryOutOfRange, got %v", tc[0], tc[1], err)
		}
	}
}

func TestDistances(t *testing.T) {
	tests := []struct {
		name     string
		d        Distance
		a, b     []float64
		expected float64
	}{
		{"euclidean", Euclidean{}, []float64{0, 0}, []float64{3, 4}, 5},
		{"cosine orthogonal", Cosine{}, []float64{1, 0}, []float64{0, 1}, 1},
		{"cosine parallel", Cosine{}, []float64{1, 1}, []float64{2, 2}, 0},
		{"cosine zero vector", Cosine{}, []float64{0, 0}, []float64{1, 1}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.Distance(tt.a, tt.b); math.Abs(got-tt.expected) > 1e-12 {
				t.Errorf("distance = %f, expected %f", got, tt.expected)
			}
		})
	}
}
