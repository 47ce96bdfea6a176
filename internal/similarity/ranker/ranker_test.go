package ranker

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankFiltersAndOrders(t *testing.T) {
	scores := map[string]float64{
		"doc_3": 0.4,
		"doc_1": 0.9,
		"doc_2": 0.4,
		"doc_4": 0.1,
	}
	got := Rank(scores, 0.4, 0)
	assert.Equal(t, []ScoredDoc{
		{DocID: "doc_1", Score: 0.9},
		{DocID: "doc_2", Score: 0.4},
		{DocID: "doc_3", Score: 0.4},
	}, got)
}

func TestRankLimit(t *testing.T) {
	scores := map[string]float64{"a": 0.5, "b": 0.6, "c": 0.7}
	got := Rank(scores, 0, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].DocID)
	assert.Equal(t, "b", got[1].DocID)
}

func TestOrderedJSONKeepsRankOrder(t *testing.T) {
	o := Ordered{{DocID: "z", Score: 0.75}, {DocID: "a", Score: 0.5}}
	data, err := json.Marshal(o)
	require.NoError(t, err)
	assert.Equal(t, `{"z":0.75,"a":0.5}`, string(data))

	var back Ordered
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, o, back)
}

func TestOrderedJSONEmpty(t *testing.T) {
	data, err := json.Marshal(Ordered{})
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))

	var back Ordered
	require.NoError(t, json.Unmarshal([]byte(`{}`), &back))
	assert.Empty(t, back)
}
