package ranker

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Ordered is a ranked result list that serializes as a JSON object mapping
// doc id to score, keys in rank order: {"doc_3":0.92,"doc_1":0.41}.
type Ordered []ScoredDoc

func (o Ordered) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, d := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(d.DocID)
		if err != nil {
			return nil, err
		}
		score, err := json.Marshal(d.Score)
		if err != nil {
			return nil, fmt.Errorf("encoding score for %q: %w", d.DocID, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(score)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the object form back, keeping key order.
func (o *Ordered) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*o = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("ranked results: expected object, got %v", tok)
	}
	out := make(Ordered, 0)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("ranked results: unexpected key %v", keyTok)
		}
		var score float64
		if err := dec.Decode(&score); err != nil {
			return fmt.Errorf("ranked results: score for %q: %w", key, err)
		}
		out = append(out, ScoredDoc{DocID: key, Score: score})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*o = out
	return nil
}
