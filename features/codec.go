package features

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownCategory reports an area or condition value that was not
// present when the codec was fitted. Callers skip the offending item
// instead of inventing an id for it.
var ErrUnknownCategory = errors.New("unknown category")

// LabelCodec assigns each distinct string value a stable integer id.
// Ids follow the sorted order of the fitted values, so refitting on the
// same value set always yields the same mapping.
type LabelCodec struct {
	Names []string `json:"names"`

	index map[string]int
}

// NewLabelCodec fits a codec over the distinct values in vals.
func NewLabelCodec(vals []string) *LabelCodec {
	seen := make(map[string]bool, len(vals))
	var names []string
	for _, v := range vals {
		if !seen[v] {
			seen[v] = true
			names = append(names, v)
		}
	}
	sort.Strings(names)

	c := &LabelCodec{Names: names}
	c.buildIndex()
	return c
}

func (c *LabelCodec) buildIndex() {
	c.index = make(map[string]int, len(c.Names))
	for i, name := range c.Names {
		c.index[name] = i
	}
}

// Encode returns the id for v, or ErrUnknownCategory if v was not seen
// at fit time.
func (c *LabelCodec) Encode(v string) (int, error) {
	if c.index == nil {
		c.buildIndex()
	}
	id, ok := c.index[v]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, v)
	}
	return id, nil
}

// Contains reports whether v was seen at fit time.
func (c *LabelCodec) Contains(v string) bool {
	_, err := c.Encode(v)
	return err == nil
}

// Len returns the number of distinct fitted values.
func (c *LabelCodec) Len() int {
	return len(c.Names)
}
