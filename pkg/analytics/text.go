package analytics

import (
	"github.com/ajitpratap0/tabulate/pkg/schema"
	"github.com/ajitpratap0/tabulate/pkg/table"
)

// Normalizer turns stored text into the form that gets tokenized
type Normalizer func(string) string

// Tokenizer counts tokens in normalized text
type Tokenizer func(string) int

// Classification counts rows whose token count is below, above or exactly
// equal to the mean token count.
type Classification struct {
	Mean  float64 `json:"mean"`
	Below int     `json:"below"`
	Above int     `json:"above"`
	Equal int     `json:"equal"`
}

// TextLengthClassification normalizes and tokenizes every row of a text
// column, then classifies each token count against the mean. A null value is
// treated as the empty string. Equal only matches when the mean is a whole
// number equal to the count.
func TextLengthClassification(col table.Column, tokenize Tokenizer, normalize Normalizer) (Classification, error) {
	if err := requireKind(col, "text length classification", schema.KindText, schema.KindMarkupText); err != nil {
		return Classification{}, err
	}

	n := col.Len()
	counts := make([]float64, n)
	for i := 0; i < n; i++ {
		s, _ := col.Value(i).Text()
		if normalize != nil {
			s = normalize(s)
		}
		counts[i] = float64(tokenize(s))
	}

	c := Classification{Mean: meanSubstituted(counts)}
	for _, x := range counts {
		switch {
		case x < c.Mean:
			c.Below++
		case x > c.Mean:
			c.Above++
		default:
			c.Equal++
		}
	}
	return c, nil
}
