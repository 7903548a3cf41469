package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseName(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		full  string
		first string
		last  string
		creds []string
	}{
		{"comma separated", "Jane A. Smith, CFP®, CFA", "Jane A. Smith", "Jane", "A. Smith", []string{"CFP®", "CFA"}},
		{"whitespace separated", "John Smith CFA CFP", "John Smith", "John", "Smith", []string{"CFA", "CFP"}},
		{"appearance order", "Lee Park, MBA, CFP®", "Lee Park", "Lee", "Park", []string{"MBA", "CFP®"}},
		{"dedup case insensitive", "John Smith, CFA, cfa", "John Smith", "John", "Smith", []string{"CFA"}},
		{"trademark variant", "Jane Smith, SE-AWMA™", "Jane Smith", "Jane", "Smith", []string{"SE-AWMA™"}},
		{"word prefix is not a credential", "Mary Capri", "Mary Capri", "Mary", "Capri", nil},
		{"no separator no match", "Capri Jones", "Capri Jones", "Capri", "Jones", nil},
		{"trailing comma", "Jane Smith,", "Jane Smith", "Jane", "Smith", nil},
		{"spacing normalised", "Dr. Alex  Kim,  PhD", "Dr. Alex Kim", "Dr.", "Alex Kim", []string{"PhD"}},
		{"single token", "Cher", "Cher", "Cher", "", nil},
		{"empty", "", "", "", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := ParseName(tt.raw)
			assert.Equal(t, tt.full, n.Full)
			assert.Equal(t, tt.first, n.First)
			assert.Equal(t, tt.last, n.Last)
			assert.Equal(t, tt.creds, n.Credentials)
		})
	}
}

func TestParseNameCapsCredentials(t *testing.T) {
	n := ParseName("Pat Lee, CFP, CFA, CPA, ChFC, CLU, CIMA, MBA")
	assert.Equal(t, "Pat Lee", n.Full)
	assert.Equal(t, []string{"CFP", "CFA", "CPA", "ChFC", "CLU", "CIMA"}, n.Credentials)
}

func TestParseCombined(t *testing.T) {
	tests := []struct {
		raw   string
		full  string
		first string
		last  string
		creds []string
	}{
		{"Megan (Spain) Manzi, CFP®", "Megan (Spain) Manzi", "Megan", "Manzi", []string{"CFP®"}},
		{"John Smith, CFA, CFP®", "John Smith", "John", "Smith", []string{"CFA", "CFP®"}},
		{"John Michael Smith CFP, Series 7", "John Michael Smith", "John", "Smith", []string{"CFP", "Series 7"}},
		{"Cher", "Cher", "Cher", "", nil},
		{"Ann Ho, ,CFA", "Ann Ho", "Ann", "Ho", []string{"CFA"}},
		{"", "", "", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			n := ParseCombined(tt.raw)
			assert.Equal(t, tt.full, n.Full)
			assert.Equal(t, tt.first, n.First)
			assert.Equal(t, tt.last, n.Last)
			assert.Equal(t, tt.creds, n.Credentials)
		})
	}
}

func TestStripCredentialsLeavesRemainder(t *testing.T) {
	rest, creds := StripCredentials("Sam Roe CPWA® ,RICP")
	assert.Equal(t, "Sam Roe", Clean(rest))
	assert.Equal(t, []string{"CPWA®", "RICP"}, creds)
}
