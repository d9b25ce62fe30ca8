package theater

import "fmt"

// Money represents a monetary value stored in cents.
type Money = int64

// Genre is the closed set of play categories the calculator knows how to price.
type Genre int

const (
	// GenreTragedy prices a flat base plus a per-seat surcharge above capacity.
	GenreTragedy Genre = iota + 1
	// GenreComedy prices a base, an over-capacity bonus and a per-seat charge.
	GenreComedy
)

// ParseGenre maps a catalog genre tag onto a Genre. Matching is exact.
func ParseGenre(tag string) (Genre, error) {
	switch tag {
	case "tragedy":
		return GenreTragedy, nil
	case "comedy":
		return GenreComedy, nil
	default:
		return 0, &UnknownGenreError{Genre: tag}
	}
}

// String returns the catalog tag for the genre.
func (g Genre) String() string {
	switch g {
	case GenreTragedy:
		return "tragedy"
	case GenreComedy:
		return "comedy"
	default:
		return fmt.Sprintf("Genre(%d)", int(g))
	}
}

// MarshalText renders the genre as its catalog tag.
func (g Genre) MarshalText() ([]byte, error) {
	switch g {
	case GenreTragedy, GenreComedy:
		return []byte(g.String()), nil
	default:
		return nil, &UnknownGenreError{Genre: g.String()}
	}
}

// UnmarshalText parses a catalog tag.
func (g *Genre) UnmarshalText(text []byte) error {
	parsed, err := ParseGenre(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// Play is a catalog entry. Type holds the raw genre tag as supplied by the catalog.
type Play struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Performance is one staging of a play for a given audience.
type Performance struct {
	PlayID   string `json:"playID"`
	Audience int    `json:"audience"`
}

// Invoice lists the performances billed to one customer, in statement order.
type Invoice struct {
	Customer     string        `json:"customer"`
	Performances []Performance `json:"performances"`
}

// Catalog resolves play identifiers to plays. It is never mutated by the calculator.
type Catalog map[string]Play

// Lookup returns the play registered under id.
func (c Catalog) Lookup(id string) (Play, error) {
	play, ok := c[id]
	if !ok {
		return Play{}, &PlayNotFoundError{PlayID: id}
	}
	return play, nil
}

// Subset returns the entries referenced by the invoice. Missing ids are skipped.
func (c Catalog) Subset(invoice Invoice) Catalog {
	out := make(Catalog, len(invoice.Performances))
	for _, perf := range invoice.Performances {
		if play, ok := c[perf.PlayID]; ok {
			out[perf.PlayID] = play
		}
	}
	return out
}

// Line is the computed result for a single performance.
type Line struct {
	PlayID   string `json:"playID"`
	PlayName string `json:"playName"`
	Genre    Genre  `json:"genre"`
	Audience int    `json:"audience"`
	Amount   Money  `json:"amount"`
	Credits  int64  `json:"credits"`
}

// Statement aggregates the lines of one invoice.
type Statement struct {
	Customer     string `json:"customer"`
	Lines        []Line `json:"lines"`
	TotalAmount  Money  `json:"totalAmount"`
	TotalCredits int64  `json:"totalCredits"`
}
