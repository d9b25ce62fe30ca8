// Package theater prices theatrical performances and renders customer statements.
package theater

// Calculator prices performances against a fixed rate table. It holds no mutable
// state and may be shared between goroutines.
type Calculator struct {
	rates Rates
}

// NewCalculator constructs a calculator after validating the rate table.
func NewCalculator(rates Rates) (*Calculator, error) {
	if err := rates.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{rates: rates}, nil
}

var defaultCalculator = &Calculator{rates: DefaultRates()}

// Default returns a calculator using DefaultRates.
func Default() *Calculator {
	return defaultCalculator
}

// Rates returns a copy of the rate table in use.
func (c *Calculator) Rates() Rates {
	return c.rates
}

// Amount prices a single performance in cents.
func (c *Calculator) Amount(genre Genre, audience int) (Money, error) {
	r := c.rates
	seats := Money(audience)
	var amount Money
	switch genre {
	case GenreTragedy:
		amount = r.TragedyBaseAmount
		if audience > r.TragedyAudienceThreshold {
			amount += r.TragedyOverThresholdPerSeat * Money(audience-r.TragedyAudienceThreshold)
		}
	case GenreComedy:
		amount = r.ComedyBaseAmount
		if audience > r.ComedyAudienceThreshold {
			amount += r.ComedyOverThresholdAmount +
				r.ComedyOverThresholdPerSeat*Money(audience-r.ComedyAudienceThreshold)
		}
		amount += r.ComedyPerSeatAmount * seats
	default:
		return 0, &UnknownGenreError{Genre: genre.String()}
	}
	return amount, nil
}

// Credits returns the volume credits earned by a single performance.
func (c *Calculator) Credits(genre Genre, audience int) (int64, error) {
	r := c.rates
	credits := int64(audience - r.BaseVolumeCreditThreshold)
	if credits < 0 {
		credits = 0
	}
	switch genre {
	case GenreTragedy:
	case GenreComedy:
		// extra credit for every ComedyCreditDivisor comedy attendees
		credits += int64(audience / r.ComedyCreditDivisor)
	default:
		return 0, &UnknownGenreError{Genre: genre.String()}
	}
	return credits, nil
}

// Line resolves and prices one performance.
func (c *Calculator) Line(perf Performance, catalog Catalog) (Line, error) {
	play, err := catalog.Lookup(perf.PlayID)
	if err != nil {
		return Line{}, err
	}
	genre, err := ParseGenre(play.Type)
	if err != nil {
		return Line{}, err
	}
	amount, err := c.Amount(genre, perf.Audience)
	if err != nil {
		return Line{}, err
	}
	credits, err := c.Credits(genre, perf.Audience)
	if err != nil {
		return Line{}, err
	}
	return Line{
		PlayID:   perf.PlayID,
		PlayName: play.Name,
		Genre:    genre,
		Audience: perf.Audience,
		Amount:   amount,
		Credits:  credits,
	}, nil
}

// Compute prices every performance of the invoice in order and sums the results.
// The first failing performance aborts the whole computation.
func (c *Calculator) Compute(invoice Invoice, catalog Catalog) (Statement, error) {
	stmt := Statement{
		Customer: invoice.Customer,
		Lines:    make([]Line, 0, len(invoice.Performances)),
	}
	for _, perf := range invoice.Performances {
		line, err := c.Line(perf, catalog)
		if err != nil {
			return Statement{}, err
		}
		stmt.Lines = append(stmt.Lines, line)
		stmt.TotalAmount += line.Amount
		stmt.TotalCredits += line.Credits
	}
	return stmt, nil
}

// Statement computes and renders the plain text statement for the invoice.
func (c *Calculator) Statement(invoice Invoice, catalog Catalog) (string, error) {
	stmt, err := c.Compute(invoice, catalog)
	if err != nil {
		return "", err
	}
	return RenderText(stmt, c.FormatUSD), nil
}

// GenerateStatement renders a statement using the default rate table.
func GenerateStatement(invoice Invoice, catalog Catalog) (string, error) {
	return Default().Statement(invoice, catalog)
}
