package theater

import "fmt"

// Rates holds every pricing and credit constant. Amounts are in cents.
type Rates struct {
	TragedyBaseAmount           Money `json:"tragedyBaseAmount"`
	TragedyAudienceThreshold    int   `json:"tragedyAudienceThreshold"`
	TragedyOverThresholdPerSeat Money `json:"tragedyOverThresholdPerSeat"`

	ComedyBaseAmount           Money `json:"comedyBaseAmount"`
	ComedyAudienceThreshold    int   `json:"comedyAudienceThreshold"`
	ComedyOverThresholdAmount  Money `json:"comedyOverThresholdAmount"`
	ComedyOverThresholdPerSeat Money `json:"comedyOverThresholdPerSeat"`
	ComedyPerSeatAmount        Money `json:"comedyPerSeatAmount"`

	BaseVolumeCreditThreshold int `json:"baseVolumeCreditThreshold"`
	ComedyCreditDivisor       int `json:"comedyCreditDivisor"`

	CentsPerDollar Money `json:"centsPerDollar"`
}

// DefaultRates returns the house rate table.
func DefaultRates() Rates {
	return Rates{
		TragedyBaseAmount:           40000,
		TragedyAudienceThreshold:    30,
		TragedyOverThresholdPerSeat: 1000,

		ComedyBaseAmount:           30000,
		ComedyAudienceThreshold:    20,
		ComedyOverThresholdAmount:  10000,
		ComedyOverThresholdPerSeat: 500,
		ComedyPerSeatAmount:        300,

		BaseVolumeCreditThreshold: 30,
		ComedyCreditDivisor:       5,

		CentsPerDollar: 100,
	}
}

// Validate rejects tables that would divide by zero or price below zero.
func (r Rates) Validate() error {
	if r.CentsPerDollar <= 0 {
		return fmt.Errorf("%w: centsPerDollar must be positive", ErrInvalidRates)
	}
	if r.ComedyCreditDivisor <= 0 {
		return fmt.Errorf("%w: comedyCreditDivisor must be positive", ErrInvalidRates)
	}
	amounts := map[string]Money{
		"tragedyBaseAmount":           r.TragedyBaseAmount,
		"tragedyOverThresholdPerSeat": r.TragedyOverThresholdPerSeat,
		"comedyBaseAmount":            r.ComedyBaseAmount,
		"comedyOverThresholdAmount":   r.ComedyOverThresholdAmount,
		"comedyOverThresholdPerSeat":  r.ComedyOverThresholdPerSeat,
		"comedyPerSeatAmount":         r.ComedyPerSeatAmount,
	}
	for name, v := range amounts {
		if v < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidRates, name)
		}
	}
	if r.TragedyAudienceThreshold < 0 || r.ComedyAudienceThreshold < 0 || r.BaseVolumeCreditThreshold < 0 {
		return fmt.Errorf("%w: thresholds must not be negative", ErrInvalidRates)
	}
	return nil
}
