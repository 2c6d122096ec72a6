package srs

// Config holds the tunable constants of the scheduler.
// Zero values are replaced with the defaults below.
type Config struct {
	// LearningSteps are day offsets of the learning ladder, in order.
	LearningSteps []int

	GraduatingInterval int // first review interval after leaving the ladder
	EasyInterval       int // interval for Easy on a new or learning card
	SecondInterval     int // interval for the second review after graduation

	InitialEase float64
	MinimumEase float64

	HardModifier float64
	GoodModifier float64
	EasyModifier float64

	// Session mix, in percent of the limit. New cards take the remainder.
	LearningMixPercent int
	ReviewMixPercent   int
}

// DefaultConfig returns the stock ladder and multipliers
func DefaultConfig() Config {
	return Config{
		LearningSteps:      []int{1, 6},
		GraduatingInterval: 1,
		EasyInterval:       4,
		SecondInterval:     6,
		InitialEase:        2.5,
		MinimumEase:        1.3,
		HardModifier:       0.8,
		GoodModifier:       1.0,
		EasyModifier:       1.3,
		LearningMixPercent: 30,
		ReviewMixPercent:   50,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if len(c.LearningSteps) == 0 {
		c.LearningSteps = d.LearningSteps
	}
	if c.GraduatingInterval <= 0 {
		c.GraduatingInterval = d.GraduatingInterval
	}
	if c.EasyInterval <= 0 {
		c.EasyInterval = d.EasyInterval
	}
	if c.SecondInterval <= 0 {
		c.SecondInterval = d.SecondInterval
	}
	if c.InitialEase == 0 {
		c.InitialEase = d.InitialEase
	}
	if c.MinimumEase == 0 {
		c.MinimumEase = d.MinimumEase
	}
	if c.HardModifier == 0 {
		c.HardModifier = d.HardModifier
	}
	if c.GoodModifier == 0 {
		c.GoodModifier = d.GoodModifier
	}
	if c.EasyModifier == 0 {
		c.EasyModifier = d.EasyModifier
	}
	if c.LearningMixPercent == 0 && c.ReviewMixPercent == 0 {
		c.LearningMixPercent = d.LearningMixPercent
		c.ReviewMixPercent = d.ReviewMixPercent
	}
	c.LearningSteps = append([]int(nil), c.LearningSteps...)
	return c
}
