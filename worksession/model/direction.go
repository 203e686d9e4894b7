package model

type Direction string

const (
	North Direction = "north"
	East  Direction = "east"
	South Direction = "south"
	West  Direction = "west"
)

// Directions is the fixed order used for totals, remainders and reports.
var Directions = []Direction{North, East, South, West}

func (d Direction) Valid() bool {
	switch d {
	case North, East, South, West:
		return true
	}
	return false
}

type DirectionCounts struct {
	North int `json:"north"`
	East  int `json:"east"`
	South int `json:"south"`
	West  int `json:"west"`
}

func (c DirectionCounts) Total() int {
	return c.North + c.East + c.South + c.West
}

func (c DirectionCounts) Get(d Direction) int {
	switch d {
	case North:
		return c.North
	case East:
		return c.East
	case South:
		return c.South
	case West:
		return c.West
	}
	return 0
}

func (c *DirectionCounts) Set(d Direction, v int) {
	switch d {
	case North:
		c.North = v
	case East:
		c.East = v
	case South:
		c.South = v
	case West:
		c.West = v
	}
}

func (c DirectionCounts) Add(o DirectionCounts) DirectionCounts {
	return DirectionCounts{
		North: c.North + o.North,
		East:  c.East + o.East,
		South: c.South + o.South,
		West:  c.West + o.West,
	}
}

// SplitEvenly divides total into four near-equal shares, handing the remainder
// to North, then East, then South.
func SplitEvenly(total int) DirectionCounts {
	base, rem := total/4, total%4
	c := DirectionCounts{North: base, East: base, South: base, West: base}
	for i := 0; i < rem; i++ {
		c.Set(Directions[i], c.Get(Directions[i])+1)
	}
	return c
}
