// pkg/core/dimension.go
package core

import (
	"fmt"
	"strconv"
)

// Namespace is the game namespace prefixed to canonical dimension ids.
const Namespace = "minecraft:"

// Dimension is one of the three fixed game-world partitions.
// The numeric value is the legacy signed id used by clients.
type Dimension int8

const (
	Nether    Dimension = -1
	Overworld Dimension = 0
	End       Dimension = 1
)

// FilterAll selects every dimension in list queries.
const FilterAll = "all"

var dimensionIDs = map[Dimension]string{
	Overworld: Namespace + "overworld",
	Nether:    Namespace + "the_nether",
	End:       Namespace + "the_end",
}

var dimensionsByID = map[string]Dimension{
	Namespace + "overworld":  Overworld,
	Namespace + "the_nether": Nether,
	Namespace + "the_end":    End,
}

// chat labels with colour codes, shown in list output
var dimensionLabels = map[Dimension]string{
	Overworld: "§2Overworld§r",
	Nether:    "§4Nether§r",
	End:       "§5The End§r",
}

// Dimensions returns all known dimensions in list order.
func Dimensions() []Dimension {
	return []Dimension{Overworld, Nether, End}
}

// String returns the canonical namespaced id, e.g. "minecraft:the_end".
func (d Dimension) String() string {
	if s, ok := dimensionIDs[d]; ok {
		return s
	}
	return fmt.Sprintf("unknown(%d)", int8(d))
}

// ID returns the signed integer form.
func (d Dimension) ID() int {
	return int(d)
}

// Valid reports whether d is one of the known dimensions.
func (d Dimension) Valid() bool {
	_, ok := dimensionIDs[d]
	return ok
}

// Label returns a coloured chat label for the dimension.
func (d Dimension) Label() string {
	if s, ok := dimensionLabels[d]; ok {
		return s
	}
	return d.String()
}

// Short returns the id without namespace, e.g. "the_end".
func (d Dimension) Short() string {
	return d.String()[len(Namespace):]
}

// ParseDimension resolves a canonical id or a signed integer id.
func ParseDimension(token string) (Dimension, error) {
	if id, err := strconv.Atoi(token); err == nil {
		d := Dimension(id)
		if id < -128 || id > 127 || !d.Valid() {
			return 0, fmt.Errorf("%w: %q", ErrDimensionUnrecognized, token)
		}
		return d, nil
	}
	if d, ok := dimensionsByID[token]; ok {
		return d, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrDimensionUnrecognized, token)
}

// ResolveDimensionFilter resolves a list filter token to the dimensions it covers.
// Resolution order: signed integer, canonical id, then the literal "all".
func ResolveDimensionFilter(token string) ([]Dimension, error) {
	if id, err := strconv.Atoi(token); err == nil {
		d := Dimension(id)
		if id < -128 || id > 127 || !d.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrDimensionUnrecognized, token)
		}
		return []Dimension{d}, nil
	}
	if d, ok := dimensionsByID[token]; ok {
		return []Dimension{d}, nil
	}
	if token == FilterAll {
		return Dimensions(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrDimensionUnrecognized, token)
}
