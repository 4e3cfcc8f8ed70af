package geometry

// permutations lists axis orders indexed by orientation code. Identity
// comes first, the rest follow in lexicographic order.
var permutations = [6][3]int{
	{0, 1, 2},
	{0, 2, 1},
	{1, 0, 2},
	{1, 2, 0},
	{2, 0, 1},
	{2, 1, 0},
}

// Orientation is one axis permutation of an item.
type Orientation struct {
	Code int
	Size Cuboid
}

// Orientations enumerates the distinct axis permutations of c. With
// rotation disallowed only the identity is returned. The order is fixed so
// that packing is reproducible.
func Orientations(c Cuboid, allowRotation bool) []Orientation {
	if !allowRotation {
		return []Orientation{{Code: 0, Size: c}}
	}

	out := make([]Orientation, 0, len(permutations))
	for code := range permutations {
		size := c.Permute(code)
		duplicate := false
		for _, o := range out {
			if o.Size == size {
				duplicate = true
				break
			}
		}
		if !duplicate {
			out = append(out, Orientation{Code: code, Size: size})
		}
	}
	return out
}
