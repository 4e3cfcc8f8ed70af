// Package geometry provides the axis-aligned primitives used by the packer:
// cuboids, points, placed boxes, overlap and containment tests, and the
// enumeration of item orientations.
package geometry
