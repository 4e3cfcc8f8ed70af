// Package packing places cuboid items into identical containers using greedy
// heuristics.
//
// An Engine is built once with New and a fixed strategy (one of the Method
// values, or a custom Strategy). Each call to Pack validates its input,
// rescales the container into the strategy's working range when needed,
// feeds items to the strategy one placement at a time and opens a new bin
// whenever nothing in the current window fits. Items that cannot fit the
// empty container are reported, not raised. Pack allocates all of its state
// per call and starts no goroutines.
package packing
