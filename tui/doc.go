// Package tui implements the interactive docqa shell as a Bubble Tea
// program.
//
// The shell launches index builds and directory tracking as child
// processes through package task, renders the build progress parsed from
// the child's stdout as it arrives, and forwards questions to a
// caller-supplied answer function. The only state kept across queries is
// the timestamp of the last completed build.
package tui
