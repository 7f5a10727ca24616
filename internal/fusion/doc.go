// Package fusion decides whether a set of channel readings is worth keeping.
//
// Each channel (visual regions, audio level, magnetic delta) casts one vote
// when it crosses its threshold. An event is accepted when the visual or
// audio channel votes; the score is one plus the number of votes, and the
// kind records which channels agreed.
package fusion
