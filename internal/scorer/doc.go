// Package scorer invokes the external image classifier over a venue's photo
// directory. The subprocess prints VENUE_PROBABILITY:<float> on stdout; the
// first such line wins and its absence scores 0.0. The Executor seam keeps
// the subprocess boundary testable, and a future in-process model call only
// needs to satisfy the Scorer interface.
package scorer
