// Package feedback applies human verdicts to scored venue photos. Negative
// verdicts move the photo into the negative training directory and, once a
// venue has no photos left, clear its catalog probability so a later run
// re-evaluates it. Positive verdicts copy the photo into the confirmed
// training directory and bump the venue's approval count. Every verdict is
// journaled in SQLite for training-set provenance.
package feedback
