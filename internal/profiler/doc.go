// Package profiler computes lexical profiles for content elements.
//
// A profile is the element's term-frequency fingerprint: its token set,
// term counts, and the Shannon entropy of the frequency distribution.
// Low entropy indicates content dominated by a few repeated or common
// terms; high entropy indicates varied vocabulary.
//
// Profiling is deterministic and side-effect free, so profiles can be
// recomputed on every build and compared across processes:
//
//	p := profiler.New(nil)
//	profile := p.Profile(record)
//	fmt.Printf("%s: H=%.2f over %d terms\n",
//	    profile.ElementID, profile.Entropy, profile.UniqueTermCount)
//
// Optional Porter2 stemming collapses inflected forms into a shared term
// before frequency counting. It is disabled by default.
package profiler
