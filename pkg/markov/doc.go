/*
Package markov builds, persists, and samples variable-order Markov chains over
a stream of word tokens.

A Table maps every order-k window of the training stream (an NGram) to the
integer counts of the tokens observed directly after it. Poem boundaries are
marked in the stream with the reserved StartToken and EndToken sentinels, which
the generator uses to pick a starting state and to know when a poem is finished.
Tables are immutable once built or loaded and can be shared between goroutines.

Persistence goes through the Store interface; the binary snapshot codec in this
package is used by the file and Redis stores, and a SQLite store lives in
pkg/store/sqlite.
*/
package markov
