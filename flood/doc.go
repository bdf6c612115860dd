// Package flood implements the worker engine of udp-flood: a set of
// independent send cycles, each repeatedly resolving a randomized
// destination, then sending a datagram of random bytes to it.
//
// Worker 1 is always embedded in a caller-owned [loop.Loop] (inline). Any
// further workers each run on a dedicated OS thread, with a private loop
// (threaded). All workers share one [Stats], and one immutable [Config].
//
// A worker's storage is reference counted: the [Manager] holds one
// reference, and every handle and in-flight request holds one more, see
// [loop.Owner]. A worker halts permanently on the first resolve or send
// error.
package flood
