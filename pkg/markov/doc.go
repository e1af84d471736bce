/*
Package markov provides an in-memory, second-order Markov chain over word
tokens, supporting incremental training and probabilistic generation or
completion of sequences.

The model stores counts in a three-level trie rooted at an empty start
context. The last two tokens of a sequence select the next-token
distribution, and every candidate is weighted by its unigram prior. When a
context has never been seen, generation can improvise from the priors alone.

A Model is not safe for concurrent use. Callers that share one across
goroutines must serialize access themselves (see package registry).
*/
package markov
