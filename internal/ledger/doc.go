// Package ledger implements the hotel booking chain: an append-only list of
// blocks, each sealed with the SHA-256 of its index, timestamp, payload and
// predecessor hash, plus a queue of bookings waiting for the next block.
//
// Mine moves the whole queue into one new block. Verify walks the chain and
// reports the first block whose stored hash or back-link no longer holds.
// Everything lives in memory for the lifetime of the process.
package ledger
