/*
Package state contains the state machine for a two-party escrowed payment
channel, contained in the Channel type, and the auxiliary Identity record.

A channel is created by an owner, the intermediary that custodies the escrowed
funds, together with two parties that each contribute funds. The Channel type
supports three categories of operations:
- Open: Validating the contributions and producing the channel record and the
deposit transfers into escrow.
- Reallocate: Replacing the recorded split of funds between the two parties,
co-signed by two signers. No funds move.
- Close: Producing the payout transfers from escrow back to the parties and
zeroing the record.

	+---------+        +-------------+        +---------+
	|  Open   +------->+ Reallocate  +------->+  Close  |
	+---------+        +------+------+        +---------+
	                          |   ^
	                          +---+

The functions in this package are pure: they validate an operation against a
channel and return the new channel and any transfers the ledger must execute.
Persisting the record and executing the transfers atomically is the caller's
responsibility.

None of the primitives in this package are threadsafe and synchronization
must be provided by the caller if the package is used in a concurrent
context.
*/
package state
