/*
Package idgen generates time-sortable message IDs.

An ID is the base36 microsecond timestamp the message was sent at, followed
by a random suffix long enough that two messages sent in the same
microsecond still get distinct IDs. Sorting IDs as strings sorts messages by
send time, which is what the queue store's ready-index relies on.
*/
package idgen
