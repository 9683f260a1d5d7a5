// Package handoff coordinates slot ownership between writers and readers of
// one segment.
//
// A Store does not lock slots. When several goroutines or processes share a
// segment, a Ledger decides who may touch which slot:
//
//	free --Acquire--> writing --Publish--> ready --Next--> reading --Release--> free
//
// Transitions happen under one mutex, so a writer's stores to a slot happen
// before the reader that receives the slot from Next loads them. Slots are
// handed to readers in publish order.
package handoff
