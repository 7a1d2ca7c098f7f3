// Package batch runs per-entity operations in fixed-size concurrent waves and
// provides the if-exists wrapper that turns the store's not-found rejection into
// a no-op.
//
//	err := batch.Run(ctx, people, batch.IfExists(repo.Delete), batch.WithMaxInFlight(5))
package batch
