// Package tablestore provides a reactive access layer over a row/table-oriented storage.
//
// Every read, write and delete is a prepared operation that passes through a configurable chain of
// interceptors. Writes resolve a resolver (explicit, or by the runtime type of the item through the
// registered type mappings), perform the mutation against the Storage and publish the affected tables
// and tags as Changes to the store's change bus. Reads can be consumed as live sequences that re-execute
// whenever related Changes are published.
//
// Key types:
//   - Store: the root object owning the Storage, the type mappings, the interceptors and the change bus
//   - Query, RawQuery, InsertQuery, UpdateQuery, DeleteQuery: immutable query descriptions
//   - Changes: the affected tables and tags of a mutation
//   - GetResolver, PutResolver, DeleteResolver: strategies translating items to storage calls
//   - Interceptor: middleware around every operation
//
// Common usage pattern:
//
//	store, err := tablestore.NewStore(storage,
//		tablestore.WithTypeMapping(tweetMapping),
//		tablestore.WithInterceptors(tablestore.LoggingInterceptor(logger)),
//	)
//
//	prepared, err := tablestore.PutObjects(store, tweets).Prepare()
//	results, err := prepared.ExecuteNow(ctx)
//
//	query, err := tablestore.BuildQuery().Table("tweets").Finalize()
//	list, err := tablestore.GetListOfObjects[Tweet](store).WithQuery(query).Prepare()
//	for tweets, err := range list.AsLiveSequence(ctx) {
//		// first the current tweets, then again after every change of the tweets table
//	}
package tablestore
