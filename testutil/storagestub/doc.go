// Package storagestub provides an in-memory tablestore.Storage that records its calls, for unit tests
// of the access layer without a database.
package storagestub
