// Package tweets is a small sample application on top of tablestore.
//
// It keeps tweets in a SQLite table which is created when the App is opened, maps them with a
// TypeMapping and offers live lists that re-render whenever a tweet is put or deleted.
package tweets
