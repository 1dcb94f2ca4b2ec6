// Package testdoubles provides spies for the observability interfaces of the tablestore package.
package testdoubles
