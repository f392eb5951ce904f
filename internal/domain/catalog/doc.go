/*
Package catalog loads the portal's app and game catalog.

A catalog source holds an "apps" array and a "games" object mapping a
category name to an array of entries. Sources may be JSON, YAML or TOML
files, or a remote http(s) URL. Every entry gets a stable id:

	<section>:<category>:<index>:<slug(appName)>

unless the source already provides one. Entries without a name become
"Game N".

The Store keeps one immutable Snapshot behind an atomic pointer and
rebuilds it once the configured TTL has passed. Concurrent loads collapse
into a single rebuild. A bad local file produces an empty catalog rather
than an error; a failing remote source keeps serving the last good
snapshot.
*/
package catalog
