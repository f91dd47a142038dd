/*
Layerimport ingests "docker save" archives into a content store one layer at a
time, keeps each repository's tags reconciled with the tags in the archives
uploaded to it, and serves a small read-only query API over the result.

Usage:

	layerimport [global flags] command [command flags]

Global flags:

	--log-level string
		Log level. Defaults to 'error'.
	--log-file string
		Log to the named file instead of stderr.
	--config-file string
		A YAML configuration file. Values given on the command line take precedence.
	--storage-path string
		Root of the content store. Defaults to '/var/lib/layerimport'.

Commands:

	import    Imports an archive into a repository (--archive, --repo, --mask)
	tags      Shows the tags of a repository (--repo)
	remove    Removes images and their tags from a repository (--repo, --image)
	copy      Copies images and their ancestors between repositories (--from, --to, --image)
	list      Lists stored units (--repo, --header)
	watch     Imports archives dropped into a directory (--watch-path, --repo, --mask, --metrics)
	serve     Runs the query API (--port, --metrics)
	version   Displays the version

The import and watch commands also accept --chunk-size, --compression (gzip, zstd
or none) and --atomic-writes.
*/
package main
