// Command ghoststation runs the anomaly correlation daemon and talks to it
// over its HTTP API.
//
// Subcommands:
//
//	daemon [start|stop]        run in the foreground, or manage a detached daemon
//	trigger                    submit a sensor trigger
//	evp                        submit an audio-domain record
//	session start|close|list   manage investigation sessions
//	events / event <id>        browse recorded events
//	status                     station status
//	config init|validate|show  configuration utilities
//
// Every read command accepts --json for machine-readable output.
package main
