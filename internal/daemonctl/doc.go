// Package daemonctl starts and stops a detached daemon on behalf of the CLI.
package daemonctl
