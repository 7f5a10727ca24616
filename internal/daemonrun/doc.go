// Package daemonrun hosts the foreground daemon process: logger and feed
// construction, the PID file, signal handling and the daemon lifecycle.
package daemonrun
