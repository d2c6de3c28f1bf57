// Package cli implements the sgebot command-line interface.
//
// Running sgebot with no arguments performs one monitoring pass and exits.
// It is meant to be started by cron; every setting comes from the
// environment.
//
//	sgebot            - check the cluster and post to Slack
//	sgebot config     - print the resolved configuration, secrets redacted
//	sgebot version    - print version information
package cli
