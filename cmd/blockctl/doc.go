// Package main implements blockctl, a command line tool for the stored
// Winamp player blocks.
//
// It reads the same configuration as the server (CONFIG_FILE and the
// environment, or --config) and opens the same database.
//
//	blockctl blocks list
//	blockctl blocks show <id>
//	blockctl skin resolve <identifier>
//	blockctl import <block-id> <file.wpl>
//
// Output is a table on a terminal and JSON otherwise; --json forces JSON.
// import takes the instance lock, so it refuses to run next to a server.
package main
