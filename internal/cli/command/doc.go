// Package command defines the nodestore-cli commands on urfave/cli/v2.
//
// Every command loads the configuration (file, NODESTORE_* environment,
// then flags), opens the configured store, runs one operation and
// formats the result with the output package.
package command
