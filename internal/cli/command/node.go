package command

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/nodestore-go/internal/cli/output"
	"github.com/yndnr/nodestore-go/pkg/nodestore"
)

// SetCommand returns the set command.
func SetCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Write a JSON value under an id",
		ArgsUsage: "ID [JSON]",
		Description: "The value is taken from the JSON argument, from --file, " +
			"or from standard input when neither is given.",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "ttl",
				Usage: "Time-to-live for this node (default: store.default_ttl)",
			},
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Read the JSON value from a file",
			},
		},
		Action: nodeSet,
	}
}

func nodeSet(c *cli.Context) error {
	if c.NArg() < 1 || c.NArg() > 2 {
		return cli.Exit("usage: set ID [JSON]", 2)
	}
	id := c.Args().Get(0)

	raw, err := readValue(c)
	if err != nil {
		return err
	}
	value, err := parseJSON(raw)
	if err != nil {
		return err
	}

	var opts []nodestore.SetOption
	if c.IsSet("ttl") {
		opts = append(opts, nodestore.WithTTL(c.Duration("ttl")))
	}

	s, err := openSession(c, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.store.Set(ctxOf(c), id, value, opts...); err != nil {
		return err
	}

	return render(c, &output.Table{
		Headers: []string{"ID", "STATUS"},
		Rows:    [][]string{{id, "stored"}},
	})
}

func readValue(c *cli.Context) ([]byte, error) {
	switch {
	case c.NArg() == 2:
		if c.IsSet("file") {
			return nil, cli.Exit("give the value either as an argument or with --file", 2)
		}
		return []byte(c.Args().Get(1)), nil
	case c.IsSet("file"):
		data, err := os.ReadFile(c.String("file"))
		if err != nil {
			return nil, fmt.Errorf("read value file: %w", err)
		}
		return data, nil
	default:
		data, err := io.ReadAll(c.App.Reader)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
}

// parseJSON decodes exactly one JSON value, keeping numbers exact.
func parseJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("value is not valid JSON: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("value must be a single JSON document")
	}
	return v, nil
}

// GetCommand returns the get command.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Read the value stored under an id",
		ArgsUsage: "ID",
		Action:    nodeGet,
	}
}

func nodeGet(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: get ID", 2)
	}
	id := c.Args().First()

	s, err := openSession(c, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	value, found, err := s.store.Get(ctxOf(c), id)
	if err != nil {
		return err
	}
	if !found {
		return cli.Exit(fmt.Sprintf("node %q not found", id), 1)
	}

	if c.String("output") == string(output.FormatTable) {
		_, err := fmt.Fprintln(c.App.Writer, output.Cell(value))
		return err
	}
	return render(c, value)
}

// MGetCommand returns the mget command.
func MGetCommand() *cli.Command {
	return &cli.Command{
		Name:      "mget",
		Usage:     "Read several ids in one request",
		ArgsUsage: "ID...",
		Action:    nodeMGet,
	}
}

func nodeMGet(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("usage: mget ID...", 2)
	}
	ids := c.Args().Slice()

	s, err := openSession(c, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	values, err := s.store.GetMany(ctxOf(c), ids)
	if err != nil && values == nil {
		return err
	}
	if err != nil {
		// Partial result: report the corrupt ids, still print the rest.
		PrintError("%v", err)
	}

	if c.String("output") != string(output.FormatTable) {
		return render(c, values)
	}

	table := &output.Table{Headers: []string{"ID", "VALUE"}}
	for _, id := range ids {
		if v, ok := values[id]; ok {
			table.AddRow(id, output.Cell(v))
		}
	}
	return render(c, table)
}

// DeleteCommand returns the delete command.
func DeleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"del", "rm"},
		Usage:     "Delete one or more ids",
		ArgsUsage: "ID...",
		Action:    nodeDelete,
	}
}

func nodeDelete(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("usage: delete ID...", 2)
	}
	ids := c.Args().Slice()

	s, err := openSession(c, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	if len(ids) == 1 {
		err = s.store.Delete(ctxOf(c), ids[0])
	} else {
		err = s.store.DeleteMany(ctxOf(c), ids)
	}
	if err != nil {
		return err
	}

	table := &output.Table{Headers: []string{"ID", "STATUS"}}
	for _, id := range ids {
		table.AddRow(id, "deleted")
	}
	return render(c, table)
}
