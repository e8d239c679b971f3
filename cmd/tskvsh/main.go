package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/kartikbazzad/tskv/cmd/tskvsh/parser"
	"github.com/kartikbazzad/tskv/internal/query"
	"github.com/kartikbazzad/tskv/internal/types"
	"github.com/kartikbazzad/tskv/pkg/client"
)

var socketPath string

var rootCmd = &cobra.Command{
	Use:          "tskvsh",
	Short:        "Interactive shell for tskv",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runShell(socketPath)
	},
}

func init() {
	rootCmd.Flags().StringVar(&socketPath, "socket", "/tmp/tskv.sock", "unix socket path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runShell(socket string) error {
	c := client.New(socket)
	if err := c.Connect(); err != nil {
		return err
	}
	defer c.Close()

	fmt.Printf("tskv shell\nConnected to %s. Type .help for commands.\n\n", socket)

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyPath := filepath.Join(os.TempDir(), ".tskvsh_history")
	if f, err := os.Open(historyPath); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyPath); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	for {
		input, err := line.Prompt("> ")
		if err != nil {
			fmt.Println()
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, ".") {
			if quit := metaCommand(c, input); quit {
				return nil
			}
			continue
		}

		stmt, err := parser.Parse(input)
		if err != nil {
			fmt.Printf("parse error: %v\n", err)
			continue
		}

		switch s := stmt.(type) {
		case *query.Select:
			rows, err := c.Query(s)
			if err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			printRows(rows)
		case *query.Describe:
			rows, err := c.Describe(s.Table)
			if err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			printRows(rows)
		case *query.Insert:
			if err := c.Insert(s); err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			fmt.Printf("inserted %d rows\n", len(s.Rows))
		default:
			fmt.Println("statement not supported here")
		}
	}
}

// metaCommand handles dot commands. Returns true to quit.
func metaCommand(c *client.Client, input string) bool {
	cmd, rest, _ := strings.Cut(input, " ")
	switch cmd {
	case ".quit", ".exit":
		return true
	case ".help":
		fmt.Print(`Statements:
  SELECT cols FROM table WHERE ...
  DESCRIBE table
  INSERT INTO table [(cols)] VALUES (...)[, (...)]
Commands:
  .create <ddl-json>   activate a table from its JSON definition
  .tables              list compiled tables
  .stats               node metrics
  .quit                exit
`)
	case ".create":
		name, err := c.CreateTable([]byte(strings.TrimSpace(rest)))
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return false
		}
		fmt.Printf("table %s activated\n", name)
	case ".tables":
		names, err := c.ListTables()
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return false
		}
		for _, n := range names {
			fmt.Println(n)
		}
	case ".stats":
		stats, err := c.Stats()
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return false
		}
		fmt.Print(stats)
	default:
		fmt.Printf("unknown command %s (try .help)\n", cmd)
	}
	return false
}

func printRows(rows []types.Row) {
	for _, row := range rows {
		parts := make([]string, 0, len(row))
		for _, cell := range row {
			parts = append(parts, fmt.Sprintf("%s=%v", cell.Field, cell.Value))
		}
		fmt.Println(strings.Join(parts, "  "))
	}
	fmt.Printf("(%d rows)\n", len(rows))
}
