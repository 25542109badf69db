package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Status  *StatusCommand
	Search  *SearchCommand
	Open    *OpenCommand
	Add     *AddCommand
	Update  *UpdateCommand
	Delete  *DeleteCommand
	Analyze *AnalyzeCommand
	Ingest  *IngestCommand
	Prune   *PruneCommand
	Purge   *PurgeCommand
	Export  *ExportCommand
	Import  *ImportCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "memorylane"
	parser.LongDescription = "Local memory of what you read: capture pages, selections and notes, analyze them, and search them later."

	cmds := &commands{
		Status:  &StatusCommand{globals: &globals, version: version},
		Search:  &SearchCommand{globals: &globals},
		Open:    &OpenCommand{globals: &globals},
		Add:     &AddCommand{globals: &globals},
		Update:  &UpdateCommand{globals: &globals},
		Delete:  &DeleteCommand{globals: &globals},
		Analyze: &AnalyzeCommand{globals: &globals},
		Ingest:  &IngestCommand{globals: &globals, version: version},
		Prune:   &PruneCommand{globals: &globals},
		Purge:   &PurgeCommand{globals: &globals},
		Export:  &ExportCommand{globals: &globals},
		Import:  &ImportCommand{globals: &globals},
	}

	parser.AddCommand("status", "Show storage statistics", "Show storage usage, content statistics, recent activity and daemon state.", cmds.Status)
	parser.AddCommand("search", "Search saved memories", "Search saved memories by text, with optional filters.", cmds.Search)
	parser.AddCommand("open", "Print a saved memory", "Print a saved memory and its analysis.", cmds.Open)
	parser.AddCommand("add", "Save a note, selection or page", "Save a note, a text selection or an HTML page as a new memory.", cmds.Add)
	parser.AddCommand("update", "Edit a saved memory", "Merge new field values into a saved memory.", cmds.Update)
	parser.AddCommand("delete", "Delete a saved memory", "Delete a saved memory with its screenshot, thumbnail and analysis.", cmds.Delete)
	parser.AddCommand("analyze", "Analyze text without saving", "Run summarization, keyword extraction, categorization and scoring on text without saving it.", cmds.Analyze)
	parser.AddCommand("ingest", "Start the memorylane daemon", "Start the local HTTP daemon that accepts messages from the browser extension.", cmds.Ingest)
	parser.AddCommand("prune", "Delete old memories", "Delete memories older than the retention period.", cmds.Prune)
	parser.AddCommand("purge", "Delete ALL memorylane data", "Delete ALL memorylane data. Destructive operation with safety prompt.", cmds.Purge)
	parser.AddCommand("export", "Export all data", "Write every stored collection to a JSON or YAML file.", cmds.Export)
	parser.AddCommand("import", "Import an export file", "Load a JSON or YAML export, replacing the collections it contains.", cmds.Import)

	return parser, &globals, cmds
}

// Run is the main entry point for the memorylane CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// Handle --version before parser (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("memorylane %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
