package cli

import "io"

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	DBPath  string `long:"db-path" description:"Override the SQLite database path"`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// StatusCommand shows storage stats, content stats and daemon state.
type StatusCommand struct {
	globals *GlobalFlags
	version string
}

// SearchCommand searches saved content with filters.
type SearchCommand struct {
	Category  string   `long:"category" description:"Only this category"`
	Type      string   `long:"type" description:"Only this type: selection | page | note | auto-page"`
	Sentiment string   `long:"sentiment" description:"Only this sentiment: positive | negative | neutral"`
	Tag       []string `long:"tag" description:"Items carrying any of these tags (repeatable)"`
	Since     string   `long:"since" description:"Only items newer than duration (e.g., 7d, 24h, 2w)"`
	Until     string   `long:"until" description:"Only items older than duration"`
	Limit     int      `long:"limit" description:"Maximum results" default:"20"`

	globals *GlobalFlags
}

// OpenCommand prints one saved item.
type OpenCommand struct {
	ID     string `long:"id" description:"Memory ID (required)"`
	Format string `long:"format" description:"Output format: full | md | json | content | summary | screenshot | thumbnail" default:"full"`

	globals *GlobalFlags
}

// AddCommand saves a note, a selection or an HTML page.
type AddCommand struct {
	Type       string   `long:"type" description:"Item type: note | selection | page" default:"note"`
	Text       string   `long:"text" description:"Inline text (or pass it as arguments)"`
	File       string   `long:"file" description:"Read text, or HTML for pages, from this file"`
	URL        string   `long:"url" description:"Source URL"`
	Title      string   `long:"title" description:"Title"`
	Context    string   `long:"context" description:"Surrounding text of a selection"`
	Tag        []string `long:"tag" description:"Tag (repeatable, notes only)"`
	Screenshot string   `long:"screenshot" description:"Attach an image file as the screenshot"`

	globals *GlobalFlags
}

// UpdateCommand merges field values into a saved item.
type UpdateCommand struct {
	ID       string   `long:"id" description:"Memory ID (required)"`
	Title    string   `long:"title" description:"New title"`
	Content  string   `long:"content" description:"New content"`
	Category string   `long:"category" description:"New category"`
	Tag      []string `long:"tag" description:"Replace tags (repeatable)"`
	Set      []string `long:"set" description:"Set field=JSON value (repeatable)"`

	globals *GlobalFlags
}

// DeleteCommand removes a saved item.
type DeleteCommand struct {
	ID string `long:"id" description:"Memory ID (required)"`

	globals *GlobalFlags
}

// AnalyzeCommand runs the analysis pipeline on text without saving.
type AnalyzeCommand struct {
	File  string   `long:"file" description:"Read text from this file"`
	Title string   `long:"title" description:"Title used for sentence scoring"`
	Type  string   `long:"type" description:"Item type used for scoring" default:"note"`
	URL   string   `long:"url" description:"Source URL used for scoring"`
	Tag   []string `long:"tag" description:"Caller tags, copied into topics (repeatable)"`

	globals *GlobalFlags
}

// IngestCommand starts the daemon.
type IngestCommand struct {
	Host     string `long:"host" description:"Override daemon host"`
	Port     int    `long:"port" description:"Override daemon port"`
	LogLevel string `long:"log-level" description:"Override log level"`

	globals *GlobalFlags
	version string
}

// PruneCommand deletes items older than the retention period.
type PruneCommand struct {
	OlderThan string `long:"older-than" description:"Override retention period (e.g., 30d)"`
	DryRun    bool   `long:"dry-run" description:"Show what would be pruned without deleting"`

	globals *GlobalFlags
}

// PurgeCommand deletes ALL data with safety confirmation.
type PurgeCommand struct {
	All   bool `long:"all" description:"Required flag to confirm purge intent"`
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	stdin   io.Reader // nil means os.Stdin
}

// ExportCommand writes every collection to a file.
type ExportCommand struct {
	Output string `long:"output" short:"o" description:"Output file (- for stdout)" default:"-"`
	Format string `long:"format" description:"json | yaml" default:"json"`

	globals *GlobalFlags
}

// ImportCommand loads an export file.
type ImportCommand struct {
	Input  string `long:"input" short:"i" description:"Export file (or pass it as an argument)"`
	Format string `long:"format" description:"json | yaml (default: from file extension)"`

	globals *GlobalFlags
}
