package diagfmt

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	// PathModeAsIs prints the path as the tool reported it.
	PathModeAsIs PathMode = iota
	// PathModeBasename prints only the last element.
	PathModeBasename
)

// SourceLookup returns the content of a file named in a diagnostic.
type SourceLookup func(name string) ([]byte, bool)

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color    bool
	Context  bool // print the offending source line when Sources has it
	PathMode PathMode
	Width    int // максимальная ширина строки контекста, 0 - не ограничено
	Max      int // 0 - без ограничения
	Sources  SourceLookup
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	PathMode PathMode
	Max      int // обрезка вывода
}

// SarifRunMeta provides metadata for SARIF output.
type SarifRunMeta struct {
	ToolName       string
	ToolVersion    string
	InvocationArgs []string
}
