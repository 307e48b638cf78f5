package config

import "strings"

// SourceFileExt is the extension of importable ewlang source modules.
const SourceFileExt = ".ew"

// ProcessedSuffix is appended to a source path by the import preprocessor.
const ProcessedSuffix = "_processed"

// BundleFileExt is the extension of serialized bundles.
const BundleFileExt = ".ewb"

// DefaultIRDumpPath is where the optimized IR goes when dumping is enabled
// without an explicit path.
const DefaultIRDumpPath = "optimized_ir.tmp"

// Run configuration file names, in lookup order.
var ConfigFileNames = []string{"ewvm.yaml", "ewvm.yml", "ewvm.toml"}

// Limits
const (
	DefaultArraySizeLimit = 100_000_000
	DefaultMaxFrames      = 65536
)

// ImportKeyword starts a preprocessor import line.
const ImportKeyword = "import"

// HasSourceExt reports whether path names an ewlang source module.
func HasSourceExt(path string) bool {
	return strings.HasSuffix(path, SourceFileExt)
}

// BundlePath returns the bundle written for a bytecode file.
func BundlePath(path string) string {
	return path + BundleFileExt
}
