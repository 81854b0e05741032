package constants

import "strings"

// DocumentFormat is the only document type the pipeline understands.
const DocumentFormat = "PDF"

// AllowedExtensions holds the file extensions picked up by directory ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
