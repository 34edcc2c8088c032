// =============================================================================
// Speakboard - Main Entry Point
// =============================================================================
//
// USAGE:
//   speakboard import    - Import icons from spreadsheets into the library
//   speakboard inspect   - Show how a spreadsheet would be read
//   speakboard folders   - List the library's folders
//   speakboard serve     - Start the HTTP import API
//   speakboard version   - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Import pipeline, library, stores, HTTP API
//   - pkg/utils/     : Batch file handling and import reports
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/speakboard/cmd"
)

func main() {
	cmd.Execute()
}
