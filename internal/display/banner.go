package display

import (
	"fmt"
	"io"

	"github.com/backmassage/downscaler/internal/term"
)

// PrintBanner writes the ASCII art banner to w; uses Magenta if colors are enabled.
func PrintBanner(w io.Writer) {
	fmt.Fprint(w, term.Magenta)
	fmt.Fprint(w, `     _                                     _
  __| | _____      ___ __  ___  ___ __ _| | ___ _ __
 / _`+"`"+` |/ _ \ \ /\ / / '_ \/ __|/ __/ _`+"`"+` | |/ _ \ '__|
| (_| | (_) \ V  V /| | | \__ \ (_| (_| | |  __/ |
 \__,_|\___/ \_/\_/ |_| |_|___/\___\__,_|_|\___|_|
`)
	fmt.Fprintln(w, term.NC)
}
