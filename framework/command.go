package framework

import (
	"strings"

	"github.com/alessio/shellescape"
)

// CommandLine accumulates shell-quoted arguments, so that a request made by the harness
// can be shown as a command that reproduces it.
type CommandLine []string

func (b *CommandLine) Add(args ...string) {
	for _, a := range args {
		*b = append(*b, shellescape.Quote(a))
	}
}

func (b CommandLine) String() string {
	return strings.Join(b, " ")
}

// CurlCommand returns a curl command line equivalent to a ServiceRequest.
func CurlCommand(url string, r ServiceRequest) string {
	var b CommandLine
	b.Add("curl", "-sS")
	if r.Method != "" && r.Method != "GET" {
		b.Add("-X", r.Method)
	}
	if r.ContentType != "" {
		b.Add("-H", "Content-Type: "+r.ContentType)
	}
	if r.Body != nil {
		b.Add("--data-binary", string(r.Body))
	}
	b.Add(url)
	return b.String()
}
