package runtime

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ComposeTool identifies a detected compose tool variant.
// The tool is probed once at preflight and threaded through all
// subsequent compose invocations.
type ComposeTool struct {
	Bin  string
	Args []string
}

// composeCandidates lists known compose tool variants in preference order.
// The docker CLI plugin is preferred over the standalone binary.
var composeCandidates = []ComposeTool{
	{Bin: "docker", Args: []string{"compose"}},
	{Bin: "docker-compose"},
}

const probeTimeout = 10 * time.Second

// Command builds the full argument list for a compose subcommand
func (t ComposeTool) Command(args ...string) (string, []string) {
	return t.Bin, append(append([]string{}, t.Args...), args...)
}

// String returns the tool invocation as typed on a shell
func (t ComposeTool) String() string {
	if len(t.Args) == 0 {
		return t.Bin
	}
	return t.Bin + " " + strings.Join(t.Args, " ")
}

// DetectComposeTool probes candidate compose tools in preference order and
// returns the first one that answers a version probe with exit code zero,
// along with the probe's command result for the deployment record.
func DetectComposeTool(ctx context.Context, r Runner) (ComposeTool, Result, error) {
	var tried []string
	for _, candidate := range composeCandidates {
		bin, args := candidate.Command("version")
		res := r.Execute(ctx, bin, args, probeTimeout)
		if res.Ok() {
			return candidate, res, nil
		}
		tried = append(tried, candidate.String())
	}
	return ComposeTool{}, Result{}, fmt.Errorf("no compose tool available (tried: %s)", strings.Join(tried, ", "))
}
