package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/term"

	"github.com/docopt/docopt-go"
)

// output prints one line per event: `event key=value ...` on a terminal,
// and a JSON object per line otherwise.
type output struct {
	w    io.Writer
	json bool

	mutex sync.Mutex
}

func newStdoutOutput(opts docopt.Opts) *output {
	forceJson, _ := opts.Bool("--json")
	return newOutput(os.Stdout, forceJson || !term.IsTerminal(int(os.Stdout.Fd())))
}

func newOutput(w io.Writer, jsonLines bool) *output {
	return &output{
		w:    w,
		json: jsonLines,
	}
}

func (self *output) Print(event string, fields map[string]any) {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	if self.json {
		line := maps.Clone(fields)
		if line == nil {
			line = map[string]any{}
		}
		line["event"] = event
		b, err := json.Marshal(line)
		if err != nil {
			fmt.Fprintf(self.w, "{\"event\":\"error\",\"error\":%q}\n", err.Error())
			return
		}
		fmt.Fprintf(self.w, "%s\n", b)
		return
	}

	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	parts := []string{event}
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", key, fields[key]))
	}
	fmt.Fprintf(self.w, "%s\n", strings.Join(parts, " "))
}

func (self *output) Fatal(err error) {
	self.Print("error", map[string]any{
		"error": err.Error(),
	})
	os.Exit(1)
}
