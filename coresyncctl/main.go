package main

import (
	"context"
	"encoding/hex"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docopt/docopt-go"

	"bringyour.com/coresync/remote"
)

const LocalVersion = "0.0.0-local"

func main() {
	usage := `Core synchronization control.

Runs a host and a client over an in-process loopback, and inspects identity paths and wire messages.

Usage:
    coresyncctl demo [--config=<config>] [--albums=<albums>] [--delay=<delay>] [--json]
    coresyncctl path <instance_id> <type> <id> [--json]
    coresyncctl decode <hex> [--json]
    coresyncctl settings [--config=<config>]

Options:
    -h --help            Show this screen.
    --version            Show version.
    --config=<config>    YAML settings file.
    --albums=<albums>    Number of albums in the demo library.
    --delay=<delay>      Loopback delay in each direction, e.g. 5ms.
    --json               Print JSON lines even when stdout is a terminal.`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], RequireVersion())
	if err != nil {
		panic(err)
	}

	if demo_, _ := opts.Bool("demo"); demo_ {
		demo(opts)
	} else if path_, _ := opts.Bool("path"); path_ {
		path(opts)
	} else if decode_, _ := opts.Bool("decode"); decode_ {
		decode(opts)
	} else if settings_, _ := opts.Bool("settings"); settings_ {
		printSettings(opts)
	}
}

func demo(opts docopt.Opts) {
	out := newStdoutOutput(opts)

	settings := requireSettings(opts)
	if albumsAny := opts["--albums"]; albumsAny != nil {
		albums, err := opts.Int("--albums")
		if err != nil {
			out.Fatal(err)
		}
		settings.Demo.Albums = albums
	}
	if delayAny := opts["--delay"]; delayAny != nil {
		delay, err := time.ParseDuration(delayAny.(string))
		if err != nil {
			out.Fatal(err)
		}
		settings.Loopback.FixedDelay = delay
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	defer cancel()

	if err := runDemo(ctx, settings, out); err != nil {
		out.Fatal(err)
	}
}

func path(opts docopt.Opts) {
	out := newStdoutOutput(opts)

	instanceId, _ := opts.String("<instance_id>")
	typeName, _ := opts.String("<type>")
	id, _ := opts.String("<id>")

	p := remote.NewPath(instanceId, typeName, id)
	parsedInstanceId, parsedTypeName, parsedId, err := remote.ParsePath(p)
	if err != nil {
		out.Fatal(err)
	}
	out.Print("path", map[string]any{
		"path":                    p.String(),
		"source_core_instance_id": parsedInstanceId,
		"type":                    parsedTypeName,
		"id":                      parsedId,
	})
}

func decode(opts docopt.Opts) {
	out := newStdoutOutput(opts)

	hexStr, _ := opts.String("<hex>")
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		out.Fatal(err)
	}
	message, err := remote.DecodeMessage(b)
	if err != nil {
		out.Fatal(err)
	}
	out.Print("message", messageFields(message))
}

func printSettings(opts docopt.Opts) {
	settings := requireSettings(opts)
	b, err := settings.Yaml()
	if err != nil {
		panic(err)
	}
	os.Stdout.Write(b)
}

func requireSettings(opts docopt.Opts) *Settings {
	if configAny := opts["--config"]; configAny != nil {
		settings, err := LoadSettings(configAny.(string))
		if err != nil {
			panic(err)
		}
		return settings
	}
	return DefaultSettings()
}

func messageFields(message *remote.Message) map[string]any {
	fields := map[string]any{
		"path":     message.Path.String(),
		"member":   message.Member,
		"sequence": message.Sequence,
		"kind":     message.Kind().String(),
	}
	switch v := message.Payload.(type) {
	case *remote.PropertyChanged:
		fields["value"] = v.Value
	case *remote.MethodCall:
		fields["call_id"] = v.CallId
		fields["args"] = v.Args
	case *remote.MethodResult:
		fields["call_id"] = v.CallId
		fields["value"] = v.Value
		if v.Error != "" {
			fields["error"] = v.Error
			fields["code"] = v.Code
		}
	case *remote.CollectionDelta:
		fields["op"] = v.Op.String()
		fields["index"] = v.Index
		if !v.Item.IsZero() {
			fields["item"] = v.Item.String()
		}
	case *remote.EventRaised:
		fields["args"] = v.Args
	case *remote.CollectionSnapshot:
		items := make([]string, len(v.Items))
		for i, item := range v.Items {
			items[i] = item.String()
		}
		fields["items"] = items
	}
	return fields
}

func RequireVersion() string {
	if version := os.Getenv("CORESYNC_VERSION"); version != "" {
		return version
	}
	return LocalVersion
}
