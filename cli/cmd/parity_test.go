package cmd

import (
	"reflect"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/depthstream/cli/config"
)

// flagOverrides names the stream flag of config keys that do not follow
// the section-key naming rule.
var flagOverrides = map[string]string{
	"backend_url":        "backend",
	"max_depth_m":        "max-depth",
	"sensor.depth_every": "depth-every",
	"sensor.depth":       "no-depth",
	"sensor.camera":      "no-camera",
	"adapter.type":       "adapter",
	"adapter.headers":    "adapter-header",
}

// configKeys walks the yaml tags of t. Nested *Config structs become
// dotted sections.
func configKeys(t reflect.Type, prefix string) []string {
	var keys []string
	for i := range t.NumField() {
		f := t.Field(i)
		tag, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if tag == "" || tag == "-" {
			continue
		}
		key := prefix + tag
		if f.Type.Kind() == reflect.Struct && strings.HasSuffix(f.Type.Name(), "Config") {
			keys = append(keys, configKeys(f.Type, key+".")...)
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

// flagForKey maps a config key to its stream flag name.
func flagForKey(key string) string {
	if name, ok := flagOverrides[key]; ok {
		return name
	}
	return strings.ReplaceAll(strings.ReplaceAll(key, ".", "-"), "_", "-")
}

// extractFlags extracts flag names from a cli.Command.
func extractFlags(cmd *cli.Command) map[string]cli.Flag {
	flags := make(map[string]cli.Flag)
	for _, f := range cmd.Flags {
		for _, name := range f.Names() {
			flags[name] = f
		}
	}
	return flags
}

func TestParity_EveryConfigKeyHasStreamFlag(t *testing.T) {
	flags := extractFlags(StreamCommand())
	keys := configKeys(reflect.TypeOf(config.Config{}), "")
	if len(keys) < 20 {
		t.Fatalf("expected the full config surface, walked only %d keys: %v", len(keys), keys)
	}
	for _, key := range keys {
		name := flagForKey(key)
		if _, ok := flags[name]; !ok {
			t.Errorf("config key %q has no --%s flag on stream", key, name)
		}
	}
}

func TestParity_OverridesAreLive(t *testing.T) {
	keys := make(map[string]bool)
	for _, k := range configKeys(reflect.TypeOf(config.Config{}), "") {
		keys[k] = true
	}
	for key := range flagOverrides {
		if !keys[key] {
			t.Errorf("override for %q names no config key", key)
		}
	}
}

func TestParity_SharedArchiveFlags(t *testing.T) {
	stream := extractFlags(StreamCommand())
	var session *cli.Command
	for _, sub := range StatsCommand().Subcommands {
		if sub.Name == "session" {
			session = sub
		}
	}
	if session == nil {
		t.Fatal("stats session subcommand missing")
	}
	for name := range extractFlags(session) {
		if !strings.HasPrefix(name, "archive-") {
			continue
		}
		if _, ok := stream[name]; !ok {
			t.Errorf("stats session --%s has no stream counterpart", name)
		}
	}
}

func TestParity_NoDuplicateFlags(t *testing.T) {
	for _, cmd := range []*cli.Command{StreamCommand(), ProbeCommand(), SinkCommand(), InspectCommand()} {
		seen := make(map[string]bool)
		for _, f := range cmd.Flags {
			for _, name := range f.Names() {
				if seen[name] {
					t.Errorf("%s: duplicate flag --%s", cmd.Name, name)
				}
				seen[name] = true
			}
		}
	}
}
