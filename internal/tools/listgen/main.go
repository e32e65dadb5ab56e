package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"pkt.systems/ayen/internal/shield"
	"pkt.systems/ayen/internal/version"
	"pkt.systems/pslog"
)

type listFlags []string

func (l *listFlags) String() string { return strings.Join(*l, ",") }

func (l *listFlags) Set(value string) error {
	*l = append(*l, value)
	return nil
}

func main() {
	var outPath string
	var lists listFlags
	var includes listFlags
	var timeout time.Duration
	flag.StringVar(&outPath, "o", "", "output path for the prebuilt list")
	flag.Var(&lists, "list", "filter list URL (repeatable; defaults to the shield defaults)")
	flag.Var(&includes, "include", "local rules file merged ahead of the fetched lists (repeatable)")
	flag.DurationVar(&timeout, "timeout", 2*time.Minute, "overall fetch timeout")
	flag.Parse()

	if strings.TrimSpace(outPath) == "" {
		fmt.Fprintln(os.Stderr, "-o is required")
		os.Exit(2)
	}
	if len(lists) == 0 {
		lists = append(lists, shield.DefaultLists...)
	}

	local, err := readIncludes(includes)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	logger := pslog.LoggerFromEnv(pslog.WithEnvWriter(os.Stderr))
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	fetcher := shield.NewFetcher(shield.FetchConfig{Retries: 2}, logger)
	texts, err := fetcher.FetchAll(ctx, lists)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	sources := append(append([]string(nil), includes...), lists...)
	out := mergeLists(sources, append(local, texts...))
	if err := os.WriteFile(outPath, []byte(out), 0o644); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, "%s %s\n", outPath, version.Current())
}

func readIncludes(paths []string) ([]string, error) {
	texts := make([]string, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read include %s: %w", path, err)
		}
		texts = append(texts, string(data))
	}
	return texts, nil
}

// mergeLists concatenates rule lines in list order, dropping comments, blank
// lines, and duplicates.
func mergeLists(sources []string, texts []string) string {
	var b strings.Builder
	b.WriteString("! ayen prebuilt filter list\n")
	for _, source := range sources {
		b.WriteString("! source: " + source + "\n")
	}
	seen := make(map[string]struct{})
	for _, text := range texts {
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "!") || strings.HasPrefix(line, "[") {
				continue
			}
			if _, ok := seen[line]; ok {
				continue
			}
			seen[line] = struct{}{}
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}
