package app

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	payloadschema "github.com/Lilyleeyaa/zp-market-monitoring-v3-share/schema"
)

func runValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	dir := fs.String("dir", "", "validate every .json file under this directory")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	files := fs.Args()
	if *dir != "" {
		found, err := collectJSONFiles(*dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "validate: %v\n", err)
			return 2
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "usage: zpmon validate [--dir dir] <file.json> [...]")
		return 2
	}

	failures := 0
	for _, path := range files {
		if err := validateFile(path); err != nil {
			failures++
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", path, err)
			continue
		}
		fmt.Printf("OK   %s\n", path)
	}

	if failures > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d files failed validation\n", failures, len(files))
		return 1
	}
	return 0
}

func collectJSONFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".json") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// validateFile accepts either a single payload object or an array of
// payloads.
func validateFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		_, verr := payloadschema.ValidateArticlePayload(raw)
		return verr
	}

	for i, el := range elements {
		if _, err := payloadschema.ValidateArticlePayload(el); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}
