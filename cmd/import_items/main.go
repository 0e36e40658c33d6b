package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"library-circulation/library"
)

// Imports items from a CSV file with the columns title,author,category.
// A header row starting with "title" is skipped.
func main() {
	file := flag.String("file", "items.csv", "CSV file to import")
	flag.Parse()

	cfg, err := library.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	items, err := readItems(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", *file, err)
		os.Exit(1)
	}

	store, err := library.OpenStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}
	manager, err := library.NewLibraryManager(store, logger)
	if err != nil {
		store.Close()
		fmt.Fprintf(os.Stderr, "Error loading library: %v\n", err)
		os.Exit(1)
	}
	defer manager.Close()

	// The importer runs offline with catalog-maintenance rights.
	importer := library.NewActor(&library.Patron{ID: "import", Name: "importer", Admin: true})
	n, err := manager.ImportItems(importer, items)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Import stopped after %d item(s): %v\n", n, err)
		os.Exit(1)
	}
	fmt.Printf("Imported %d item(s) into %s.\n", n, cfg.StorePath)
}

func readItems(path string) ([]*library.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var items []*library.Item
	for line := 1; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "title") {
			continue
		}
		if len(rec) < 2 || strings.TrimSpace(rec[0]) == "" {
			return nil, fmt.Errorf("line %d: expected title,author[,category]", line)
		}
		cat := ""
		if len(rec) > 2 {
			cat = rec[2]
		}
		items = append(items, &library.Item{
			Title:    strings.TrimSpace(rec[0]),
			Author:   strings.TrimSpace(rec[1]),
			Category: library.ParseCategory(cat),
		})
	}
	return items, nil
}
