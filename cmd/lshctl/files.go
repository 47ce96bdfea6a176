package main

import (
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/similarity/segment"
	"github.com/spf13/cobra"
)

var renamePrefix string

var renameCmd = &cobra.Command{
	Use:   "rename [dir]",
	Short: "Rename corpus files to <prefix>1.txt, <prefix>2.txt, ...",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := settings.Corpus.DocumentsDir
		if len(args) == 1 {
			dir = args[0]
		}
		prefix := settings.Corpus.RenamePrefix
		if cmd.Flags().Changed("prefix") {
			prefix = renamePrefix
		}
		n, err := corpus.Rename(dir, prefix)
		if err != nil {
			return err
		}
		fmt.Printf("Renamed %d file(s) in %s\n", n, dir)
		return nil
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Work with signature snapshots",
}

var snapshotJSON bool

var snapshotInspectCmd = &cobra.Command{
	Use:   "inspect [file-or-dir]",
	Short: "Validate a snapshot and print its header",
	Long: `Inspect opens a .lshx snapshot, verifies its checksum and prints the
index configuration it was written with. Given a directory (default: the
configured snapshot dir) it inspects the newest snapshot there.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := settings.Snapshot.DataDir
		if len(args) == 1 {
			path = args[0]
		}
		if path == "" {
			return fmt.Errorf("no snapshot path given and snapshot.dataDir is not configured")
		}
		if latest, err := segment.Latest(path); err == nil && latest != "" {
			path = latest
		}

		r, err := segment.OpenReader(path)
		if err != nil {
			return err
		}
		h := r.Header()
		if snapshotJSON {
			ids := make([]string, 0, len(r.Documents()))
			for _, d := range r.Documents() {
				ids = append(ids, d.ID)
			}
			return printJSON(map[string]any{
				"path":               r.Path(),
				"version":            h.Version,
				"num_hash_functions": h.NumHashFunctions,
				"bands":              h.Bands,
				"shingle_size":       h.ShingleSize,
				"seed":               h.Seed,
				"doc_count":          r.DocCount(),
				"created_at":         time.Unix(h.CreatedAt, 0).UTC(),
				"documents":          ids,
			})
		}
		fmt.Printf("Snapshot: %s\n", r.Path())
		fmt.Printf("Format version: %d\n", h.Version)
		fmt.Printf("Hash functions: %d in %d bands\n", h.NumHashFunctions, h.Bands)
		fmt.Printf("Shingle size: %d\n", h.ShingleSize)
		fmt.Printf("Seed: %d\n", h.Seed)
		fmt.Printf("Documents: %d\n", r.DocCount())
		fmt.Printf("Created: %s\n", time.Unix(h.CreatedAt, 0).UTC().Format(time.RFC3339))
		return nil
	},
}

func init() {
	renameCmd.Flags().StringVarP(&renamePrefix, "prefix", "p", "essay", "file name prefix")
	snapshotInspectCmd.Flags().BoolVar(&snapshotJSON, "json", false, "print JSON including document ids")
	snapshotCmd.AddCommand(snapshotInspectCmd)
}
