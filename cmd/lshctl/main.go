// Command lshctl is the operator CLI of the plagiarism detector. It checks
// documents against a corpus directly from disk or through a running
// detector's RPC endpoint, renames corpus files, inspects signature
// snapshots, load tests the HTTP API and manages API keys.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/similarity"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/rpc"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	rpcAddr  string
	verbose  bool
	timeout  time.Duration
	settings *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "lshctl",
	Short: "Plagiarism detector CLI",
	Long: `lshctl compares documents against a corpus using MinHash signatures
and locality-sensitive hashing.

Without --rpc the corpus is indexed in-process from the configured documents
directory; with --rpc the commands run against a live detector.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "warn"
		if verbose {
			level = "debug"
		}
		logger.Setup(level, "text")
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		settings = cfg
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVar(&rpcAddr, "rpc", "", "detector RPC address, e.g. localhost:9100")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "overall command timeout")

	rootCmd.AddCommand(checkCmd, similarCmd, statsCmd, renameCmd, snapshotCmd, benchCmd, apikeyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// localIndex builds an index from the configured corpus directory.
func localIndex() (*similarity.Index, error) {
	idx, err := similarity.NewIndex(settings.LSH)
	if err != nil {
		return nil, err
	}
	docs, err := corpus.Load(settings.Corpus.DocumentsDir)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		if err := idx.AddDocument(doc.ID, doc.Text); err != nil && !errors.Is(err, apperrors.ErrDuplicateDocument) {
			slog.Warn("skipping corpus document", "file", doc.Name, "error", err)
		}
	}
	return idx, nil
}

func dial() (*rpc.Client, error) {
	c, err := rpc.Dial(rpcAddr)
	if err != nil {
		return nil, fmt.Errorf("connecting to detector at %s: %w", rpcAddr, err)
	}
	return c, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
