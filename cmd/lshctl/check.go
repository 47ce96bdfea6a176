package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/similarity/ranker"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/proto"
	"github.com/spf13/cobra"
)

var (
	checkThreshold float64
	checkFile      string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the main document against the corpus",
	Long: `Check compares the main document (or --file) with every corpus document
and prints the ranked matches as {"similar_docs": {...}, "execution_time": s}.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		threshold := settings.LSH.DefaultThreshold
		if cmd.Flags().Changed("threshold") {
			threshold = checkThreshold
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		if rpcAddr != "" {
			return remoteCheck(ctx, threshold)
		}

		path := settings.Corpus.MainFile
		if checkFile != "" {
			path = checkFile
		}
		text, err := corpus.NewMainStore(path).Read()
		if err != nil {
			return err
		}
		start := time.Now()
		idx, err := localIndex()
		if err != nil {
			return err
		}
		docs, err := idx.FindSimilarText(text, threshold)
		if err != nil {
			return err
		}
		return printJSON(proto.CheckResponse{
			SimilarDocs:   ranker.Ordered(docs),
			ExecutionTime: time.Since(start).Seconds(),
		})
	},
}

func remoteCheck(ctx context.Context, threshold float64) error {
	req := proto.CheckRequest{Threshold: &threshold}
	if checkFile != "" {
		data, err := os.ReadFile(checkFile)
		if err != nil {
			return fmt.Errorf("reading %s: %w", checkFile, err)
		}
		req.Text = string(data)
	}
	c, err := dial()
	if err != nil {
		return err
	}
	defer c.Close()
	var resp proto.CheckResponse
	if err := c.Call(ctx, proto.MethodCheck, req, &resp); err != nil {
		return err
	}
	return printJSON(resp)
}

var similarThreshold float64

var similarCmd = &cobra.Command{
	Use:   "similar <doc-id>",
	Short: "List documents similar to an indexed document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		threshold := settings.LSH.DefaultThreshold
		if cmd.Flags().Changed("threshold") {
			threshold = similarThreshold
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		if rpcAddr != "" {
			c, err := dial()
			if err != nil {
				return err
			}
			defer c.Close()
			var resp proto.FindSimilarResponse
			err = c.Call(ctx, proto.MethodFindSimilar, proto.FindSimilarRequest{DocumentID: args[0], Threshold: &threshold}, &resp)
			if err != nil {
				return err
			}
			return printJSON(resp)
		}

		idx, err := localIndex()
		if err != nil {
			return err
		}
		docs, err := idx.FindSimilar(args[0], threshold)
		if err != nil {
			return err
		}
		return printJSON(proto.FindSimilarResponse{
			DocumentID:  args[0],
			Threshold:   threshold,
			SimilarDocs: ranker.Ordered(docs),
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		if rpcAddr == "" {
			idx, err := localIndex()
			if err != nil {
				return err
			}
			return printJSON(idx.Stats())
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()
		var resp proto.StatsResponse
		if err := c.Call(ctx, proto.MethodStats, proto.StatsRequest{}, &resp); err != nil {
			return err
		}
		return printJSON(resp)
	},
}

func init() {
	checkCmd.Flags().Float64VarP(&checkThreshold, "threshold", "t", 0.1, "minimum similarity in [0,1]")
	checkCmd.Flags().StringVarP(&checkFile, "file", "f", "", "check this file instead of the main document")
	similarCmd.Flags().Float64VarP(&similarThreshold, "threshold", "t", 0.1, "minimum similarity in [0,1]")
}
