// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/horizon/internal/server"
	"github.com/sigil-dev/horizon/internal/store"
	hzerr "github.com/sigil-dev/horizon/pkg/errors"
)

func newFactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fact",
		Short: "Manage memory facts",
		Long:  "Write, inspect and curate facts and their evidence on a running server.",
	}

	cmd.AddCommand(
		newFactPutCmd(),
		newFactListCmd(),
		newFactGetCmd(),
		newFactStatusCmd(),
		newFactDeleteCmd(),
		newFactEvidenceCmd(),
	)

	return cmd
}

func newFactPutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put",
		Short: "Insert or update a fact",
		Long: "Insert a fact or update the one with the same subject, horizon, domain and key. " +
			"Values are parsed: numbers, true/false, JSON objects and JSON string arrays keep their type; anything else is text.",
		RunE: runFactPut,
	}

	f := cmd.Flags()
	f.String("subject-type", string(store.SubjectUser), "owner kind: user, agent or shared")
	f.String("subject-id", "", "owner id (required)")
	f.String("horizon", "", "retention horizon: short, medium or long (required)")
	f.String("domain", "", "topic grouping (default general)")
	f.StringP("key", "k", "", "fact key (required)")
	f.String("value", "", "fact value (required)")
	f.String("source", "", "producer of the fact (default system)")
	f.Float64("confidence", 1, "confidence in [0, 1]")
	f.Int64("ttl", 0, "lifetime in seconds; 0 never expires")
	f.StringSlice("tag", nil, "tag, repeatable")
	f.Int64("expected-version", 0, "only update when the stored version matches")
	_ = cmd.MarkFlagRequired("subject-id")
	_ = cmd.MarkFlagRequired("horizon")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("value")

	return cmd
}

func runFactPut(cmd *cobra.Command, _ []string) error {
	f := cmd.Flags()
	req := server.FactRequest{}
	req.SubjectType, _ = f.GetString("subject-type")
	req.SubjectID, _ = f.GetString("subject-id")
	req.Horizon, _ = f.GetString("horizon")
	req.Domain, _ = f.GetString("domain")
	req.Key, _ = f.GetString("key")
	req.Source, _ = f.GetString("source")
	req.Confidence, _ = f.GetFloat64("confidence")
	req.Tags, _ = f.GetStringSlice("tag")
	req.Horizon = strings.ToLower(strings.TrimSpace(req.Horizon))

	raw, _ := f.GetString("value")
	req.Value = store.ParseValue(raw)

	if ttl, _ := f.GetInt64("ttl"); ttl > 0 {
		req.TTLSeconds = &ttl
	}
	if f.Changed("expected-version") {
		ev, _ := f.GetInt64("expected-version")
		req.ExpectedVersion = &ev
	}

	var out server.FactIDBody
	if err := newAPIClient(serverAddress(cmd)).sendJSON(http.MethodPut, "/api/v1/facts", req, &out); err != nil {
		return err
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), out.ID)
	return err
}

func newFactListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active facts of one subject",
		RunE:  runFactList,
	}

	cmd.Flags().String("subject-type", string(store.SubjectUser), "owner kind: user, agent or shared")
	cmd.Flags().String("subject-id", "", "owner id (required)")
	cmd.Flags().StringSlice("horizons", nil, "horizons to include; empty lists all")
	cmd.Flags().Int("limit", 50, "maximum number of facts")
	_ = cmd.MarkFlagRequired("subject-id")

	return cmd
}

func runFactList(cmd *cobra.Command, _ []string) error {
	subjectType, _ := cmd.Flags().GetString("subject-type")
	subjectID, _ := cmd.Flags().GetString("subject-id")
	horizons, _ := cmd.Flags().GetStringSlice("horizons")
	limit, _ := cmd.Flags().GetInt("limit")

	q := url.Values{}
	q.Set("subjectType", subjectType)
	q.Set("subjectId", subjectID)
	q.Set("limit", strconv.Itoa(limit))
	if len(horizons) > 0 {
		q.Set("horizons", strings.Join(horizons, ","))
	}

	var body struct {
		Facts []*store.Fact `json:"facts"`
	}
	if err := newAPIClient(serverAddress(cmd)).getJSON("/api/v1/facts", q, &body); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(body.Facts) == 0 {
		_, err := fmt.Fprintln(out, "no active facts")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tHORIZON\tDOMAIN\tKEY\tVALUE\tCONFIDENCE")
	for _, fact := range body.Facts {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.2f\n",
			fact.ID, fact.Horizon, fact.Domain, fact.Key, fact.Value.String(), fact.Confidence)
	}
	return tw.Flush()
}

func newFactGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a fact as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var f store.Fact
			if err := newAPIClient(serverAddress(cmd)).getJSON(factPath(args[0]), nil, &f); err != nil {
				return err
			}
			return printJSON(cmd, &f)
		},
	}
}

func newFactStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <active|stale|conflicted|deprecated>",
		Short: "Change the curation status of a fact",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := store.FactStatus(strings.ToLower(args[1]))
			if !status.Valid() {
				return hzerr.Errorf(hzerr.CodeCLIInputInvalid, "invalid status %q", args[1])
			}
			var f store.Fact
			body := map[string]string{"status": string(status)}
			if err := newAPIClient(serverAddress(cmd)).sendJSON(http.MethodPatch, factPath(args[0])+"/status", body, &f); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s (version %d)\n", f.ID, f.Status, f.Version)
			return err
		},
	}
}

func newFactDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a fact and its evidence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newAPIClient(serverAddress(cmd)).sendJSON(http.MethodDelete, factPath(args[0]), nil, nil); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return err
		},
	}
}

func newFactEvidenceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evidence",
		Short: "Record and list the provenance of a fact",
	}

	add := &cobra.Command{
		Use:   "add <fact-id>",
		Short: "Append an evidence record",
		Args:  cobra.ExactArgs(1),
		RunE:  runEvidenceAdd,
	}
	add.Flags().String("type", "", "evidence type, e.g. message or document (required)")
	add.Flags().String("ref", "", "pointer to the evidence origin")
	add.Flags().String("text", "", "excerpt supporting the fact")
	add.Flags().Float64("weight", 1, "weight in [0, 1]")
	_ = add.MarkFlagRequired("type")

	list := &cobra.Command{
		Use:   "list <fact-id>",
		Short: "List evidence, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE:  runEvidenceList,
	}

	cmd.AddCommand(add, list)
	return cmd
}

func runEvidenceAdd(cmd *cobra.Command, args []string) error {
	req := server.EvidenceRequest{}
	req.Type, _ = cmd.Flags().GetString("type")
	req.Ref, _ = cmd.Flags().GetString("ref")
	req.Text, _ = cmd.Flags().GetString("text")
	req.Weight, _ = cmd.Flags().GetFloat64("weight")

	var out server.EvidenceIDBody
	if err := newAPIClient(serverAddress(cmd)).sendJSON(http.MethodPost, factPath(args[0])+"/evidence", req, &out); err != nil {
		return err
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), out.ID)
	return err
}

func runEvidenceList(cmd *cobra.Command, args []string) error {
	var body struct {
		Evidence []*store.Evidence `json:"evidence"`
	}
	if err := newAPIClient(serverAddress(cmd)).getJSON(factPath(args[0])+"/evidence", nil, &body); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(body.Evidence) == 0 {
		_, err := fmt.Fprintln(out, "no evidence recorded")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "CREATED\tTYPE\tWEIGHT\tREF\tTEXT")
	for _, ev := range body.Evidence {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%s\n",
			ev.CreatedAt.Format("2006-01-02 15:04:05"), ev.Type, ev.Weight, ev.Ref, ev.Text)
	}
	return tw.Flush()
}

func factPath(id string) string {
	return "/api/v1/facts/" + url.PathEscape(id)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
