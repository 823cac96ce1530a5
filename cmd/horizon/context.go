// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/sigil-dev/horizon/internal/horizon"
	"github.com/sigil-dev/horizon/internal/knowledge"
	"github.com/sigil-dev/horizon/internal/server"
	hzerr "github.com/sigil-dev/horizon/pkg/errors"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")).Padding(0, 1)

	horizonStyles = map[horizon.Horizon]lipgloss.Style{
		horizon.Short:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		horizon.Medium: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		horizon.Long:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
	}
)

func newContextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Assemble the context window for a user",
		Long:  "Ask the running server to assemble the context window for one assistant turn and print it.",
		RunE:  runContext,
	}

	cmd.Flags().StringP("user", "u", "", "user id (required)")
	cmd.Flags().StringP("agent", "a", "", "agent id; empty selects the default agent")
	cmd.Flags().String("conversation", "", "active conversation id")
	cmd.Flags().String("company", "", "company id whose shared facts are in scope")
	cmd.Flags().Int("max-blocks", 0, "block budget, clamped to [1, 20]; 0 uses the server default")
	cmd.Flags().StringSlice("exclude", nil, "horizons to leave out (short, medium, long)")
	cmd.Flags().Bool("pretty", false, "render blocks as styled panels")
	cmd.Flags().Bool("json", false, "print the full payload as JSON")
	cmd.Flags().Bool("suggest", false, "print follow-up prompt suggestions instead")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runContext(cmd *cobra.Command, _ []string) error {
	req, err := contextRequestFromFlags(cmd)
	if err != nil {
		return err
	}
	client := newAPIClient(serverAddress(cmd))
	out := cmd.OutOrStdout()

	if suggest, _ := cmd.Flags().GetBool("suggest"); suggest {
		var s knowledge.Suggestions
		if err := client.sendJSON(http.MethodPost, "/api/v1/suggestions", req, &s); err != nil {
			return err
		}
		for _, line := range s.Suggestions {
			if _, err := fmt.Fprintf(out, "- %s\n", line); err != nil {
				return err
			}
		}
		return nil
	}

	var p knowledge.Payload
	if err := client.sendJSON(http.MethodPost, "/api/v1/context", req, &p); err != nil {
		return err
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	pretty, _ := cmd.Flags().GetBool("pretty")
	switch {
	case asJSON:
		return printJSON(cmd, &p)
	case pretty:
		return renderPretty(out, &p)
	default:
		_, err := fmt.Fprintln(out, p.SystemContext)
		return err
	}
}

func contextRequestFromFlags(cmd *cobra.Command) (server.ContextRequest, error) {
	flags := cmd.Flags()
	req := server.ContextRequest{}
	req.UserID, _ = flags.GetString("user")
	req.AgentID, _ = flags.GetString("agent")
	req.ConversationID, _ = flags.GetString("conversation")
	req.CompanyID, _ = flags.GetString("company")
	req.MaxBlocks, _ = flags.GetInt("max-blocks")

	if strings.TrimSpace(req.UserID) == "" {
		return req, hzerr.New(hzerr.CodeCLIInputInvalid, "--user is required")
	}
	if req.MaxBlocks < 0 {
		return req, hzerr.Errorf(hzerr.CodeCLIInputInvalid, "--max-blocks must be >= 0, got %d", req.MaxBlocks)
	}

	names, _ := flags.GetStringSlice("exclude")
	excluded := make([]horizon.Horizon, 0, len(names))
	for _, name := range names {
		h, err := horizon.Parse(name)
		if err != nil {
			return req, hzerr.Wrap(err, hzerr.CodeCLIInputInvalid, "parsing --exclude")
		}
		excluded = append(excluded, h)
	}
	req.IncludeShort, req.IncludeMedium, req.IncludeLong = horizon.Excluding(excluded...).Switches()
	return req, nil
}

func renderPretty(w io.Writer, p *knowledge.Payload) error {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Context for agent %s", p.Resolved.AgentID)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf(
		"digest %s · ~%d tokens · short %d · medium %d · long %d",
		p.ContextDigest, p.TokenEstimate, p.HorizonUsage.Short, p.HorizonUsage.Medium, p.HorizonUsage.Long,
	)))
	b.WriteString("\n")

	if len(p.ContextBlocks) == 0 {
		b.WriteString(boxStyle.Render(p.SystemContext))
		b.WriteString("\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	for _, blk := range p.ContextBlocks {
		label := horizonStyles[blk.Horizon].Render(blk.Horizon.Label())
		body := label + " " + titleStyle.Render(blk.Title) + "\n" +
			dimStyle.Render("Domain: "+blk.Domain+" · Source: "+blk.Source) + "\n" +
			blk.Content
		b.WriteString(boxStyle.Render(body))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
