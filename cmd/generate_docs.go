package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"

	"github.com/transcon/cmsledger/internal/gmail"
	"github.com/transcon/cmsledger/internal/ledger"
	"github.com/transcon/cmsledger/internal/server"
	"github.com/transcon/cmsledger/internal/tools/ledger_tools"
)

// docsMailer lets generate-docs register the send tool without credentials.
type docsMailer struct{}

func (docsMailer) SendEmail(context.Context, *gmail.EmailMessage) (string, error) {
	return "", errors.New("sending is not available while generating docs")
}

func newGenerateDocsCmd() *cobra.Command {
	var (
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate markdown documentation for all available MCP tools.
This command introspects the registered tools and outputs their documentation
in markdown format, so the documentation stays in sync with the tools.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			markdown, err := generateDocs(cmd.Context())
			if err != nil {
				return err
			}
			if outputFile == "" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), markdown)
				return err
			}
			if err := os.WriteFile(outputFile, []byte(markdown), 0o644); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Documentation written to: %s\n", outputFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

// generateDocs registers the tools against an in-memory ledger, once
// read-only and once with write tools, and renders both sets.
func generateDocs(ctx context.Context) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	serverContext, err := server.NewServerContext(ctx, server.Config{
		Store:  ledger.NewMemoryStore(),
		Mailer: docsMailer{},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		_ = serverContext.Shutdown()
	}()

	readSrv := newMCPServer()
	if err := ledger_tools.RegisterLedgerTools(readSrv, serverContext, true); err != nil {
		return "", fmt.Errorf("failed to register ledger tools: %w", err)
	}
	fullSrv := newMCPServer()
	if err := ledger_tools.RegisterLedgerTools(fullSrv, serverContext, false); err != nil {
		return "", fmt.Errorf("failed to register ledger tools: %w", err)
	}

	readOnly := readSrv.ListTools()
	tools := make([]mcp.Tool, 0, len(fullSrv.ListTools()))
	for _, serverTool := range fullSrv.ListTools() {
		tools = append(tools, serverTool.Tool)
	}

	return generateToolsMarkdown(tools, func(name string) bool {
		_, ok := readOnly[name]
		return ok
	}), nil
}

func generateToolsMarkdown(tools []mcp.Tool, isReadOnly func(name string) bool) string {
	var sb strings.Builder

	sb.WriteString("# MCP Tools Reference\n\n")
	sb.WriteString("This document lists the tools available when running `cmsledger serve`.\n\n")
	sb.WriteString("**Note:** This documentation is automatically generated from the tool definitions.\n\n")

	var read, write []mcp.Tool
	for _, tool := range tools {
		if isReadOnly(tool.Name) {
			read = append(read, tool)
		} else {
			write = append(write, tool)
		}
	}

	sections := []struct {
		title string
		note  string
		tools []mcp.Tool
	}{
		{"Read Tools", "Always available.", read},
		{"Write Tools", "Registered only with `--yolo`. `cms_send_email` also needs a cached Google token.", write},
	}
	for _, section := range sections {
		if len(section.tools) == 0 {
			continue
		}
		sort.Slice(section.tools, func(i, j int) bool {
			return section.tools[i].Name < section.tools[j].Name
		})
		sb.WriteString(fmt.Sprintf("## %s\n\n%s\n\n", section.title, section.note))
		for _, tool := range section.tools {
			sb.WriteString(generateToolMarkdown(tool))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func generateToolMarkdown(tool mcp.Tool) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("### %s\n\n", tool.Name))

	if tool.Description != "" {
		sb.WriteString(fmt.Sprintf("%s\n\n", tool.Description))
	}

	if len(tool.InputSchema.Properties) > 0 {
		sb.WriteString("**Arguments:**\n")

		// Sort properties for consistent output
		propNames := make([]string, 0, len(tool.InputSchema.Properties))
		for name := range tool.InputSchema.Properties {
			propNames = append(propNames, name)
		}
		sort.Strings(propNames)

		for _, name := range propNames {
			propMap, ok := tool.InputSchema.Properties[name].(map[string]interface{})
			if !ok {
				continue
			}

			requiredStr := "optional"
			if contains(tool.InputSchema.Required, name) {
				requiredStr = "required"
			}

			sb.WriteString(fmt.Sprintf("- `%s` (%s, %s): ", name, getPropertyType(propMap), requiredStr))
			if desc, ok := propMap["description"].(string); ok {
				sb.WriteString(desc)
			} else {
				sb.WriteString(fmt.Sprintf("%s parameter", getPropertyType(propMap)))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func getPropertyType(prop map[string]interface{}) string {
	if t, ok := prop["type"].(string); ok {
		return t
	}
	return "any"
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
