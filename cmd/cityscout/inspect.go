package main

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tidefall/cityscout/client"
)

const defaultServerURL = "ws://localhost:8000/mcp/ws"

func toolsCmd() *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools a running server advertises",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := client.New(serverURL)
			defer c.Close()

			if err := c.Connect(cmd.Context()); err != nil {
				return err
			}
			catalog, err := c.ListTools(cmd.Context())
			if err != nil {
				return err
			}

			name := color.New(color.FgCyan, color.Bold)
			for _, tool := range catalog {
				name.Println(tool.Name)
				fmt.Printf("  %s\n", tool.Description)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&serverURL, "server", "s", defaultServerURL, "WebSocket URL of the server")
	return cmd
}

func callCmd() *cobra.Command {
	var serverURL string
	var argsJSON string

	cmd := &cobra.Command{
		Use:   "call <tool>",
		Short: "Invoke a tool on a running server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, posArgs []string) error {
			args := map[string]any{}
			if argsJSON != "" {
				if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
					return fmt.Errorf("parsing --args: %w", err)
				}
			}

			c := client.New(serverURL)
			defer c.Close()

			if err := c.Connect(cmd.Context()); err != nil {
				return err
			}
			result, err := c.CallTool(cmd.Context(), posArgs[0], args)
			if err != nil {
				return err
			}

			for _, block := range result.Content {
				if result.IsError {
					color.Red(block.Text)
					continue
				}
				fmt.Println(block.Text)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&serverURL, "server", "s", defaultServerURL, "WebSocket URL of the server")
	cmd.Flags().StringVarP(&argsJSON, "args", "a", "", "tool arguments as a JSON object")
	return cmd
}
